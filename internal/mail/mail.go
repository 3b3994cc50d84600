// Package mail fetches raw newsletter emails over IMAP.
package mail

import (
	"context"
	"strings"
	"time"

	"newsbrief/internal/core"
)

// Source yields the raw emails for one pipeline run.
type Source interface {
	Fetch(ctx context.Context) ([]core.RawEmail, error)
}

// Filter describes which messages the source should return.
type Filter struct {
	AllowedSenders []string  // Full addresses, e.g. "news@golangweekly.com"
	AllowedDomains []string  // Bare domains, e.g. "substack.com"
	Since          time.Time // Only messages on or after this date
	UnreadOnly     bool      // Restrict to unseen messages
}

// MatchesSender reports whether a sender address passes the filter.
// Matching is case-insensitive; an empty filter matches nothing, since an
// unconfigured run should not ingest an entire inbox.
func (f Filter) MatchesSender(address string) bool {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return false
	}

	for _, allowed := range f.AllowedSenders {
		if address == strings.ToLower(allowed) {
			return true
		}
	}

	at := strings.LastIndex(address, "@")
	if at < 0 {
		return false
	}
	domain := address[at+1:]
	for _, allowed := range f.AllowedDomains {
		if domain == strings.ToLower(allowed) {
			return true
		}
	}

	return false
}

// MonthStart returns the first day of now's month in UTC, the default lower
// bound for a run's mail search.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
