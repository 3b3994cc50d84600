package mail

import (
	"testing"
	"time"
)

func TestMatchesSenderFullAddress(t *testing.T) {
	f := Filter{AllowedSenders: []string{"news@golangweekly.com"}}

	if !f.MatchesSender("news@golangweekly.com") {
		t.Error("Expected exact address to match")
	}
	if !f.MatchesSender("News@GolangWeekly.com") {
		t.Error("Expected matching to be case-insensitive")
	}
	if f.MatchesSender("other@golangweekly.com") {
		t.Error("Expected different mailbox on same domain to be rejected")
	}
}

func TestMatchesSenderDomain(t *testing.T) {
	f := Filter{AllowedDomains: []string{"substack.com"}}

	if !f.MatchesSender("some.newsletter@substack.com") {
		t.Error("Expected domain match")
	}
	if f.MatchesSender("attacker@notsubstack.com") {
		t.Error("Expected different domain to be rejected")
	}
	if f.MatchesSender("attacker@substack.com.evil.example") {
		t.Error("Expected domain suffix spoofing to be rejected")
	}
}

func TestMatchesSenderEmptyFilter(t *testing.T) {
	var f Filter
	if f.MatchesSender("anyone@example.com") {
		t.Error("Expected an empty filter to match nothing")
	}
	if f.MatchesSender("") {
		t.Error("Expected empty address to never match")
	}
}

func TestMonthStart(t *testing.T) {
	now := time.Date(2025, time.March, 17, 15, 4, 5, 0, time.UTC)
	got := MonthStart(now)
	want := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Got %v, want %v", got, want)
	}
}
