package mail

import (
	"context"
	"fmt"
	"io"
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	gomail "github.com/emersion/go-message/mail"
)

// IMAPSource fetches emails from an IMAP mailbox over TLS.
type IMAPSource struct {
	Addr     string // host:port, e.g. "imap.gmail.com:993"
	Username string
	Password string
	Mailbox  string // defaults to INBOX
	Filter   Filter
}

// NewIMAPSource creates an IMAP mail source.
func NewIMAPSource(addr, username, password string, filter Filter) *IMAPSource {
	return &IMAPSource{
		Addr:     addr,
		Username: username,
		Password: password,
		Mailbox:  "INBOX",
		Filter:   filter,
	}
}

// Fetch connects, searches and downloads matching messages. The SINCE and
// UNSEEN restrictions run server-side; sender filtering happens client-side
// against the envelope, which keeps the search to a single round-trip and
// sidesteps server-specific OR-chain limits.
func (s *IMAPSource) Fetch(ctx context.Context) ([]core.RawEmail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("Connecting to IMAP server", "addr", s.Addr)
	c, err := client.DialTLS(s.Addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.Addr, err)
	}
	defer func() { _ = c.Logout() }()

	if err := c.Login(s.Username, s.Password); err != nil {
		return nil, fmt.Errorf("IMAP login failed for %s: %w", s.Username, err)
	}

	mailbox := s.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, true); err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	if !s.Filter.Since.IsZero() {
		criteria.Since = s.Filter.Since
	}
	if s.Filter.UnreadOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}

	seqNums, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(seqNums) == 0 {
		logger.Info("No messages matched the search criteria")
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var emails []core.RawEmail
	for msg := range messages {
		email, ok := s.convertMessage(msg, section)
		if ok {
			emails = append(emails, email)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %w", err)
	}

	logger.Info("Fetched emails from allowed senders", "matched", len(emails), "searched", len(seqNums))
	return emails, nil
}

// convertMessage turns an IMAP message into a RawEmail, applying the sender
// filter. A message that cannot be parsed is skipped with a warning.
func (s *IMAPSource) convertMessage(msg *imap.Message, section *imap.BodySectionName) (core.RawEmail, bool) {
	var email core.RawEmail

	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		logger.Warn("Skipping message without envelope sender", "uid", msg.Uid)
		return email, false
	}

	sender := msg.Envelope.From[0].Address()
	if !s.Filter.MatchesSender(sender) {
		return email, false
	}

	email = core.RawEmail{
		UID:     msg.Uid,
		Subject: msg.Envelope.Subject,
		Sender:  sender,
		Date:    msg.InternalDate,
	}

	body := msg.GetBody(section)
	if body == nil {
		logger.Warn("Message has no body section", "uid", msg.Uid, "subject", email.Subject)
		return email, true
	}

	htmlBody, textBody, err := readBodyParts(body)
	if err != nil {
		logger.Warn("Failed to parse message body", "uid", msg.Uid, "subject", email.Subject, "error", err.Error())
		return email, true
	}
	email.HTMLBody = htmlBody
	email.TextBody = textBody

	return email, true
}

// readBodyParts walks the MIME structure and returns the first text/html and
// text/plain parts found.
func readBodyParts(r io.Reader) (htmlBody, textBody string, err error) {
	mr, err := gomail.CreateReader(r)
	if err != nil {
		return "", "", fmt.Errorf("failed to create mail reader: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return htmlBody, textBody, fmt.Errorf("failed to read mail part: %w", err)
		}

		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil {
			continue
		}

		switch {
		case strings.EqualFold(contentType, "text/html") && htmlBody == "":
			data, err := io.ReadAll(part.Body)
			if err == nil {
				htmlBody = string(data)
			}
		case strings.EqualFold(contentType, "text/plain") && textBody == "":
			data, err := io.ReadAll(part.Body)
			if err == nil {
				textBody = string(data)
			}
		}
	}

	return htmlBody, textBody, nil
}
