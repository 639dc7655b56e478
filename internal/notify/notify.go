// Package notify implements the Notifier (§4.8): one consolidated email per
// recipient, grouping every (filenames, message) pair produced during a
// center's run. Recipients are the union of createdBy and modifiedBy across
// the implicated entities.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"log/slog"
)

// Message is one reported outcome: the filenames it concerns and the text to
// report against them (typically a validation report).
type Message struct {
	Filenames []string
	Text      string
}

// Recipient identifies one person by their platform id, display name and
// email address.
type Recipient struct {
	ID          string
	DisplayName string
	Email       string
}

// Notification is a deduplicated (recipient, messages) pairing ready to send.
type Notification struct {
	Recipient Recipient
	Messages  []Message
}

// Consolidate groups raw (entity createdBy/modifiedBy, message) reports into
// one Notification per recipient, deduplicating identical messages sent to
// the same person from different entities in the unit.
func Consolidate(reports map[Recipient][]Message) []Notification {
	ids := make([]string, 0, len(reports))
	byID := make(map[string]Recipient, len(reports))
	for r := range reports {
		if _, ok := byID[r.ID]; !ok {
			ids = append(ids, r.ID)
			byID[r.ID] = r
		}
	}
	sort.Strings(ids)

	notifications := make([]Notification, 0, len(ids))
	for _, id := range ids {
		r := byID[id]
		notifications = append(notifications, Notification{Recipient: r, Messages: dedupe(reports[r])})
	}
	return notifications
}

func dedupe(messages []Message) []Message {
	seen := make(map[string]bool, len(messages))
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		key := strings.Join(m.Filenames, ",") + "|" + m.Text
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// Sender delivers one Notification. A Notifier is built from a Sender plus
// the From address and an enabled flag so the pipeline can disable outgoing
// mail in environments with no relay (logging instead) without the caller
// needing to know the difference.
type Sender interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// SMTPSender delivers mail through a plain SMTP relay, grounded on the
// standard library's net/smtp — there is no email-sending library anywhere
// in the retrieved example pack, so this is the one ambient concern this
// module implements on the standard library alone.
type SMTPSender struct {
	Host string
	Port int
}

func (s *SMTPSender) Send(ctx context.Context, from, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	msg := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", to, subject, body)
	return smtp.SendMail(addr, nil, from, []string{to}, []byte(msg))
}

// Notifier sends one consolidated message per recipient.
type Notifier struct {
	Sender   Sender
	From     string
	Disabled bool
}

// NewNotifier wires a Notifier around sender. If disabled, Send logs instead
// of dialing a relay, letting local/test runs exercise the pipeline without
// a mail server.
func NewNotifier(sender Sender, from string, disabled bool) *Notifier {
	return &Notifier{Sender: sender, From: from, Disabled: disabled}
}

// Send delivers every notification, continuing past individual failures
// (notification is a best-effort side-channel, never fatal to the pipeline).
func (n *Notifier) Send(ctx context.Context, notifications []Notification, now time.Time) {
	for _, notif := range notifications {
		subject, body := compose(notif, now)
		if n.Disabled || notif.Recipient.Email == "" {
			slog.Info("notification suppressed", "recipient", notif.Recipient.ID, "subject", subject)
			continue
		}
		if err := n.Sender.Send(ctx, n.From, notif.Recipient.Email, subject, body); err != nil {
			slog.Warn("failed to send notification", "recipient", notif.Recipient.ID, "error", err)
		}
	}
}

func compose(notif Notification, now time.Time) (subject, body string) {
	subject = fmt.Sprintf("File validation errors - %s", now.Format("2006-01-02"))

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", notif.Recipient.DisplayName)
	for _, m := range notif.Messages {
		fmt.Fprintf(&b, "%s\n%s\n\n", strings.Join(m.Filenames, ", "), m.Text)
	}
	return subject, b.String()
}
