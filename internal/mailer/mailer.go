// Package mailer sends transactional email through MailerSend. The only
// message this service sends today is the verification code used to prove
// ownership of an email address before it can be attached to a request.
package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/mailersend/mailersend-go"
)

// Mailer is the outbound email contract used by the service layer.
// Implementations must be safe for concurrent use.
type Mailer interface {
	// SendVerificationCode delivers a one-time code to the given address.
	SendVerificationCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error
}

// MailerSend sends email through the MailerSend HTTP API.
type MailerSend struct {
	client    *mailersend.Mailersend
	fromName  string
	fromEmail string
}

// NewMailerSend constructs a MailerSend mailer. fromEmail must belong to a
// domain verified in the MailerSend account or sends will be rejected.
func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSend {
	return &MailerSend{
		client:    mailersend.NewMailersend(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// SendVerificationCode implements Mailer.
func (m *MailerSend) SendVerificationCode(ctx context.Context, toEmail, code string, expiresAt time.Time) error {
	subject, text, html := verificationEmail(code, expiresAt)

	msg := m.client.Email.NewMessage()
	msg.SetFrom(mailersend.From{Name: m.fromName, Email: m.fromEmail})
	msg.SetRecipients([]mailersend.Recipient{{Email: toEmail}})
	msg.SetSubject(subject)
	msg.SetText(text)
	msg.SetHTML(html)

	if _, err := m.client.Email.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailersend: send verification code: %w", err)
	}
	return nil
}

// verificationEmail renders the subject and both bodies for a code email.
// Split out so rendering stays testable without network access.
func verificationEmail(code string, expiresAt time.Time) (subject, text, html string) {
	subject = "Your verification code"
	expiry := expiresAt.UTC().Format("15:04 MST, Jan 2 2006")
	text = fmt.Sprintf(
		"Your verification code is %s.\n\nIt expires at %s. If you did not request this code, you can ignore this email.\n",
		code, expiry,
	)
	html = fmt.Sprintf(
		`<p>Your verification code is:</p><p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p><p>It expires at %s. If you did not request this code, you can ignore this email.</p>`,
		code, expiry,
	)
	return subject, text, html
}
