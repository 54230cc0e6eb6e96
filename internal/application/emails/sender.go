// Package emails renders and delivers transactional mail: sign-in codes and
// new-message notifications for sellers.
package emails

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Sender delivers the application's emails.
type Sender interface {
	SendLoginCode(ctx context.Context, toEmail, code, link string) error
	SendNewMessage(ctx context.Context, n NewMessage) error
}

// LogSender writes emails to the log instead of sending them. Used in
// development when no provider is configured.
type LogSender struct{}

func (LogSender) SendLoginCode(ctx context.Context, toEmail, code, link string) error {
	log.Info().Str("to", toEmail).Str("code", code).Str("link", link).Msg("email: login code")
	return nil
}

func (LogSender) SendNewMessage(ctx context.Context, n NewMessage) error {
	log.Info().Str("to", n.SellerEmail).Str("reply_to", n.BuyerEmail).
		Str("subject", NewMessageSubject(n.ListingTitle)).Msg("email: new message")
	return nil
}

// Options select an email provider. Brevo wins when an API key is set, then SMTP.
type Options struct {
	BrevoAPIKey  string
	MailFrom     string
	SiteURL      string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// NewSender picks the configured provider, falling back to LogSender.
func NewSender(o Options) Sender {
	switch {
	case o.BrevoAPIKey != "":
		return &BrevoClient{APIKey: o.BrevoAPIKey, MailFrom: o.MailFrom, SiteURL: o.SiteURL}
	case o.SMTPUsername != "":
		return NewSMTPSender(o.SMTPHost, o.SMTPPort, o.SMTPUsername, o.SMTPPassword, o.MailFrom, o.SiteURL)
	default:
		log.Warn().Msg("email: no provider configured, emails will only be logged")
		return LogSender{}
	}
}

func loginCodeText(code, link string) string {
	return fmt.Sprintf("Your sign-in code is %s\n\nOr open this link to sign in:\n%s\n\nThe code expires in 10 minutes.", code, link)
}
