package emails

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// SMTPSender delivers mail over SMTP with STARTTLS.
type SMTPSender struct {
	From    string
	SiteURL string
	dialer  *gomail.Dialer
}

func NewSMTPSender(host string, port int, username, password, from, siteURL string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{From: from, SiteURL: siteURL, dialer: gomail.NewDialer(host, port, username, password)}
}

func (s *SMTPSender) SendLoginCode(ctx context.Context, toEmail, code, link string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", LoginCodeSubject())
	m.SetBody("text/plain", loginCodeText(code, link))
	m.AddAlternative("text/html", LoginCodeHTML(code, link))
	return s.send(ctx, m)
}

func (s *SMTPSender) SendNewMessage(ctx context.Context, n NewMessage) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", n.SellerEmail)
	m.SetHeader("Reply-To", n.BuyerEmail)
	m.SetHeader("Subject", NewMessageSubject(n.ListingTitle))
	m.SetBody("text/plain", n.Message)
	m.AddAlternative("text/html", NewMessageHTML(n, s.SiteURL))
	return s.send(ctx, m)
}

func (s *SMTPSender) send(ctx context.Context, m *gomail.Message) error {
	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()
	select {
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Strs("to", m.GetHeader("To")).Msg("smtp send abandoned")
		return fmt.Errorf("smtp send cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send failed: %w", err)
		}
		return nil
	}
}
