package emails

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const brevoAPI = "https://api.brevo.com/v3/smtp/email"

// BrevoSendRequest matches the Brevo API v3 transactional email body.
type BrevoSendRequest struct {
	Sender      BrevoSender   `json:"sender"`
	To          []BrevoTo     `json:"to"`
	Subject     string        `json:"subject"`
	HTMLContent string        `json:"htmlContent"`
	TextContent string        `json:"textContent,omitempty"`
	ReplyTo     *BrevoReplyTo `json:"replyTo,omitempty"`
}

type BrevoSender struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type BrevoTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type BrevoReplyTo struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// BrevoClient sends emails through the Brevo (Sendinblue) API.
type BrevoClient struct {
	APIKey   string
	MailFrom string
	SiteURL  string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
	Client  *http.Client
}

func (c *BrevoClient) from() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return "noreply@marketplace.local"
}

func (c *BrevoClient) endpoint() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return brevoAPI
}

func (c *BrevoClient) send(ctx context.Context, body BrevoSendRequest) error {
	body.Sender = BrevoSender{Email: c.from(), Name: brandName}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("brevo send failed: status %d", resp.StatusCode)
	}
	return nil
}

func (c *BrevoClient) SendLoginCode(ctx context.Context, toEmail, code, link string) error {
	return c.send(ctx, BrevoSendRequest{
		To:          []BrevoTo{{Email: toEmail}},
		Subject:     LoginCodeSubject(),
		HTMLContent: LoginCodeHTML(code, link),
		TextContent: loginCodeText(code, link),
	})
}

// SendNewMessage notifies the seller. Replies go straight to the buyer.
func (c *BrevoClient) SendNewMessage(ctx context.Context, n NewMessage) error {
	return c.send(ctx, BrevoSendRequest{
		To:          []BrevoTo{{Email: n.SellerEmail, Name: n.SellerName}},
		Subject:     NewMessageSubject(n.ListingTitle),
		HTMLContent: NewMessageHTML(n, c.SiteURL),
		TextContent: n.Message,
		ReplyTo:     &BrevoReplyTo{Email: n.BuyerEmail, Name: n.BuyerName},
	})
}
