// Package notifications tells sellers about new messages, either by calling
// the send-message-email function over HTTP or by sending the email in process.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketplace-backend/internal/application/emails"
)

// ErrMissingFields is returned when a notification lacks a required field.
var ErrMissingFields = errors.New("Missing required fields")

// FunctionKeyHeader carries the shared key between the API and the function.
const FunctionKeyHeader = "X-Functions-Key"

// EmailNotifier sends the notification email directly.
type EmailNotifier struct {
	Sender emails.Sender
}

func (n *EmailNotifier) Notify(ctx context.Context, msg emails.NewMessage) error {
	if msg.Missing() {
		return ErrMissingFields
	}
	return n.Sender.SendNewMessage(ctx, msg)
}

// HTTPNotifier posts the notification to a remote send-message-email function.
type HTTPNotifier struct {
	URL    string
	Key    string
	Client *http.Client
}

func (n *HTTPNotifier) Notify(ctx context.Context, msg emails.NewMessage) error {
	if msg.Missing() {
		return ErrMissingFields
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Key != "" {
		req.Header.Set(FunctionKeyHeader, n.Key)
	}
	if n.Client == nil {
		n.Client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("notify function: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notify function: status %d body: %s", resp.StatusCode, b)
	}
	return nil
}
