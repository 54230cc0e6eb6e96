package emails

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NewMessage is the notification a seller receives when a buyer writes about
// one of their listings.
type NewMessage struct {
	SellerEmail  string      `json:"sellerEmail"`
	SellerName   string      `json:"sellerName"`
	BuyerEmail   string      `json:"buyerEmail"`
	BuyerName    string      `json:"buyerName"`
	Message      string      `json:"message"`
	ListingTitle string      `json:"listingTitle"`
	ListingPrice json.Number `json:"listingPrice"`
	ListingID    string      `json:"listingId"`
}

// Missing reports whether any field a notification cannot do without is blank.
func (n NewMessage) Missing() bool {
	return strings.TrimSpace(n.SellerEmail) == "" || strings.TrimSpace(n.BuyerEmail) == "" ||
		strings.TrimSpace(n.Message) == "" || strings.TrimSpace(n.ListingTitle) == ""
}

// FormatPrice renders a price the way listing pages show it.
func FormatPrice(p float64) json.Number {
	return json.Number(strconv.FormatFloat(p, 'f', -1, 64))
}

func NewMessageSubject(listingTitle string) string {
	return "New message about your listing: " + listingTitle
}

// ListingURL is the public page of a listing on siteURL.
func ListingURL(siteURL, listingID string) string {
	return strings.TrimRight(siteURL, "/") + "/listing/" + listingID
}

func newMessageContent(n NewMessage, siteURL string) string {
	buyer := n.BuyerName
	if strings.TrimSpace(buyer) == "" {
		buyer = n.BuyerEmail
	}
	return fmt.Sprintf(`
    <h2 style="margin-top: 0;">Someone is interested in your listing!</h2>
    <div class="panel">
      <h3>Listing Details</h3>
      <p><strong>Title:</strong> %s</p>
      <p><strong>Price:</strong> $%s</p>
      <p><a href="%s" style="color: %s; text-decoration: none;">View Listing →</a></p>
    </div>
    <div class="panel">
      <h3>Message from %s</h3>
      <p><strong>Email:</strong> %s</p>
      <div style="background-color: #f1f5f9; padding: 15px; border-radius: 6px; margin: 10px 0;">
        <p style="margin: 0; white-space: pre-wrap;">%s</p>
      </div>
    </div>
    <div class="panel" style="background-color: #fef3c7; border-left: 4px solid #f59e0b;">
      <h3 style="color: #92400e;">How to Respond</h3>
      <p style="color: #92400e;">Reply directly to this email to contact %s. Their email is:
        <a href="mailto:%s" style="color: %s;">%s</a></p>
    </div>
    <div class="panel" style="background-color: #fef2f2; border-left: 4px solid #ef4444;">
      <h3 style="color: #dc2626;">Safety Tips</h3>
      <ul style="margin: 5px 0; color: #dc2626; padding-left: 20px;">
        <li>Meet in a public place for transactions</li>
        <li>Trust your instincts about potential buyers</li>
        <li>Never share sensitive personal information</li>
        <li>Verify payment before handing over items</li>
      </ul>
    </div>
    <p style="color: %s; font-size: 12px;">This email was sent from your Marketplace listing. If you didn't expect this message, please ignore it.</p>
`,
		EscapeHTML(n.ListingTitle), EscapeHTML(n.ListingPrice.String()), ListingURL(siteURL, n.ListingID), themePrimary,
		EscapeHTML(buyer), EscapeHTML(n.BuyerEmail), EscapeHTML(n.Message),
		EscapeHTML(buyer), EscapeHTML(n.BuyerEmail), themePrimary, EscapeHTML(n.BuyerEmail), themeTextMuted)
}

// NewMessageHTML renders the full seller notification.
func NewMessageHTML(n NewMessage, siteURL string) string {
	return EmailLayout("New Message from Marketplace", newMessageContent(n, siteURL))
}

func LoginCodeSubject() string {
	return "Your Marketplace sign-in code"
}

// LoginCodeHTML renders the sign-in email with the code and the magic link.
func LoginCodeHTML(code, link string) string {
	content := fmt.Sprintf(`
    <p>Use this code to sign in:</p>
    <p style="font-size: 32px; font-weight: 700; letter-spacing: 8px; margin: 20px 0;">%s</p>
    <p>Or sign in with one click:</p>
    <p><a href="%s" class="button">Sign in</a></p>
    <p style="color: %s; font-size: 14px;">The code and link expire in 10 minutes. If you did not try to sign in, you can ignore this email.</p>
`, EscapeHTML(code), EscapeHTML(link), themeTextMuted)
	return EmailLayout("Sign in to Marketplace", content)
}
