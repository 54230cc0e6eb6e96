package notifications

import (
	"encoding/json"
	"errors"

	"marketplace-backend/internal/application/emails"
	"marketplace-backend/internal/application/notifications"
	"marketplace-backend/internal/pkg/contracts"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves the send-message-email function. Its responses use the
// function's own JSON shape rather than the API envelope.
type Handlers struct {
	Notifier *notifications.EmailNotifier
}

// SendMessageEmail POST /functions/v1/send-message-email
func (h *Handlers) SendMessageEmail(c *fiber.Ctx) error {
	if err := contracts.Validate(contracts.SendMessageEmail, c.Body()); err != nil {
		return missingFields(c)
	}
	var msg emails.NewMessage
	if err := json.Unmarshal(c.Body(), &msg); err != nil {
		return missingFields(c)
	}

	if err := h.Notifier.Notify(c.UserContext(), msg); err != nil {
		if errors.Is(err, notifications.ErrMissingFields) {
			return missingFields(c)
		}
		log.Error().Err(err).Str("listing_id", msg.ListingID).Msg("send-message-email: delivery failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to send email",
			"details": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "message": "Email sent successfully"})
}

func missingFields(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": notifications.ErrMissingFields.Error()})
}
