package listingevents

import (
	lesvc "marketplace-backend/internal/application/listingevents"
	"marketplace-backend/internal/domain"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *lesvc.Service
}

// GetListingEvents GET /api/v1/listing-events. With ?listing_id= only that
// listing's events are returned, and only those the caller performed.
func (h *Handlers) GetListingEvents(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var (
		events []domain.ListingEvent
		err    error
	)
	if raw := c.Query("listing_id"); raw != "" {
		listingID, perr := uuid.Parse(raw)
		if perr != nil {
			return response.BadRequest(c, "Invalid listing id")
		}
		events, err = h.Service.GetListingHistory(c.UserContext(), listingID)
		events = actedBy(events, userID)
	} else {
		events, err = h.Service.GetUserListingEvents(c.UserContext(), userID)
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("listingevents: fetch failed")
		return response.Error(c, "Failed to fetch listing events", fiber.StatusInternalServerError, nil)
	}
	return response.List(c, "Listing events fetched successfully", events)
}

func actedBy(events []domain.ListingEvent, userID uuid.UUID) []domain.ListingEvent {
	out := events[:0]
	for _, ev := range events {
		if ev.ActorUserID != nil && *ev.ActorUserID == userID {
			out = append(out, ev)
		}
	}
	return out
}
