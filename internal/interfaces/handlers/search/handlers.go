package search

import (
	"marketplace-backend/internal/application/search"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	History search.HistoryStore
}

// GetHistory GET /api/v1/search/history
func (h *Handlers) GetHistory(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	entries, err := h.History.Get(c.UserContext(), userID.String())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("search: history read failed")
		return response.Error(c, "Failed to fetch search history", fiber.StatusInternalServerError, nil)
	}
	if entries == nil {
		entries = []string{}
	}
	return response.Success(c, "Search history fetched successfully", fiber.Map{"history": entries}, nil)
}

// ClearHistory DELETE /api/v1/search/history
func (h *Handlers) ClearHistory(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := h.History.Set(c.UserContext(), userID.String(), nil); err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("search: history clear failed")
		return response.Error(c, "Failed to clear search history", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Search history cleared", fiber.Map{"history": []string{}}, nil)
}
