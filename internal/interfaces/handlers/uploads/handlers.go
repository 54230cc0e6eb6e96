package uploads

import (
	"errors"

	uploadsvc "marketplace-backend/internal/application/uploads"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers bundles upload handlers with the service.
type Handlers struct {
	Service *uploadsvc.Service
}

type uploadRequest struct {
	FileName string `json:"file_name"`
}

// ListingImage POST /api/v1/uploads/listing-image
func (h *Handlers) ListingImage(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req uploadRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, uploadsvc.ErrFileNameRequired.Error())
	}

	res, err := h.Service.ListingImageUploadURL(c.UserContext(), userID, req.FileName)
	if err != nil {
		switch {
		case errors.Is(err, uploadsvc.ErrFileNameRequired):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, uploadsvc.ErrNoStore):
			return response.Unavailable(c, err.Error())
		}
		log.Error().Err(err).Str("user_id", userID.String()).Msg("upload: failed to generate signed URL")
		return response.Error(c, "Failed to generate upload URL", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Upload URL generated", res, nil)
}
