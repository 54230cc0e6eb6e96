package listings

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"marketplace-backend/internal/application/browse"
	listsvc "marketplace-backend/internal/application/listings"
	"marketplace-backend/internal/application/uploads"
	"marketplace-backend/internal/domain"
	"marketplace-backend/internal/middleware"
	"marketplace-backend/internal/pkg/contracts"
	"marketplace-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *listsvc.Service
	// PageSize is the default page size for Browse.
	PageSize int
}

type createListingRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
	Image       *string `json:"image"`
}

// Browse GET /api/v1/listings. Signed-in users get their query recorded in
// search history.
func (h *Handlers) Browse(c *fiber.Ctx) error {
	q := h.parseQuery(c)
	userID, _ := middleware.CurrentUserID(c)
	out, err := h.Service.Browse(c.UserContext(), userID, q)
	if err != nil {
		middleware.Logger(c).Error().Err(err).Msg("listings: browse failed")
		return response.Error(c, "Failed to fetch listings", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listings fetched successfully", out, nil)
}

func (h *Handlers) parseQuery(c *fiber.Ctx) browse.Query {
	pageSize := h.PageSize
	if s := c.Query("page_size"); s != "" {
		pageSize, _ = strconv.Atoi(s)
	}
	page, _ := strconv.Atoi(c.Query("page", "1"))
	return browse.Query{
		Category: c.Query("category"),
		Text:     c.Query("q"),
		Filters: browse.ParseFilters(browse.RawFilters{
			MinPrice:   c.Query("min_price"),
			MaxPrice:   c.Query("max_price"),
			Categories: queryList(c, "categories"),
			DateFrom:   c.Query("date_from"),
			DateTo:     c.Query("date_to"),
			Sort:       c.Query("sort"),
		}),
		Page:      page,
		PageSize:  browse.NormalizePageSize(pageSize),
		ResultKey: c.Query("result_key"),
	}
}

// queryList accepts both repeated keys and comma separated values.
func queryList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Categories GET /api/v1/listings/categories
func (h *Handlers) Categories(c *fiber.Ctx) error {
	return response.Success(c, "Categories fetched successfully", fiber.Map{
		"all":        domain.CategoryAll,
		"categories": domain.Categories,
	}, nil)
}

// Suggestions GET /api/v1/listings/suggestions?q=
func (h *Handlers) Suggestions(c *fiber.Ctx) error {
	suggestions, err := h.Service.Suggestions(c.UserContext(), c.Query("q"))
	if err != nil {
		return response.Error(c, "Failed to fetch suggestions", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Suggestions fetched successfully", fiber.Map{"suggestions": suggestions}, nil)
}

// Mine GET /api/v1/listings/mine
func (h *Handlers) Mine(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	listings, err := h.Service.MyListings(c.UserContext(), userID)
	if err != nil {
		return response.Error(c, "Failed to fetch listings", fiber.StatusInternalServerError, nil)
	}
	return response.List(c, "Listings fetched successfully", listings)
}

// GetListing GET /api/v1/listings/:id
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid listing id")
	}
	listing, err := h.Service.GetListing(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, listsvc.ErrListingNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listing fetched successfully", listing, nil)
}

// CreateListing POST /api/v1/listings
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	if err := contracts.Validate(contracts.ListingCreate, c.Body()); err != nil {
		return response.BadRequest(c, contracts.Message(err))
	}
	var req createListingRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return response.BadRequest(c, contracts.ErrInvalidJSON.Error())
	}

	listing, err := h.Service.CreateListing(c.UserContext(), listsvc.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Location:    req.Location,
		Image:       req.Image,
		UserID:      userID,
		UserEmail:   middleware.CurrentEmail(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, uploads.ErrInvalidDataURL), errors.Is(err, uploads.ErrNotAnImage):
			return response.BadRequest(c, err.Error())
		case errors.Is(err, uploads.ErrImageTooLarge):
			return response.Error(c, err.Error(), fiber.StatusRequestEntityTooLarge, nil)
		}
		middleware.Logger(c).Error().Err(err).Str("user_id", userID.String()).Msg("listings: create failed")
		return response.Error(c, "Failed to create listing", fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Listing created successfully", listing, nil)
}

// DeleteListing DELETE /api/v1/listings/:id
func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.BadRequest(c, "Invalid listing id")
	}
	if err := h.Service.DeleteListing(c.UserContext(), id, userID); err != nil {
		switch {
		case errors.Is(err, listsvc.ErrListingNotFound):
			return response.NotFound(c, err.Error())
		case errors.Is(err, listsvc.ErrNotOwner):
			return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
		}
		log.Error().Err(err).Str("listing_id", id.String()).Msg("listings: delete failed")
		return response.Error(c, "Failed to delete listing", fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Listing deleted successfully", fiber.Map{"id": id}, nil)
}
