package listings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"marketplace-backend/internal/application/browse"
	"marketplace-backend/internal/application/changefeed"
	"marketplace-backend/internal/application/search"
	"marketplace-backend/internal/application/uploads"
	"marketplace-backend/internal/domain"
	"marketplace-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrListingNotFound = errors.New("Listing not found")
	ErrNotOwner        = errors.New("You can only delete your own listings")
)

type Service struct {
	DB       *gorm.DB
	Feed     changefeed.Feed
	Uploads  *uploads.Service
	Pipeline *browse.Pipeline
	History  search.HistoryStore
	Metrics  *metrics.Metrics
}

type CreateListingInput struct {
	Title       string
	Description string
	Price       float64
	Category    string
	Location    string
	// Image is an optional data URL.
	Image     *string
	UserID    uuid.UUID
	UserEmail string
}

// CreateListing stores the image (if any), then writes the listing and its
// CREATED event in one transaction.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (*domain.Listing, error) {
	listing := &domain.Listing{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    in.Category,
		Location:    strings.TrimSpace(in.Location),
		UserID:      in.UserID,
		UserEmail:   in.UserEmail,
	}
	if in.Image != nil && strings.TrimSpace(*in.Image) != "" {
		if s.Uploads == nil {
			return nil, errors.New("Image uploads are not configured")
		}
		url, err := s.Uploads.SaveListingImage(ctx, in.UserID, *in.Image)
		if err != nil {
			return nil, err
		}
		listing.ImageURL = &url
	}

	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if err := tx.Create(listing).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Failed to create listing: %w", err)
	}
	eventData, _ := json.Marshal(map[string]interface{}{
		"title":    listing.Title,
		"price":    listing.Price,
		"category": listing.Category,
	})
	actor := in.UserID
	if err := tx.Create(&domain.ListingEvent{
		ListingID:   listing.ID,
		EventType:   domain.ListingEventCreated,
		EventData:   datatypes.JSON(eventData),
		ActorUserID: &actor,
	}).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("Failed to create listing event: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("Failed to create listing: %w", err)
	}

	s.Metrics.ListingCreated()
	s.publish(ctx, changefeed.Insert, listing, nil)
	return listing, nil
}

// AllListings returns every listing, newest first.
func (s *Service) AllListings(ctx context.Context) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Order("id").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch listings: %w", err)
	}
	return listings, nil
}

// Browse runs the search and browse pipeline over all listings. A signed-in
// user's non-empty query is added to their search history.
func (s *Service) Browse(ctx context.Context, userID uuid.UUID, q browse.Query) (*browse.Output, error) {
	all, err := s.AllListings(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.Pipeline.Run(all, q)
	if err != nil {
		return nil, fmt.Errorf("Failed to search listings: %w", err)
	}
	if userID != uuid.Nil && s.History != nil && strings.TrimSpace(q.Text) != "" {
		if _, err := s.History.Append(ctx, userID.String(), q.Text); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("listings: failed to record search history")
		}
	}
	return out, nil
}

// Suggestions proposes completions for a partial query.
func (s *Service) Suggestions(ctx context.Context, query string) ([]string, error) {
	all, err := s.AllListings(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.Pipeline.Search.Search(all, query)
	if err != nil {
		return nil, fmt.Errorf("Failed to search listings: %w", err)
	}
	return search.Suggest(results, query, search.MaxSuggestions), nil
}

func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var l domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

// MyListings returns the user's own listings, newest first.
func (s *Service) MyListings(ctx context.Context, userID uuid.UUID) ([]domain.Listing, error) {
	var listings []domain.Listing
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// DeleteListing removes a listing owned by userID and records a DELETED event.
// Messages about the listing are kept; they carry their own snapshot.
func (s *Service) DeleteListing(ctx context.Context, id, userID uuid.UUID) error {
	tx := s.DB.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var l domain.Listing
	if err := tx.Where("id = ?", id).First(&l).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrListingNotFound
		}
		return err
	}
	if l.UserID != userID {
		tx.Rollback()
		return ErrNotOwner
	}
	if err := tx.Delete(&domain.Listing{}, "id = ?", id).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Failed to delete listing: %w", err)
	}
	eventData, _ := json.Marshal(map[string]interface{}{"title": l.Title})
	actor := userID
	if err := tx.Create(&domain.ListingEvent{
		ListingID:   l.ID,
		EventType:   domain.ListingEventDeleted,
		EventData:   datatypes.JSON(eventData),
		ActorUserID: &actor,
	}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("Failed to create listing event: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("Failed to delete listing: %w", err)
	}

	s.Metrics.ListingDeleted()
	s.publish(ctx, changefeed.Delete, nil, &l)
	return nil
}

func (s *Service) publish(ctx context.Context, typ changefeed.EventType, newRow, oldRow *domain.Listing) {
	if s.Feed == nil {
		return
	}
	var n, o any
	if newRow != nil {
		n = newRow
	}
	if oldRow != nil {
		o = oldRow
	}
	ev, err := changefeed.NewEvent(domain.Listing{}.TableName(), typ, n, o)
	if err == nil {
		err = s.Feed.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("type", string(typ)).Msg("listings: change feed publish failed")
	}
}
