package listingevents

import (
	"context"
	"errors"

	"marketplace-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserRequired = errors.New("User ID is required")

type Service struct {
	DB *gorm.DB
}

// GetUserListingEvents returns the audit trail of listings the user created or
// deleted, oldest first.
func (s *Service) GetUserListingEvents(ctx context.Context, userID uuid.UUID) ([]domain.ListingEvent, error) {
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	var events []domain.ListingEvent
	if err := s.DB.WithContext(ctx).Where("actor_user_id = ?", userID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// GetListingHistory returns every event recorded for one listing, oldest
// first. Events remain after the listing is deleted.
func (s *Service) GetListingHistory(ctx context.Context, listingID uuid.UUID) ([]domain.ListingEvent, error) {
	var events []domain.ListingEvent
	if err := s.DB.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
