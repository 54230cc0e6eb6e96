// Package messages handles buyer-to-seller messages: sending, the seller's
// inbox, read receipts and unread counts.
package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"marketplace-backend/internal/application/changefeed"
	"marketplace-backend/internal/application/emails"
	"marketplace-backend/internal/domain"
	"marketplace-backend/internal/pkg/validation"
	"marketplace-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// DefaultNotifyTimeout bounds the background seller notification.
const DefaultNotifyTimeout = 15 * time.Second

var (
	ErrFieldsRequired  = errors.New("Please fill in all fields")
	ErrInvalidEmail    = errors.New("Invalid Email")
	ErrListingNotFound = errors.New("Listing not found")
	ErrMessageNotFound = errors.New("Message not found")
)

// Notifier tells a seller about a new message.
type Notifier interface {
	Notify(ctx context.Context, msg emails.NewMessage) error
}

type Service struct {
	DB       *gorm.DB
	Feed     changefeed.Feed
	Notifier Notifier
	Metrics  *metrics.Metrics
	// NotifyTimeout defaults to DefaultNotifyTimeout.
	NotifyTimeout time.Duration

	pending sync.WaitGroup
}

type SendInput struct {
	ListingID  uuid.UUID
	BuyerID    uuid.UUID
	BuyerEmail string
	BuyerName  string
	Message    string
}

// Send stores a message to the listing's seller, snapshotting the listing's
// title and price. The seller is notified in the background; a failed
// notification does not fail the send.
func (s *Service) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	in.Message = strings.TrimSpace(in.Message)
	in.BuyerName = strings.TrimSpace(in.BuyerName)
	in.BuyerEmail = strings.TrimSpace(in.BuyerEmail)
	if in.Message == "" || in.BuyerName == "" || in.BuyerEmail == "" {
		return nil, ErrFieldsRequired
	}
	if !validation.IsValidEmail(in.BuyerEmail) {
		return nil, ErrInvalidEmail
	}

	var listing domain.Listing
	if err := s.DB.WithContext(ctx).Where("id = ?", in.ListingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, err
	}

	msg := &domain.Message{
		ListingID:    listing.ID,
		SellerID:     listing.UserID,
		SellerEmail:  listing.UserEmail,
		BuyerID:      in.BuyerID,
		BuyerEmail:   in.BuyerEmail,
		BuyerName:    validation.DisplayName(in.BuyerName, in.BuyerEmail),
		Message:      in.Message,
		ListingTitle: listing.Title,
		ListingPrice: listing.Price,
	}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("Failed to send message: %w", err)
	}

	s.Metrics.MessageSent()
	s.publish(ctx, changefeed.Insert, msg, nil)
	s.notify(ctx, msg)
	return msg, nil
}

func (s *Service) notify(ctx context.Context, msg *domain.Message) {
	if s.Notifier == nil {
		return
	}
	timeout := s.NotifyTimeout
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	n := emails.NewMessage{
		SellerEmail:  msg.SellerEmail,
		BuyerEmail:   msg.BuyerEmail,
		BuyerName:    msg.BuyerName,
		Message:      msg.Message,
		ListingTitle: msg.ListingTitle,
		ListingPrice: emails.FormatPrice(msg.ListingPrice),
		ListingID:    msg.ListingID.String(),
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		if err := s.Notifier.Notify(nctx, n); err != nil {
			s.Metrics.NotificationFailed()
			log.Warn().Err(err).Str("message_id", msg.ID.String()).Msg("messages: seller notification failed")
		}
	}()
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// ListBySeller returns the seller's inbox, newest first.
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := s.DB.WithContext(ctx).Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead sets read_by_seller on one of the seller's messages. Marking an
// already read message is a no-op and publishes nothing.
func (s *Service) MarkRead(ctx context.Context, id, sellerID uuid.UUID) (*domain.Message, error) {
	var msg domain.Message
	err := s.DB.WithContext(ctx).Where("id = ? AND seller_id = ?", id, sellerID).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if msg.ReadBySeller {
		return &msg, nil
	}

	res := s.DB.WithContext(ctx).Model(&domain.Message{}).
		Where("id = ? AND read_by_seller = ?", id, false).
		Update("read_by_seller", true)
	if res.Error != nil {
		return nil, fmt.Errorf("Failed to update message: %w", res.Error)
	}
	old := msg
	msg.ReadBySeller = true
	// a concurrent request won the transition
	if res.RowsAffected == 0 {
		return &msg, nil
	}
	s.publish(ctx, changefeed.Update, &msg, &old)
	return &msg, nil
}

// CountUnread is the authoritative unread count for a seller.
func (s *Service) CountUnread(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&domain.Message{}).
		Where("seller_id = ? AND read_by_seller = ?", sellerID, false).
		Count(&n).Error
	return n, err
}

func (s *Service) publish(ctx context.Context, typ changefeed.EventType, newRow, oldRow *domain.Message) {
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
	ev, err := changefeed.NewEvent(domain.Message{}.TableName(), typ, n, o)
	if err == nil {
		err = s.Feed.Publish(ctx, ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("type", string(typ)).Msg("messages: change feed publish failed")
	}
}
