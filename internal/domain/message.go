package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a buyer's note to a seller about a listing. The listing title and
// price are snapshotted at send time. Only ReadBySeller ever changes.
type Message struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ListingID    uuid.UUID `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	SellerID     uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index" json:"seller_id"`
	SellerEmail  string    `gorm:"column:seller_email;not null" json:"seller_email"`
	BuyerID      uuid.UUID `gorm:"column:buyer_id;type:uuid;not null" json:"buyer_id"`
	BuyerEmail   string    `gorm:"column:buyer_email;not null" json:"buyer_email"`
	BuyerName    string    `gorm:"column:buyer_name;not null" json:"buyer_name"`
	Message      string    `gorm:"column:message;type:text;not null" json:"message"`
	ListingTitle string    `gorm:"column:listing_title;not null" json:"listing_title"`
	ListingPrice float64   `gorm:"column:listing_price;type:decimal(12,2);not null" json:"listing_price"`
	ReadBySeller bool      `gorm:"column:read_by_seller;not null;default:false" json:"read_by_seller"`
	CreatedAt    time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
