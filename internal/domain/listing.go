package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Listing is an item offered for sale. Listings are immutable after creation;
// only the owner may delete one.
type Listing struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;type:text;not null" json:"description"`
	Price       float64   `gorm:"column:price;type:decimal(12,2);not null;default:0" json:"price"`
	Category    string    `gorm:"column:category;not null;index" json:"category"`
	Location    string    `gorm:"column:location;not null" json:"location"`
	ImageURL    *string   `gorm:"column:image_url" json:"image_url"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	UserEmail   string    `gorm:"column:user_email;not null" json:"user_email"`
	CreatedAt   time.Time `gorm:"column:created_at;index" json:"created_at"`
}

func (Listing) TableName() string {
	return "listings"
}

// BeforeCreate sets id if not already set (DBs without default uuid).
func (l *Listing) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Searchable listing fields, in index order.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldLocation    = "location"
	FieldCategory    = "category"
)

// SearchFields is the fixed list of text fields the listing search covers.
var SearchFields = []string{FieldTitle, FieldDescription, FieldLocation, FieldCategory}

// SearchID identifies the listing in the search index.
func (l Listing) SearchID() string {
	return l.ID.String()
}

// SearchField returns the text of one searchable field.
func (l Listing) SearchField(name string) string {
	switch name {
	case FieldTitle:
		return l.Title
	case FieldDescription:
		return l.Description
	case FieldLocation:
		return l.Location
	case FieldCategory:
		return l.Category
	}
	return ""
}
