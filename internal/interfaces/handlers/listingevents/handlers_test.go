package listingevents

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	lesvc "marketplace-backend/internal/application/listingevents"
	"marketplace-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupLETest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ListingEvent{}))
	return &Handlers{Service: &lesvc.Service{DB: db}}, db
}

func newApp(h *Handlers, user uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != uuid.Nil {
			c.Locals("user", map[string]interface{}{"user_id": user.String(), "email": "u@example.com"})
		}
		return c.Next()
	})
	app.Get("/listing-events", h.GetListingEvents)
	return app
}

func seedEvent(t *testing.T, db *gorm.DB, listingID, actor uuid.UUID, typ string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&domain.ListingEvent{
		ListingID:   listingID,
		EventType:   typ,
		EventData:   datatypes.JSON(`{"title":"Lamp"}`),
		ActorUserID: &actor,
		CreatedAt:   at,
	}).Error)
}

func fetch(t *testing.T, app *fiber.App, path string) (int, []interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	data, _ := body["data"].([]interface{})
	return resp.StatusCode, data
}

func TestGetListingEvents_Unauthenticated(t *testing.T) {
	h, _ := setupLETest(t)
	status, _ := fetch(t, newApp(h, uuid.Nil), "/listing-events")
	assert.Equal(t, 401, status)
}

func TestGetListingEvents_OnlyCallersOldestFirst(t *testing.T) {
	h, db := setupLETest(t)
	me, other := uuid.New(), uuid.New()
	listing := uuid.New()
	base := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
	seedEvent(t, db, listing, me, domain.ListingEventDeleted, base.Add(time.Hour))
	seedEvent(t, db, listing, me, domain.ListingEventCreated, base)
	seedEvent(t, db, uuid.New(), other, domain.ListingEventCreated, base)

	status, events := fetch(t, newApp(h, me), "/listing-events")
	require.Equal(t, 200, status)
	require.Len(t, events, 2)
	assert.Equal(t, domain.ListingEventCreated, events[0].(map[string]interface{})["event_type"])
	assert.Equal(t, domain.ListingEventDeleted, events[1].(map[string]interface{})["event_type"])

	status, events = fetch(t, newApp(h, other), "/listing-events?listing_id="+listing.String())
	require.Equal(t, 200, status)
	assert.Empty(t, events)

	status, events = fetch(t, newApp(h, me), "/listing-events?listing_id="+listing.String())
	require.Equal(t, 200, status)
	assert.Len(t, events, 2)

	status, _ = fetch(t, newApp(h, me), "/listing-events?listing_id=nope")
	assert.Equal(t, 400, status)
}
