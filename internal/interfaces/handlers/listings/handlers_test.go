package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"marketplace-backend/internal/application/browse"
	"marketplace-backend/internal/application/changefeed"
	listsvc "marketplace-backend/internal/application/listings"
	"marketplace-backend/internal/application/search"
	"marketplace-backend/internal/application/uploads"
	"marketplace-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupListingsTest(t *testing.T) (*Handlers, *gorm.DB, *search.MemoryHistory) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Listing{}, &domain.ListingEvent{}))
	p := browse.NewPipeline(search.DefaultThreshold)
	t.Cleanup(func() { _ = p.Search.Close() })
	history := search.NewMemoryHistory()
	svc := &listsvc.Service{
		DB:       db,
		Feed:     changefeed.NewMemoryFeed(),
		Uploads:  &uploads.Service{},
		Pipeline: p,
		History:  history,
	}
	return &Handlers{Service: svc}, db, history
}

// newApp mounts routes behind a fake session for user (uuid.Nil = signed out).
func newApp(h *Handlers, user uuid.UUID) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if user != uuid.Nil {
			c.Locals("user", map[string]interface{}{"user_id": user.String(), "email": "owner@example.com"})
		}
		return c.Next()
	})
	app.Get("/listings", h.Browse)
	app.Get("/listings/categories", h.Categories)
	app.Get("/listings/suggestions", h.Suggestions)
	app.Get("/listings/mine", h.Mine)
	app.Get("/listings/:id", h.GetListing)
	app.Post("/listings", h.CreateListing)
	app.Delete("/listings/:id", h.DeleteListing)
	return app
}

func seed(t *testing.T, db *gorm.DB, owner uuid.UUID, title string, price float64, category string, created time.Time) domain.Listing {
	t.Helper()
	l := domain.Listing{
		Title: title, Description: title + " for sale", Price: price, Category: category,
		Location: "Portland", UserID: owner, UserEmail: "owner@example.com", CreatedAt: created,
	}
	require.NoError(t, db.Create(&l).Error)
	return l
}

func decode(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestBrowse_PaginatesAndReportsStats(t *testing.T) {
	h, db, _ := setupListingsTest(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		seed(t, db, uuid.New(), fmt.Sprintf("Item %02d", i), float64(i), "Home Goods", base.Add(time.Duration(i)*time.Hour))
	}
	app := newApp(h, uuid.Nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/listings?page=2", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	data := decode(t, resp.Body)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(t, items, 5)
	pg := data["pagination"].(map[string]interface{})
	assert.Equal(t, 2.0, pg["current_page"])
	assert.Equal(t, 2.0, pg["total_pages"])
	assert.Equal(t, 21.0, pg["start_index"])
	assert.Equal(t, 25.0, pg["end_index"])
	stats := data["stats"].(map[string]interface{})
	assert.Equal(t, 25.0, stats["total"])
	assert.NotEmpty(t, data["result_key"])
}

func TestBrowse_FiltersAndCategories(t *testing.T) {
	h, db, _ := setupListingsTest(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, db, uuid.New(), "Desk Lamp", 40, "Home Goods", base)
	seed(t, db, uuid.New(), "Bookshelf", 75, "Home Goods", base)
	seed(t, db, uuid.New(), "Guitar", 90, "Musical Instruments", base)
	seed(t, db, uuid.New(), "Sofa", 300, "Home Goods", base)
	app := newApp(h, uuid.Nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/listings?min_price=50&max_price=100&sort=price-low", nil))
	require.NoError(t, err)
	data := decode(t, resp.Body)["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "Bookshelf", items[0].(map[string]interface{})["title"])
	assert.Equal(t, "Guitar", items[1].(map[string]interface{})["title"])

	resp, err = app.Test(httptest.NewRequest("GET", "/listings?categories=Musical%20Instruments,Home%20Goods&max_price=bogus", nil))
	require.NoError(t, err)
	data = decode(t, resp.Body)["data"].(map[string]interface{})
	assert.Len(t, data["items"].([]interface{}), 4)

	resp, err = app.Test(httptest.NewRequest("GET", "/listings?category=Musical%20Instruments", nil))
	require.NoError(t, err)
	data = decode(t, resp.Body)["data"].(map[string]interface{})
	assert.Len(t, data["items"].([]interface{}), 1)
	assert.Equal(t, 1.0, data["stats"].(map[string]interface{})["total"])
}

func TestBrowse_RecordsHistoryForSignedInUser(t *testing.T) {
	h, db, history := setupListingsTest(t)
	seed(t, db, uuid.New(), "Desk Lamp", 40, "Home Goods", time.Now())
	user := uuid.New()

	resp, err := newApp(h, user).Test(httptest.NewRequest("GET", "/listings?q=lamp", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	entries, err := history.Get(context.Background(), user.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"lamp"}, entries)

	_, err = newApp(h, uuid.Nil).Test(httptest.NewRequest("GET", "/listings?q=chair", nil))
	require.NoError(t, err)
	entries, _ = history.Get(context.Background(), user.String())
	assert.Equal(t, []string{"lamp"}, entries)
}

func TestCategories(t *testing.T) {
	h, _, _ := setupListingsTest(t)
	resp, err := newApp(h, uuid.Nil).Test(httptest.NewRequest("GET", "/listings/categories", nil))
	require.NoError(t, err)
	data := decode(t, resp.Body)["data"].(map[string]interface{})
	assert.Equal(t, "All", data["all"])
	assert.Len(t, data["categories"].([]interface{}), len(domain.Categories))
}

func TestSuggestions(t *testing.T) {
	h, db, _ := setupListingsTest(t)
	seed(t, db, uuid.New(), "Garden Hose", 15, "Garden & Outdoor", time.Now())
	resp, err := newApp(h, uuid.Nil).Test(httptest.NewRequest("GET", "/listings/suggestions?q=gard", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	data := decode(t, resp.Body)["data"].(map[string]interface{})
	assert.NotEmpty(t, data["suggestions"])
}

func TestGetListing(t *testing.T) {
	h, db, _ := setupListingsTest(t)
	l := seed(t, db, uuid.New(), "Desk Lamp", 40, "Home Goods", time.Now())
	app := newApp(h, uuid.Nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/listings/"+l.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/listings/"+uuid.New().String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/listings/not-a-uuid", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestMine_RequiresSession(t *testing.T) {
	h, db, _ := setupListingsTest(t)
	owner := uuid.New()
	seed(t, db, owner, "Desk Lamp", 40, "Home Goods", time.Now())
	seed(t, db, uuid.New(), "Other", 10, "Home Goods", time.Now())

	resp, err := newApp(h, uuid.Nil).Test(httptest.NewRequest("GET", "/listings/mine", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	resp, err = newApp(h, owner).Test(httptest.NewRequest("GET", "/listings/mine", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Len(t, decode(t, resp.Body)["data"].([]interface{}), 1)
}

func TestCreateListing_Validation(t *testing.T) {
	h, _, _ := setupListingsTest(t)
	app := newApp(h, uuid.New())

	body, _ := json.Marshal(map[string]interface{}{
		"title": "Desk Lamp", "description": "Brass", "price": -5, "category": "Home Goods", "location": "Austin",
	})
	req := httptest.NewRequest("POST", "/listings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	out := decode(t, resp.Body)
	assert.Contains(t, out["error"].(map[string]interface{})["message"], "price")

	body, _ = json.Marshal(map[string]interface{}{
		"title": "Desk Lamp", "description": "Brass", "price": 5, "category": "Spaceships", "location": "Austin",
	})
	req = httptest.NewRequest("POST", "/listings", bytes.NewReader(body))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreateListing_Success(t *testing.T) {
	h, db, _ := setupListingsTest(t)
	owner := uuid.New()
	app := newApp(h, owner)

	body, _ := json.Marshal(map[string]interface{}{
		"title": "Desk Lamp", "description": "Brass", "price": 25, "category": "Home Goods", "location": "Austin",
	})
	req := httptest.NewRequest("POST", "/listings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var l domain.Listing
	require.NoError(t, db.First(&l).Error)
	assert.Equal(t, owner, l.UserID)
	assert.Equal(t, "owner@example.com", l.UserEmail)
}

func TestCreateListing_BadImage(t *testing.T) {
	h, _, _ := setupListingsTest(t)
	body, _ := json.Marshal(map[string]interface{}{
		"title": "Desk Lamp", "description": "Brass", "price": 25, "category": "Home Goods", "location": "Austin",
		"image": "not a data url",
	})
	req := httptest.NewRequest("POST", "/listings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := newApp(h, uuid.New()).Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDeleteListing(t *testing.T) {
	h, db, _ := setupListingsTest(t)
	owner := uuid.New()
	l := seed(t, db, owner, "Desk Lamp", 40, "Home Goods", time.Now())

	resp, err := newApp(h, uuid.New()).Test(httptest.NewRequest("DELETE", "/listings/"+l.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	resp, err = newApp(h, owner).Test(httptest.NewRequest("DELETE", "/listings/"+l.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = newApp(h, owner).Test(httptest.NewRequest("DELETE", "/listings/"+l.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
