package contracts

import (
	"encoding/json"
	"testing"

	"marketplace-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listingBody(t *testing.T, overrides map[string]interface{}) []byte {
	t.Helper()
	m := map[string]interface{}{
		"title":       "Desk Lamp",
		"description": "Adjustable LED lamp",
		"price":       25,
		"category":    "Home Goods",
		"location":    "Austin",
	}
	for k, v := range overrides {
		if v == nil {
			delete(m, k)
			continue
		}
		m[k] = v
	}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestValidate_ListingCreate(t *testing.T) {
	assert.NoError(t, Validate(ListingCreate, listingBody(t, nil)))
	assert.NoError(t, Validate(ListingCreate, listingBody(t, map[string]interface{}{"image": "data:image/png;base64,AAAA"})))

	err := Validate(ListingCreate, listingBody(t, map[string]interface{}{"title": nil}))
	require.Error(t, err)

	err = Validate(ListingCreate, listingBody(t, map[string]interface{}{"price": -1}))
	require.Error(t, err)
	assert.Contains(t, Message(err), "price")

	err = Validate(ListingCreate, listingBody(t, map[string]interface{}{"category": "Spaceships"}))
	require.Error(t, err)
	assert.Contains(t, Message(err), "category")

	err = Validate(ListingCreate, listingBody(t, map[string]interface{}{"title": "   "}))
	assert.Error(t, err)

	err = Validate(ListingCreate, listingBody(t, map[string]interface{}{"owner": "me"}))
	assert.Error(t, err)
}

func TestValidate_CategoriesMatchDomain(t *testing.T) {
	for _, c := range domain.Categories {
		assert.NoError(t, Validate(ListingCreate, listingBody(t, map[string]interface{}{"category": c})), c)
	}
}

func TestValidate_InvalidJSON(t *testing.T) {
	assert.Equal(t, ErrInvalidJSON, Validate(MessageSend, []byte("{")))
}

func TestValidate_UnknownSchema(t *testing.T) {
	assert.Error(t, Validate("nope", []byte("{}")))
}

func TestValidate_SendMessageEmail(t *testing.T) {
	assert.NoError(t, Validate(SendMessageEmail, []byte(`{"sellerEmail":"a@b.com","listingPrice":25}`)))
	assert.NoError(t, Validate(SendMessageEmail, []byte(`{"listingPrice":"25"}`)))
	assert.Error(t, Validate(SendMessageEmail, []byte(`{"message":42}`)))
}
