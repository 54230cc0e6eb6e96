package browse

import (
	"testing"
	"time"

	"marketplace-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleListings() []domain.Listing {
	lamp := listing("Desk Lamp", 25, "Home Goods", time.Hour)
	lamp.Description = "Adjustable LED lamp, barely used"
	hose := listing("Garden Hose", 15, "Garden & Outdoor", 2*time.Hour)
	hose.Description = "Fifty feet, no leaks"
	bike := listing("Mountain Bike", 320, "Hobbies", 3*time.Hour)
	bike.Description = "Aluminium frame"
	return []domain.Listing{lamp, hose, bike}
}

func TestPipeline_SearchMatches(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()

	out, err := p.Run(sampleListings(), Query{Text: "lamp", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk Lamp"}, itemTitles(out.Items))
	require.NotNil(t, out.Items[0].Score)
	assert.NotEmpty(t, out.Items[0].Matches)
	assert.Equal(t, 3, out.Stats.Total)
	assert.Equal(t, 1, out.Stats.Filtered)
	assert.True(t, out.Stats.HasActiveFilters)
}

func TestPipeline_EmptyQueryReturnsEverything(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()

	out, err := p.Run(sampleListings(), Query{Text: "   "})
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk Lamp", "Garden Hose", "Mountain Bike"}, itemTitles(out.Items))
	assert.Nil(t, out.Items[0].Score)
	assert.False(t, out.Stats.HasActiveFilters)
	assert.Equal(t, 100, out.Stats.FilterPercentage)
	assert.Equal(t, []string{}, out.Suggestions)
}

func TestPipeline_CategoryRestrictsTotal(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()

	out, err := p.Run(sampleListings(), Query{Category: "Hobbies"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mountain Bike"}, itemTitles(out.Items))
	assert.Equal(t, 1, out.Stats.Total)

	out, err = p.Run(sampleListings(), Query{Category: domain.CategoryAll})
	require.NoError(t, err)
	assert.Len(t, out.Items, 3)
}

func TestPipeline_FiltersAndSort(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()

	f := ParseFilters(RawFilters{MinPrice: "10", MaxPrice: "100", Sort: "price-high"})
	out, err := p.Run(sampleListings(), Query{Filters: f})
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk Lamp", "Garden Hose"}, itemTitles(out.Items))
	assert.Equal(t, 67, out.Stats.FilterPercentage)
}

func TestPipeline_NoMatches(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()

	out, err := p.Run(sampleListings(), Query{Text: "xylophone", Page: 4})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, 1, out.Pagination.CurrentPage)
	assert.Equal(t, 1, out.Pagination.TotalPages)
	assert.Equal(t, 0, out.Pagination.StartIndex)
	assert.Equal(t, 0, out.Pagination.EndIndex)
}

func TestPipeline_ResultKeyResetsPage(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()
	all := manyListings(25)

	out, err := p.Run(all, Query{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Pagination.CurrentPage)
	assert.Len(t, out.Items, 5)

	same, err := p.Run(all, Query{Page: 2, PageSize: 20, ResultKey: out.ResultKey})
	require.NoError(t, err)
	assert.Equal(t, 2, same.Pagination.CurrentPage)

	changed, err := p.Run(all[:24], Query{Page: 2, PageSize: 20, ResultKey: out.ResultKey})
	require.NoError(t, err)
	assert.NotEqual(t, out.ResultKey, changed.ResultKey)
	assert.Equal(t, 1, changed.Pagination.CurrentPage)
}

func TestResultKey_OrderSensitive(t *testing.T) {
	a := listing("a", 1, "Hobbies", 0)
	b := listing("b", 1, "Hobbies", 0)
	assert.NotEqual(t, ResultKey(wrap(a, b)), ResultKey(wrap(b, a)))
	assert.Equal(t, ResultKey(wrap(a, b)), ResultKey(wrap(a, b)))
}

func TestPipeline_CategorySwitchReusesIndex(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()
	builds := 0
	p.Search.OnBuild = func() { builds++ }

	all := sampleListings()
	for i := 0; i < 10; i++ {
		category := "Home Goods"
		if i%2 == 1 {
			category = "Hobbies"
		}
		out, err := p.Run(all, Query{Category: category, Text: "lamp"})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Stats.Total)
		for _, it := range out.Items {
			assert.Equal(t, category, it.Category)
		}
	}
	_, err := p.Search.Search(all, "bike")
	require.NoError(t, err)
	assert.Equal(t, 1, builds)
}

func TestPipeline_CategoryAppliesToSearchHits(t *testing.T) {
	p := NewPipeline(0.3)
	defer p.Search.Close()

	out, err := p.Run(sampleListings(), Query{Category: "Hobbies", Text: "lamp"})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, 1, out.Stats.Total)
	assert.Equal(t, 0, out.Stats.Filtered)
	assert.Empty(t, out.Suggestions)

	out, err = p.Run(sampleListings(), Query{Category: "Home Goods", Text: "lamp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk Lamp"}, itemTitles(out.Items))
}
