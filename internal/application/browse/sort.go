package browse

import (
	"cmp"
	"slices"

	"marketplace-backend/internal/application/search"
	"marketplace-backend/internal/domain"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortTitle     SortKey = "title"
	SortLocation  SortKey = "location"
	SortRelevance SortKey = "relevance"
)

// SortKeys lists the supported keys in the order they are offered.
var SortKeys = []SortKey{SortNewest, SortOldest, SortPriceLow, SortPriceHigh, SortTitle, SortLocation, SortRelevance}

// ParseSortKey returns the key named s, or SortNewest for anything unknown.
func ParseSortKey(s string) SortKey {
	for _, k := range SortKeys {
		if string(k) == s {
			return k
		}
	}
	return SortNewest
}

// Sort orders items in place. The sort is stable. Title and location use
// locale-aware collation for tag. Relevance orders by ascending score when a
// query is active and falls back to newest first otherwise.
func Sort(items []search.Result[domain.Listing], key SortKey, queryActive bool, tag language.Tag) {
	if key == SortRelevance && !queryActive {
		key = SortNewest
	}
	var compare func(a, b search.Result[domain.Listing]) int
	switch key {
	case SortOldest:
		compare = func(a, b search.Result[domain.Listing]) int { return a.Item.CreatedAt.Compare(b.Item.CreatedAt) }
	case SortPriceLow:
		compare = func(a, b search.Result[domain.Listing]) int { return cmp.Compare(a.Item.Price, b.Item.Price) }
	case SortPriceHigh:
		compare = func(a, b search.Result[domain.Listing]) int { return cmp.Compare(b.Item.Price, a.Item.Price) }
	case SortTitle:
		c := collate.New(tag)
		compare = func(a, b search.Result[domain.Listing]) int { return c.CompareString(a.Item.Title, b.Item.Title) }
	case SortLocation:
		c := collate.New(tag)
		compare = func(a, b search.Result[domain.Listing]) int { return c.CompareString(a.Item.Location, b.Item.Location) }
	case SortRelevance:
		compare = func(a, b search.Result[domain.Listing]) int { return cmp.Compare(score(a), score(b)) }
	default:
		compare = func(a, b search.Result[domain.Listing]) int { return b.Item.CreatedAt.Compare(a.Item.CreatedAt) }
	}
	slices.SortStableFunc(items, compare)
}

func score(r search.Result[domain.Listing]) float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}
