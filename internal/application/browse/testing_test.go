package browse

import (
	"fmt"
	"time"

	"marketplace-backend/internal/application/search"
	"marketplace-backend/internal/domain"

	"github.com/google/uuid"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func listing(title string, price float64, category string, age time.Duration) domain.Listing {
	return domain.Listing{
		ID:        uuid.New(),
		Title:     title,
		Price:     price,
		Category:  category,
		Location:  "Austin",
		CreatedAt: baseTime.Add(-age),
	}
}

func manyListings(n int) []domain.Listing {
	out := make([]domain.Listing, n)
	for i := range out {
		out[i] = listing(fmt.Sprintf("Item %02d", i), float64(i), "Home Goods", time.Duration(i)*time.Hour)
	}
	return out
}

func wrap(ls ...domain.Listing) []search.Result[domain.Listing] {
	out := make([]search.Result[domain.Listing], len(ls))
	for i, l := range ls {
		out[i] = search.Result[domain.Listing]{Item: l}
	}
	return out
}

func titles(rs []search.Result[domain.Listing]) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Item.Title
	}
	return out
}

func itemTitles(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}
