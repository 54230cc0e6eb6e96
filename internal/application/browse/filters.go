// Package browse turns search results into the page a buyer sees: filter,
// sort, paginate and summarize.
package browse

import (
	"math"
	"strconv"
	"strings"
	"time"

	"marketplace-backend/internal/domain"
)

const dateLayout = "2006-01-02"

// RawFilters are filter inputs exactly as received, before parsing.
type RawFilters struct {
	MinPrice   string
	MaxPrice   string
	Categories []string
	DateFrom   string
	DateTo     string
	Sort       string
}

// Filters are parsed filter criteria. A nil bound means "no restriction".
type Filters struct {
	MinPrice   *float64
	MaxPrice   *float64
	Categories []string
	DateFrom   *time.Time
	DateTo     *time.Time
	Sort       SortKey
}

// ParseFilters parses raw inputs. Unparseable, NaN or infinite numbers and
// unparseable dates are treated as unset. DateTo is extended to the last
// instant of its day so the whole day is included.
func ParseFilters(raw RawFilters) Filters {
	f := Filters{
		MinPrice: parseNumber(raw.MinPrice),
		MaxPrice: parseNumber(raw.MaxPrice),
		DateFrom: parseDate(raw.DateFrom, false),
		DateTo:   parseDate(raw.DateTo, true),
		Sort:     ParseSortKey(raw.Sort),
	}
	for _, c := range raw.Categories {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.Categories = append(f.Categories, part)
			}
		}
	}
	return f
}

func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseDate(s string, endOfDay bool) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	dateOnly := err == nil
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return nil
		}
	}
	if endOfDay {
		y, m, d := t.Date()
		t = time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
	} else if dateOnly {
		t = t.UTC()
	}
	return &t
}

// Active reports whether any restricting filter is set. Sort order does not count.
func (f Filters) Active() bool {
	return len(f.Categories) > 0 || f.MinPrice != nil || f.MaxPrice != nil || f.DateFrom != nil || f.DateTo != nil
}

// Match reports whether l passes every set filter. Bounds are inclusive.
func (f Filters) Match(l domain.Listing) bool {
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, l.Category) {
		return false
	}
	if f.DateFrom != nil && l.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && l.CreatedAt.After(*f.DateTo) {
		return false
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
