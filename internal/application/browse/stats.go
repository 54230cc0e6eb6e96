package browse

import "math"

// Stats summarizes how much of the collection the current filters keep.
type Stats struct {
	Total            int  `json:"total"`
	Filtered         int  `json:"filtered"`
	HasActiveFilters bool `json:"has_active_filters"`
	FilterPercentage int  `json:"filter_percentage"`
}

// ComputeStats builds Stats. total is the size of the collection before search
// and filters; filtered is clamped to it.
func ComputeStats(total, filtered int, filters Filters, query string) Stats {
	if filtered > total {
		filtered = total
	}
	s := Stats{
		Total:            total,
		Filtered:         filtered,
		HasActiveFilters: filters.Active() || hasQuery(query),
	}
	if total > 0 {
		s.FilterPercentage = int(math.Round(100 * float64(filtered) / float64(total)))
	}
	return s
}
