package browse

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Ellipsis marks a gap in PageNumbers.
	Ellipsis = 0

	maxVisiblePages = 7
)

// Page describes the current page of a result set. StartIndex and EndIndex
// are 1-based positions for "Showing X to Y of Z"; both are 0 when there are
// no items.
type Page struct {
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int   `json:"total_items"`
	StartIndex  int   `json:"start_index"`
	EndIndex    int   `json:"end_index"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
	PageNumbers []int `json:"page_numbers"`
}

// NormalizePageSize maps out-of-range sizes to the default or the maximum.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// TotalPages is ceil(count/size), never less than 1.
func TotalPages(count, size int) int {
	size = NormalizePageSize(size)
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// ClampPage forces page into [1, total].
func ClampPage(page, total int) int {
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Paginate returns the slice of items on page (clamped) and its description.
func Paginate[T any](items []T, page, size int) ([]T, Page) {
	size = NormalizePageSize(size)
	count := len(items)
	total := TotalPages(count, size)
	page = ClampPage(page, total)

	p := Page{
		CurrentPage: page,
		PageSize:    size,
		TotalPages:  total,
		TotalItems:  count,
		HasNext:     page < total,
		HasPrevious: page > 1,
		PageNumbers: PageNumbers(page, total),
	}
	if count == 0 {
		return []T{}, p
	}
	start := (page - 1) * size
	end := min(start+size, count)
	p.StartIndex = start + 1
	p.EndIndex = end
	return items[start:end], p
}

// PageNumbers lists the page links to show. Up to seven pages are listed in
// full; beyond that the first and last pages are always shown with a window of
// two pages either side of current, and Ellipsis where pages are skipped.
func PageNumbers(current, total int) []int {
	if total <= maxVisiblePages {
		out := make([]int, 0, total)
		for i := 1; i <= total; i++ {
			out = append(out, i)
		}
		return out
	}
	out := []int{1}
	start := max(2, current-2)
	end := min(total-1, current+2)
	if start > 2 {
		out = append(out, Ellipsis)
	}
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	if end < total-1 {
		out = append(out, Ellipsis)
	}
	return append(out, total)
}
