package browse

import (
	"strconv"
	"strings"

	"marketplace-backend/internal/application/search"
	"marketplace-backend/internal/domain"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/language"
)

// Query is one browse request.
type Query struct {
	// Category restricts the results; "" or domain.CategoryAll means none.
	Category string
	Text     string
	Filters  Filters
	Page     int
	PageSize int
	// ResultKey is the key the client got with its previous page. When the
	// result set no longer has that key the page resets to 1.
	ResultKey string
}

// Item is a listing with its search annotations.
type Item struct {
	domain.Listing
	Score   *float64            `json:"score,omitempty"`
	Matches []search.FieldMatch `json:"matches,omitempty"`
}

// Output is everything the browse page renders.
type Output struct {
	Items       []Item   `json:"items"`
	Pagination  Page     `json:"pagination"`
	Stats       Stats    `json:"stats"`
	Suggestions []string `json:"suggestions"`
	ResultKey   string   `json:"result_key"`
}

// Pipeline runs category restriction, search, filter, sort, pagination and stats.
type Pipeline struct {
	Search   *search.Cache[domain.Listing]
	Language language.Tag
}

// NewPipeline builds a pipeline over the listing search fields.
func NewPipeline(threshold float64) *Pipeline {
	return &Pipeline{
		Search:   &search.Cache[domain.Listing]{Options: search.Options{Fields: domain.SearchFields, Threshold: threshold}},
		Language: language.English,
	}
}

// Run evaluates q against listings.
func (p *Pipeline) Run(listings []domain.Listing, q Query) (*Output, error) {
	// The index always covers the whole collection so that switching
	// category reuses it; the category is applied to the hits instead.
	all, err := p.Search.Search(listings, q.Text)
	if err != nil {
		return nil, err
	}
	total := len(RestrictCategory(listings, q.Category))
	results := all
	if restricting(q.Category) {
		results = all[:0:0]
		for _, r := range all {
			if r.Item.Category == q.Category {
				results = append(results, r)
			}
		}
	}
	suggestions := search.Suggest(results, q.Text, search.MaxSuggestions)

	filtered := results[:0:0]
	for _, r := range results {
		if q.Filters.Match(r.Item) {
			filtered = append(filtered, r)
		}
	}
	Sort(filtered, q.Filters.Sort, hasQuery(q.Text), p.Language)

	key := ResultKey(filtered)
	page := q.Page
	if q.ResultKey != "" && q.ResultKey != key {
		page = 1
	}
	pageResults, pg := Paginate(filtered, page, q.PageSize)

	items := make([]Item, len(pageResults))
	for i, r := range pageResults {
		items[i] = Item{Listing: r.Item, Score: r.Score, Matches: r.Matches}
	}
	return &Output{
		Items:       items,
		Pagination:  pg,
		Stats:       ComputeStats(total, len(filtered), q.Filters, q.Text),
		Suggestions: suggestions,
		ResultKey:   key,
	}, nil
}

// RestrictCategory keeps listings in category. "" and domain.CategoryAll keep everything.
func RestrictCategory(listings []domain.Listing, category string) []domain.Listing {
	if !restricting(category) {
		return listings
	}
	out := make([]domain.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Category == category {
			out = append(out, l)
		}
	}
	return out
}

// ResultKey identifies an ordered result set. Any change in membership or
// order yields a different key.
func ResultKey(results []search.Result[domain.Listing]) string {
	h := xxhash.New()
	for _, r := range results {
		_, _ = h.WriteString(r.Item.ID.String())
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

func restricting(category string) bool {
	return category != "" && category != domain.CategoryAll
}

func hasQuery(q string) bool {
	return strings.TrimSpace(q) != ""
}
