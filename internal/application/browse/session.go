package browse

import (
	"sync"

	"marketplace-backend/internal/domain"
)

// Session holds one viewer's browse state across interactions. Changing the
// data, category, query or filters recomputes the results and returns to
// page 1. Session is safe for concurrent use.
type Session struct {
	pipeline *Pipeline

	mu       sync.Mutex
	listings []domain.Listing
	query    Query
	out      *Output
}

// NewSession starts a session on page 1 of listings.
func NewSession(p *Pipeline, listings []domain.Listing, pageSize int) (*Session, error) {
	s := &Session{
		pipeline: p,
		listings: listings,
		query:    Query{Page: 1, PageSize: NormalizePageSize(pageSize)},
	}
	if err := s.recompute(); err != nil {
		return nil, err
	}
	return s, nil
}

// recompute reruns the pipeline. The previous result key is passed so a
// changed result set lands on page 1. Caller holds mu (or owns s).
func (s *Session) recompute() error {
	q := s.query
	if s.out != nil {
		q.ResultKey = s.out.ResultKey
	}
	out, err := s.pipeline.Run(s.listings, q)
	if err != nil {
		return err
	}
	s.out = out
	s.query.Page = out.Pagination.CurrentPage
	return nil
}

func (s *Session) update(fn func(*Session)) (*Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
	if err := s.recompute(); err != nil {
		return nil, err
	}
	return s.out, nil
}

// Current returns the latest output.
func (s *Session) Current() *Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out
}

// SetData replaces the underlying listing collection.
func (s *Session) SetData(listings []domain.Listing) (*Output, error) {
	return s.update(func(s *Session) { s.listings, s.query.Page = listings, 1 })
}

func (s *Session) SetCategory(category string) (*Output, error) {
	return s.update(func(s *Session) { s.query.Category, s.query.Page = category, 1 })
}

func (s *Session) SetQuery(text string) (*Output, error) {
	return s.update(func(s *Session) { s.query.Text, s.query.Page = text, 1 })
}

func (s *Session) SetFilters(f Filters) (*Output, error) {
	return s.update(func(s *Session) { s.query.Filters, s.query.Page = f, 1 })
}

// GoToPage moves to page, clamped into range.
func (s *Session) GoToPage(page int) (*Output, error) {
	return s.update(func(s *Session) { s.query.Page = page })
}

// Next is a no-op on the last page.
func (s *Session) Next() (*Output, error) {
	return s.update(func(s *Session) {
		if s.out.Pagination.HasNext {
			s.query.Page++
		}
	})
}

// Previous is a no-op on the first page.
func (s *Session) Previous() (*Output, error) {
	return s.update(func(s *Session) {
		if s.out.Pagination.HasPrevious {
			s.query.Page--
		}
	})
}
