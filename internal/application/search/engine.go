// Package search implements fuzzy full-text search over an in-memory
// collection using a per-collection bleve index.
package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	bsearch "github.com/blevesearch/bleve/v2/search"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/cespare/xxhash/v2"
)

const (
	analyzerName = "listing_text"

	// DefaultThreshold matches the tolerance the browse page has always used.
	DefaultThreshold = 0.3

	maxFuzziness = 2
)

var ErrNoFields = errors.New("search: at least one field is required")

// Document is anything the engine can index: a stable id plus named text fields.
type Document interface {
	SearchID() string
	SearchField(name string) string
}

// Options configure an Engine. Threshold is in [0,1]; lower is stricter and
// 0 allows exact and prefix matches only.
type Options struct {
	Fields    []string
	Threshold float64
}

// FieldMatch records which field matched, its full value and the indexed
// terms that were hit.
type FieldMatch struct {
	Field string   `json:"field"`
	Value string   `json:"value"`
	Terms []string `json:"terms"`
}

// Result is one search hit. Score is nil when no query was active; otherwise
// it is in [0,1] with 0 the best match.
type Result[T Document] struct {
	Item    T
	Score   *float64
	Matches []FieldMatch
}

// Engine is an immutable index over one collection snapshot.
type Engine[T Document] struct {
	opts        Options
	docs        []T
	byID        map[string]int
	idx         bleve.Index
	fingerprint uint64
}

// NewEngine indexes docs. Building over an empty collection is valid.
func NewEngine[T Document](docs []T, opts Options) (*Engine[T], error) {
	if len(opts.Fields) == 0 {
		return nil, ErrNoFields
	}
	opts.Threshold = math.Min(math.Max(opts.Threshold, 0), 1)

	im, err := buildIndexMapping(opts.Fields)
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}

	e := &Engine[T]{
		opts:        opts,
		docs:        docs,
		byID:        make(map[string]int, len(docs)),
		idx:         idx,
		fingerprint: Fingerprint(docs, opts.Fields),
	}
	batch := idx.NewBatch()
	for i, d := range docs {
		id := d.SearchID()
		e.byID[id] = i
		fields := make(map[string]any, len(opts.Fields))
		for _, f := range opts.Fields {
			fields[f] = d.SearchField(f)
		}
		if err := batch.Index(id, fields); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("search: index %s: %w", id, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("search: index batch: %w", err)
	}
	return e, nil
}

func buildIndexMapping(fields []string) (mapping.IndexMapping, error) {
	im := bleve.NewIndexMapping()
	// unicode tokenizer + lowercase, no stop words: "the" and "for" stay searchable
	if err := im.AddCustomAnalyzer(analyzerName, map[string]any{
		"type":          custom.Name,
		"tokenizer":     bleveunicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = analyzerName

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = false
	for _, f := range fields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = analyzerName
		fm.Store = false
		fm.IncludeTermVectors = true
		fm.IncludeInAll = false
		dm.AddFieldMappingsAt(f, fm)
	}
	im.DefaultMapping = dm
	return im, nil
}

// Len returns the number of indexed documents.
func (e *Engine[T]) Len() int { return len(e.docs) }

// Fingerprint identifies the snapshot the engine was built from.
func (e *Engine[T]) Fingerprint() uint64 { return e.fingerprint }

// Close releases the index.
func (e *Engine[T]) Close() error {
	return e.idx.Close()
}

// Search returns the documents matching query, best first. An empty or
// whitespace-only query returns every document in collection order, unscored.
func (e *Engine[T]) Search(query string) ([]Result[T], error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		out := make([]Result[T], len(e.docs))
		for i, d := range e.docs {
			out[i] = Result[T]{Item: d}
		}
		return out, nil
	}
	if len(e.docs) == 0 {
		return []Result[T]{}, nil
	}

	must := make([]bleveQuery.Query, 0, len(tokens))
	for _, tok := range tokens {
		must = append(must, e.tokenQuery(tok))
	}
	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(must...), len(e.docs), 0, false)
	req.IncludeLocations = true
	req.SortBy([]string{"-_score", "_id"})

	res, err := e.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var best float64
	for _, h := range res.Hits {
		best = math.Max(best, h.Score)
	}
	out := make([]Result[T], 0, len(res.Hits))
	for _, h := range res.Hits {
		i, ok := e.byID[h.ID]
		if !ok {
			continue
		}
		score := 0.0
		if best > 0 {
			score = math.Min(math.Max(1-h.Score/best, 0), 1)
		}
		out = append(out, Result[T]{
			Item:    e.docs[i],
			Score:   &score,
			Matches: e.matches(e.docs[i], h.Locations),
		})
	}
	return out, nil
}

// tokenQuery matches tok in any field, by edit distance or by prefix.
func (e *Engine[T]) tokenQuery(tok string) bleveQuery.Query {
	fuzz := e.Fuzziness(tok)
	n := utf8.RuneCountInString(tok)
	should := make([]bleveQuery.Query, 0, 2*len(e.opts.Fields))
	for _, f := range e.opts.Fields {
		mq := bleve.NewMatchQuery(tok)
		mq.SetField(f)
		mq.Analyzer = analyzerName
		if fuzz > 0 {
			mq.SetFuzziness(fuzz)
		}
		should = append(should, mq)
		if n >= 2 {
			pq := bleve.NewPrefixQuery(tok)
			pq.SetField(f)
			should = append(should, pq)
		}
	}
	return bleve.NewDisjunctionQuery(should...)
}

// Fuzziness is the edit distance tolerated for tok: threshold times its
// length, capped at 2.
func (e *Engine[T]) Fuzziness(tok string) int {
	d := int(e.opts.Threshold * float64(utf8.RuneCountInString(tok)))
	if d > maxFuzziness {
		d = maxFuzziness
	}
	return d
}

func (e *Engine[T]) matches(doc T, locs bsearch.FieldTermLocationMap) []FieldMatch {
	if len(locs) == 0 {
		return nil
	}
	var out []FieldMatch
	for _, f := range e.opts.Fields {
		terms, ok := locs[f]
		if !ok || len(terms) == 0 {
			continue
		}
		fm := FieldMatch{Field: f, Value: doc.SearchField(f)}
		for term := range terms {
			fm.Terms = append(fm.Terms, term)
		}
		sort.Strings(fm.Terms)
		out = append(out, fm)
	}
	return out
}

// Tokenize lowercases s and splits it on anything that is not a letter or digit.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Fingerprint hashes document ids and searchable text so a changed collection
// yields a different value.
func Fingerprint[T Document](docs []T, fields []string) uint64 {
	h := xxhash.New()
	for _, d := range docs {
		_, _ = h.WriteString(d.SearchID())
		_, _ = h.Write([]byte{0})
		for _, f := range fields {
			_, _ = h.WriteString(d.SearchField(f))
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{1})
	}
	return h.Sum64()
}

// Cache keeps the engine for the most recent collection and rebuilds it when
// the collection changes.
type Cache[T Document] struct {
	Options Options
	// OnBuild, if set, is called after each rebuild.
	OnBuild func()

	mu     sync.RWMutex
	engine *Engine[T]
}

// Search runs query against docs, reusing the cached index when docs are unchanged.
func (c *Cache[T]) Search(docs []T, query string) ([]Result[T], error) {
	fp := Fingerprint(docs, c.Options.Fields)

	c.mu.RLock()
	if c.engine != nil && c.engine.fingerprint == fp {
		res, err := c.engine.Search(query)
		c.mu.RUnlock()
		return rebind(res, docs), err
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil || c.engine.fingerprint != fp {
		e, err := NewEngine(docs, c.Options)
		if err != nil {
			return nil, err
		}
		if c.engine != nil {
			_ = c.engine.Close()
		}
		c.engine = e
		if c.OnBuild != nil {
			c.OnBuild()
		}
	}
	res, err := c.engine.Search(query)
	return rebind(res, docs), err
}

// rebind points results at the caller's documents. The fingerprint only
// covers searchable text, so non-text fields may differ from the snapshot.
func rebind[T Document](res []Result[T], docs []T) []Result[T] {
	if len(res) == 0 {
		return res
	}
	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		byID[d.SearchID()] = i
	}
	for i := range res {
		if j, ok := byID[res[i].Item.SearchID()]; ok {
			res[i].Item = docs[j]
		}
	}
	return res
}

// Close releases the cached index.
func (c *Cache[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine = nil
	return err
}
