package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

const (
	// MaxSuggestions caps the suggestion list.
	MaxSuggestions = 6

	suggestFromTop = 20
	minWordLen     = 3
	minQueryLen    = 2
)

// Suggest proposes completions for query from the words of the fields that
// matched in the top results. Candidates contain the query, are longer than
// two characters and differ from the query. Results are unique, ranked by
// fuzzy closeness to the query, and capped at limit (MaxSuggestions if <= 0).
func Suggest[T Document](results []Result[T], query string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(q) < minQueryLen {
		return []string{}
	}
	if limit <= 0 {
		limit = MaxSuggestions
	}
	if len(results) > suggestFromTop {
		results = results[:suggestFromTop]
	}

	seen := make(map[string]struct{})
	var candidates []string
	for _, r := range results {
		for _, m := range r.Matches {
			for _, w := range words(m.Value) {
				if utf8.RuneCountInString(w) < minWordLen || w == q || !strings.Contains(w, q) {
					continue
				}
				if _, dup := seen[w]; dup {
					continue
				}
				seen[w] = struct{}{}
				candidates = append(candidates, w)
			}
		}
	}
	if len(candidates) == 0 {
		return []string{}
	}

	ranked := fuzzy.Find(q, candidates)
	out := make([]string, 0, limit)
	for _, m := range ranked {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// words splits s into lowercase words, trimming surrounding punctuation.
func words(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
