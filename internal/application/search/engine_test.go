package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	id, title, desc, location string
}

func (d doc) SearchID() string { return d.id }

func (d doc) SearchField(name string) string {
	switch name {
	case "title":
		return d.title
	case "description":
		return d.desc
	case "location":
		return d.location
	}
	return ""
}

var testFields = []string{"title", "description", "location"}

func sampleDocs() []doc {
	return []doc{
		{"1", "Desk Lamp", "Warm light for reading", "Austin"},
		{"2", "Garden Hose", "Fifty feet, barely used", "Dallas"},
		{"3", "Road Bike", "Aluminium frame", "Austin"},
		{"4", "Lampshade", "Linen shade", "Houston"},
	}
}

func newTestEngine(t *testing.T, docs []doc, threshold float64) *Engine[doc] {
	e, err := NewEngine(docs, Options{Fields: testFields, Threshold: threshold})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func ids(rs []Result[doc]) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Item.id
	}
	return out
}

func TestSearch_EmptyQueryReturnsAllUnscored(t *testing.T) {
	e := newTestEngine(t, sampleDocs(), DefaultThreshold)
	for _, q := range []string{"", "   ", "\t"} {
		rs, err := e.Search(q)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3", "4"}, ids(rs))
		for _, r := range rs {
			assert.Nil(t, r.Score)
			assert.Empty(t, r.Matches)
		}
	}
}

func TestSearch_EmptyCollection(t *testing.T) {
	e := newTestEngine(t, nil, DefaultThreshold)
	rs, err := e.Search("lamp")
	require.NoError(t, err)
	assert.Empty(t, rs)
	assert.Equal(t, 0, e.Len())
}

func TestSearch_ExactAndPrefix(t *testing.T) {
	e := newTestEngine(t, sampleDocs(), DefaultThreshold)
	rs, err := e.Search("lamp")
	require.NoError(t, err)
	got := ids(rs)
	assert.Contains(t, got, "1")
	assert.Contains(t, got, "4")
	assert.NotContains(t, got, "2")
	assert.NotContains(t, got, "3")

	rs, err = e.Search("gard")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, ids(rs))
}

func TestSearch_ToleratesTypos(t *testing.T) {
	e := newTestEngine(t, sampleDocs(), DefaultThreshold)
	rs, err := e.Search("lamb")
	require.NoError(t, err)
	assert.Contains(t, ids(rs), "1")

	strict := newTestEngine(t, sampleDocs(), 0)
	rs, err = strict.Search("lamb")
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestSearch_EveryTokenMustMatch(t *testing.T) {
	e := newTestEngine(t, sampleDocs(), DefaultThreshold)
	rs, err := e.Search("road austin")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(rs))

	rs, err = e.Search("desk hose")
	require.NoError(t, err)
	assert.Empty(t, rs)
}

func TestSearch_ScoresAndMatches(t *testing.T) {
	e := newTestEngine(t, sampleDocs(), DefaultThreshold)
	rs, err := e.Search("austin")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	for _, r := range rs {
		require.NotNil(t, r.Score)
		assert.GreaterOrEqual(t, *r.Score, 0.0)
		assert.LessOrEqual(t, *r.Score, 1.0)
		require.NotEmpty(t, r.Matches)
		assert.Equal(t, "location", r.Matches[0].Field)
		assert.Equal(t, "Austin", r.Matches[0].Value)
		assert.Equal(t, []string{"austin"}, r.Matches[0].Terms)
	}
	assert.Equal(t, 0.0, *rs[0].Score)
}

func TestFuzziness(t *testing.T) {
	e := newTestEngine(t, nil, DefaultThreshold)
	assert.Equal(t, 0, e.Fuzziness("ab"))
	assert.Equal(t, 1, e.Fuzziness("lamp"))
	assert.Equal(t, 2, e.Fuzziness("aluminium"))
	assert.Equal(t, 2, e.Fuzziness("extraordinarily"))
}

func TestNewEngine_RequiresFields(t *testing.T) {
	_, err := NewEngine(sampleDocs(), Options{})
	assert.ErrorIs(t, err, ErrNoFields)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"desk", "lamp", "2"}, Tokenize("  Desk-Lamp, #2 "))
	assert.Empty(t, Tokenize("!!!"))
}

func TestFingerprint_ChangesWithCollection(t *testing.T) {
	docs := sampleDocs()
	a := Fingerprint(docs, testFields)
	assert.Equal(t, a, Fingerprint(sampleDocs(), testFields))
	docs[0].title = "Floor Lamp"
	assert.NotEqual(t, a, Fingerprint(docs, testFields))
	assert.NotEqual(t, a, Fingerprint(sampleDocs()[:3], testFields))
}

func TestCache_RebuildsOnlyWhenCollectionChanges(t *testing.T) {
	builds := 0
	c := &Cache[doc]{Options: Options{Fields: testFields, Threshold: DefaultThreshold}, OnBuild: func() { builds++ }}
	t.Cleanup(func() { _ = c.Close() })

	docs := sampleDocs()
	_, err := c.Search(docs, "lamp")
	require.NoError(t, err)
	_, err = c.Search(sampleDocs(), "bike")
	require.NoError(t, err)
	assert.Equal(t, 1, builds)

	docs = append(docs, doc{"5", "Floor Lamp", "Tall", "Waco"})
	rs, err := c.Search(docs, "lamp")
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
	assert.Contains(t, ids(rs), "5")
}
