package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKeyDeterministic(t *testing.T) {
	params := KeyParams{
		Query:         "climate change",
		DataSources:   []string{"twitter", "reddit"},
		Limit:         50,
		Offset:        0,
		MinConfidence: 0.5,
		Language:      "en",
	}

	key1 := BuildKey(params)
	key2 := BuildKey(params)
	assert.Equal(t, key1, key2)
	assert.NotEmpty(t, key1)
}

func TestBuildKeyNormalization(t *testing.T) {
	t.Run("equivalent requests share a key", func(t *testing.T) {
		key1 := BuildKey(KeyParams{
			Query:         "  Machine Learning ",
			DataSources:   []string{"reddit", "twitter"},
			Limit:         50,
			MinConfidence: 0.501,
		})
		key2 := BuildKey(KeyParams{
			Query:         "machine learning",
			DataSources:   []string{"twitter", "reddit"},
			Limit:         50,
			MinConfidence: 0.50,
			Language:      "any",
		})
		assert.Equal(t, key1, key2)
	})

	t.Run("inner whitespace collapses", func(t *testing.T) {
		assert.Equal(t,
			BuildKey(KeyParams{Query: "machine \t learning"}),
			BuildKey(KeyParams{Query: "machine learning"}))
	})

	t.Run("data sources deduplicate", func(t *testing.T) {
		assert.Equal(t,
			BuildKey(KeyParams{Query: "q", DataSources: []string{"reddit", "reddit", "twitter"}}),
			BuildKey(KeyParams{Query: "q", DataSources: []string{"twitter", "reddit"}}))
	})

	t.Run("language canonicalizes to base tag", func(t *testing.T) {
		assert.Equal(t,
			BuildKey(KeyParams{Query: "q", Language: "EN"}),
			BuildKey(KeyParams{Query: "q", Language: "en-US"}))
	})

	t.Run("absent language means any", func(t *testing.T) {
		assert.Equal(t,
			BuildKey(KeyParams{Query: "q"}),
			BuildKey(KeyParams{Query: "q", Language: "any"}))
	})

	t.Run("confidence rounds to two decimals", func(t *testing.T) {
		assert.Equal(t,
			BuildKey(KeyParams{Query: "q", MinConfidence: 0.499}),
			BuildKey(KeyParams{Query: "q", MinConfidence: 0.5}))
		assert.NotEqual(t,
			BuildKey(KeyParams{Query: "q", MinConfidence: 0.49}),
			BuildKey(KeyParams{Query: "q", MinConfidence: 0.5}))
	})
}

func TestBuildKeyDistinguishesFields(t *testing.T) {
	base := KeyParams{
		Query:         "go generics",
		DataSources:   []string{"twitter"},
		Limit:         50,
		Offset:        0,
		MinConfidence: 0.5,
		Language:      "en",
	}
	baseKey := BuildKey(base)

	variants := []KeyParams{
		func() KeyParams { p := base; p.Query = "go generics!"; return p }(),
		func() KeyParams { p := base; p.DataSources = []string{"reddit"}; return p }(),
		func() KeyParams { p := base; p.DataSources = nil; return p }(),
		func() KeyParams { p := base; p.Limit = 51; return p }(),
		func() KeyParams { p := base; p.Offset = 50; return p }(),
		func() KeyParams { p := base; p.MinConfidence = 0.6; return p }(),
		func() KeyParams { p := base; p.Language = "fr"; return p }(),
	}
	for i, v := range variants {
		assert.NotEqual(t, baseKey, BuildKey(v), "variant %d collided", i)
	}
}

func TestBuildKeyDelimiterInjection(t *testing.T) {
	// A separator smuggled into a field value must not shift field
	// boundaries into a colliding key.
	smuggled := BuildKey(KeyParams{Query: "q\x1ftwitter"})
	honest := BuildKey(KeyParams{Query: "q", DataSources: []string{"twitter"}})
	assert.NotEqual(t, smuggled, honest)

	joined := BuildKey(KeyParams{Query: "q", DataSources: []string{"a\x1eb"}})
	split := BuildKey(KeyParams{Query: "q", DataSources: []string{"a", "b"}})
	assert.NotEqual(t, joined, split)

	// Literal backslash sequences stay distinct from escaped separators.
	assert.NotEqual(t,
		BuildKey(KeyParams{Query: `q\F`}),
		BuildKey(KeyParams{Query: "q\x1f"}))
}

func TestBuildKeyCollisionCorpus(t *testing.T) {
	sources := [][]string{nil, {"twitter"}, {"reddit"}, {"twitter", "reddit"}}
	languages := []string{"", "en", "fr", "de", "es"}

	seen := make(map[string]KeyParams)
	count := 0
	for q := 0; q < 250; q++ {
		for s := range sources {
			for l := range languages {
				for limit := 10; limit <= 20; limit += 10 {
					params := KeyParams{
						Query:         fmt.Sprintf("topic %d", q),
						DataSources:   sources[s],
						Limit:         limit,
						Offset:        (q + s) * 10,
						MinConfidence: float64(l) / 10,
						Language:      languages[l],
					}
					key := BuildKey(params)
					if prev, dup := seen[key]; dup {
						t.Fatalf("collision between %+v and %+v", prev, params)
					}
					seen[key] = params
					count++
				}
			}
		}
	}
	require.GreaterOrEqual(t, count, 10000)
	assert.Len(t, seen, count)
}
