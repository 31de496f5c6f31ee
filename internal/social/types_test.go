package social

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchQueryNormalize(t *testing.T) {
	q := SearchQuery{Query: "golang"}
	q.Normalize()
	assert.Equal(t, DefaultLimit, q.Limit)
	assert.Equal(t, DefaultMinConfidence, q.MinConfidence)

	q = SearchQuery{Query: "golang", Limit: 10, MinConfidence: 0.9}
	q.Normalize()
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 0.9, q.MinConfidence)
}

func TestSearchQueryValidate(t *testing.T) {
	tests := []struct {
		name    string
		query   SearchQuery
		wantErr error
	}{
		{"valid", SearchQuery{Query: "golang", Limit: 50, MinConfidence: 0.5}, nil},
		{"empty query", SearchQuery{Limit: 50}, ErrEmptyQuery},
		{"whitespace query", SearchQuery{Query: "   ", Limit: 50}, ErrEmptyQuery},
		{"zero limit", SearchQuery{Query: "golang"}, ErrInvalidLimit},
		{"limit too large", SearchQuery{Query: "golang", Limit: MaxLimit + 1}, ErrInvalidLimit},
		{"negative offset", SearchQuery{Query: "golang", Limit: 50, Offset: -1}, ErrInvalidOffset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	t.Run("min_confidence out of range", func(t *testing.T) {
		q := SearchQuery{Query: "golang", Limit: 50, MinConfidence: 1.5}
		require.Error(t, q.Validate())
	})
}

func TestSentimentDistribution(t *testing.T) {
	var d SentimentDistribution
	d.Add(SentimentPositive)
	d.Add(SentimentPositive)
	d.Add(SentimentNegative)
	d.Add(SentimentNeutral)
	d.Add(SentimentLabel("unknown"))

	assert.Equal(t, SentimentDistribution{Positive: 2, Negative: 1, Neutral: 1}, d)
	assert.Equal(t, 4, d.Total())
}
