// Package social defines the domain types shared across data sources,
// sentiment analysis, and the REST boundary: posts, search queries, and
// aggregated analysis results.
package social

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SentimentLabel classifies the overall tone of a post.
type SentimentLabel string

// Sentiment classifications.
const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// Query bounds shared by validation and the REST layer.
const (
	DefaultLimit         = 50
	MaxLimit             = 500
	DefaultMinConfidence = 0.5
)

// Common validation errors.
var (
	ErrEmptyQuery    = errors.New("query text cannot be empty")
	ErrInvalidLimit  = fmt.Errorf("limit must be between 1 and %d", MaxLimit)
	ErrInvalidOffset = errors.New("offset cannot be negative")
)

// EngagementStats holds interaction counts for a post.
type EngagementStats struct {
	Likes    int `json:"likes"`
	Shares   int `json:"shares"`
	Comments int `json:"comments"`
	Views    int `json:"views"`
	Replies  int `json:"replies"`
}

// Post is a single social-media post normalized across data sources.
type Post struct {
	ID         string          `json:"id"`
	Text       string          `json:"text"`
	Timestamp  time.Time       `json:"timestamp"`
	Author     string          `json:"author"`
	AuthorID   string          `json:"author_id"`
	Location   string          `json:"location,omitempty"`
	Engagement EngagementStats `json:"engagement_stats"`
	Source     string          `json:"source"`

	// Confidence is the bot-detection score in [0,1]; 1 means
	// definitely human. Stamped by source.FilterPosts.
	Confidence float64  `json:"confidence_score"`
	Language   string   `json:"language,omitempty"`
	Hashtags   []string `json:"hashtags,omitempty"`
	Mentions   []string `json:"mentions,omitempty"`
	URLs       []string `json:"urls,omitempty"`
}

// SentimentResult is the per-post output of a sentiment analyzer.
type SentimentResult struct {
	PostID       string         `json:"post_id"`
	Sentiment    SentimentLabel `json:"sentiment"`
	Confidence   float64        `json:"confidence"`
	Polarity     float64        `json:"polarity"`
	Subjectivity float64        `json:"subjectivity"`
	Analyzer     string         `json:"analyzer_used"`
	CreatedAt    time.Time      `json:"created_at"`
}

// SearchQuery describes one aggregation request. An empty DataSources
// slice means all enabled sources.
type SearchQuery struct {
	Query         string   `json:"query"`
	DataSources   []string `json:"data_sources,omitempty"`
	Limit         int      `json:"limit"`
	Offset        int      `json:"offset"`
	MinConfidence float64  `json:"min_confidence"`
	Language      string   `json:"language,omitempty"`
}

// Normalize applies defaults for zero-valued fields.
func (q *SearchQuery) Normalize() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.MinConfidence == 0 {
		q.MinConfidence = DefaultMinConfidence
	}
}

// Validate checks the query bounds. Callers should Normalize first.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return ErrEmptyQuery
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return ErrInvalidLimit
	}
	if q.Offset < 0 {
		return ErrInvalidOffset
	}
	if q.MinConfidence < 0 || q.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0,1], got %g", q.MinConfidence)
	}
	return nil
}

// SentimentDistribution counts posts per sentiment label.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Total returns the number of classified posts.
func (d SentimentDistribution) Total() int {
	return d.Positive + d.Negative + d.Neutral
}

// Add increments the bucket for the given label.
func (d *SentimentDistribution) Add(label SentimentLabel) {
	switch label {
	case SentimentPositive:
		d.Positive++
	case SentimentNegative:
		d.Negative++
	case SentimentNeutral:
		d.Neutral++
	}
}

// AnalysisResult is the aggregated outcome of one search: the posts that
// survived bot filtering and pagination, their sentiment, and summary
// statistics. This is the unit stored in the query cache.
type AnalysisResult struct {
	Query             string                `json:"query"`
	TotalPosts        int                   `json:"total_posts"`
	Distribution      SentimentDistribution `json:"sentiment_distribution"`
	AverageConfidence float64               `json:"average_confidence"`
	SourcesUsed       []string              `json:"sources_used"`
	Posts             []Post                `json:"posts"`
	Sentiments        []SentimentResult     `json:"sentiment_results"`
	CreatedAt         time.Time             `json:"created_at"`
	ProcessingTime    float64               `json:"processing_time"`
}
