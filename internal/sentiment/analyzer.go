// Package sentiment provides pluggable text sentiment analysis. Analyzers
// are registered by name in a constructor registry and resolved once per
// request; adding an analyzer never touches the callers.
package sentiment

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/social"
)

// DefaultAnalyzer is used when a request does not name one.
const DefaultAnalyzer = "lexicon"

// Classification thresholds on polarity.
const (
	positiveThreshold = 0.1
	negativeThreshold = -0.1
)

// Score is the raw output of an analyzer for one text.
type Score struct {
	// Polarity is in [-1,1], negative to positive.
	Polarity float64
	// Subjectivity is in [0,1], objective to subjective.
	Subjectivity float64
	// Confidence is in [0,1].
	Confidence float64
}

// Label classifies the score's polarity.
func (s Score) Label() social.SentimentLabel {
	switch {
	case s.Polarity > positiveThreshold:
		return social.SentimentPositive
	case s.Polarity < negativeThreshold:
		return social.SentimentNegative
	default:
		return social.SentimentNeutral
	}
}

// Analyzer scores the sentiment of a text.
type Analyzer interface {
	Name() string
	Analyze(text string) Score
}

// Constructor builds a fresh analyzer instance.
type Constructor func() Analyzer

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// ErrUnknownAnalyzer is returned by New for unregistered names.
var ErrUnknownAnalyzer = fmt.Errorf("unknown analyzer")

// Register adds a constructor under name, replacing any previous one.
func Register(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

// New resolves an analyzer by name. An empty name selects DefaultAnalyzer.
func New(name string) (Analyzer, error) {
	if name == "" {
		name = DefaultAnalyzer
	}
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownAnalyzer, name, Available())
	}
	return ctor(), nil
}

// Available lists registered analyzer names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScorePosts runs the analyzer over every post and pairs each with a
// sentiment result.
func ScorePosts(a Analyzer, posts []social.Post) []social.SentimentResult {
	results := make([]social.SentimentResult, 0, len(posts))
	for _, post := range posts {
		score := a.Analyze(post.Text)
		results = append(results, social.SentimentResult{
			PostID:       post.ID,
			Sentiment:    score.Label(),
			Confidence:   score.Confidence,
			Polarity:     score.Polarity,
			Subjectivity: score.Subjectivity,
			Analyzer:     a.Name(),
			CreatedAt:    time.Now().UTC(),
		})
	}
	return results
}

// confidenceFromPolarity derives a confidence from polarity magnitude.
func confidenceFromPolarity(polarity float64) float64 {
	return math.Min(math.Abs(polarity)+0.3, 1.0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
