// Package engine orchestrates the analysis pipeline: cache lookup, fan-out
// to data sources, bot filtering, sentiment scoring, and write-through
// caching of the aggregated result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pulsewatch/pulsewatch/internal/engine/cache"
	"github.com/pulsewatch/pulsewatch/internal/sentiment"
	"github.com/pulsewatch/pulsewatch/internal/social"
	"github.com/pulsewatch/pulsewatch/internal/source"
)

// ErrNoSources is returned when a request matches no enabled data source.
var ErrNoSources = errors.New("no data sources available")

// maxSourceConcurrency bounds the fan-out so a request with many sources
// cannot exhaust outbound connections.
const maxSourceConcurrency = 4

// Options tune a new Engine.
type Options struct {
	// DefaultTTL is applied to cache writes when the request does not
	// override it. Zero selects the package default.
	DefaultTTL time.Duration

	// DefaultAnalyzer names the analyzer used when the request does not
	// pick one. Empty selects sentiment.DefaultAnalyzer.
	DefaultAnalyzer string

	Logger zerolog.Logger
}

// Engine runs analysis requests against the configured sources with a
// read-through, write-through result cache. One engine instance is built
// at process start and shared by all request paths.
type Engine struct {
	store           *cache.Store
	sources         *source.Registry
	defaultTTL      time.Duration
	defaultAnalyzer string
	logger          zerolog.Logger

	// flight collapses concurrent cache misses for the same key into a
	// single upstream fetch. The store alone only guarantees data
	// consistency, not fetch deduplication.
	flight singleflight.Group
}

// New builds an Engine around the given store and source registry.
func New(store *cache.Store, sources *source.Registry, opts Options) *Engine {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = cache.DefaultTTLSeconds * time.Second
	}
	if opts.DefaultAnalyzer == "" {
		opts.DefaultAnalyzer = sentiment.DefaultAnalyzer
	}
	return &Engine{
		store:           store,
		sources:         sources,
		defaultTTL:      opts.DefaultTTL,
		defaultAnalyzer: opts.DefaultAnalyzer,
		logger:          opts.Logger,
	}
}

// Store exposes the underlying cache for the management surface.
func (e *Engine) Store() *cache.Store { return e.store }

// Sources exposes the source registry for the management surface.
func (e *Engine) Sources() *source.Registry { return e.sources }

// DefaultAnalyzer returns the analyzer name used when requests omit one.
func (e *Engine) DefaultAnalyzer() string { return e.defaultAnalyzer }

// AnalyzeRequest is one analysis invocation.
type AnalyzeRequest struct {
	Query social.SearchQuery

	// Analyzer selects a sentiment analyzer; empty uses the engine
	// default.
	Analyzer string

	// NoCache bypasses both the cache read and the write-through.
	NoCache bool

	// TTL overrides the engine's default cache TTL when positive.
	TTL time.Duration
}

// Analyze runs the full pipeline for req. Results are cached under the
// request fingerprint; concurrent identical requests share one upstream
// fetch.
func (e *Engine) Analyze(ctx context.Context, req AnalyzeRequest) (*social.AnalysisResult, error) {
	req.Query.Normalize()
	if err := req.Query.Validate(); err != nil {
		return nil, err
	}

	analyzerName := req.Analyzer
	if analyzerName == "" {
		analyzerName = e.defaultAnalyzer
	}
	analyzer, err := sentiment.New(analyzerName)
	if err != nil {
		return nil, err
	}

	key := cache.KeyForQuery(
		req.Query.Query,
		req.Query.Language,
		req.Query.DataSources,
		req.Query.Limit,
		req.Query.Offset,
		req.Query.MinConfidence,
	)

	log := e.logger.With().
		Str("trace_id", ulid.Make().String()).
		Str("query", req.Query.Query).
		Str("analyzer", analyzer.Name()).
		Logger()

	if !req.NoCache {
		if cached, ok := e.store.Get(key); ok {
			if result, isResult := cached.(*social.AnalysisResult); isResult {
				log.Debug().Msg("cache hit")
				return result, nil
			}
		}
	}

	ttl := req.TTL
	if ttl <= 0 {
		ttl = e.defaultTTL
	}

	value, err, shared := e.flight.Do(key, func() (any, error) {
		result, fetchErr := e.fetchAndAnalyze(ctx, req.Query, analyzer, log)
		if fetchErr != nil {
			return nil, fetchErr
		}
		if !req.NoCache {
			if setErr := e.store.Set(key, result, ttl); setErr != nil {
				return nil, fmt.Errorf("caching result: %w", setErr)
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Msg("request coalesced with in-flight fetch")
	}
	return value.(*social.AnalysisResult), nil
}

// fetchAndAnalyze fans out to the selected sources, merges and filters
// their posts, and scores sentiment. A failing source degrades the
// response rather than failing it; only having no source at all is fatal.
func (e *Engine) fetchAndAnalyze(
	ctx context.Context,
	query social.SearchQuery,
	analyzer sentiment.Analyzer,
	log zerolog.Logger,
) (*social.AnalysisResult, error) {
	started := time.Now()

	selected := e.selectSources(query.DataSources)
	if len(selected) == 0 {
		return nil, ErrNoSources
	}

	var (
		mu          sync.Mutex
		allPosts    []social.Post
		sourcesUsed []string
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxSourceConcurrency)
	for _, src := range selected {
		g.Go(func() error {
			posts, err := src.Search(gCtx, query)
			if err != nil {
				log.Warn().Err(err).Str("source", src.Name()).Msg("source fetch failed")
				return nil
			}
			mu.Lock()
			allPosts = append(allPosts, posts...)
			sourcesUsed = append(sourcesUsed, src.Name())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(sourcesUsed)

	filtered := source.FilterPosts(allPosts, query.MinConfidence)

	// Deterministic order before pagination: newest first, ID as tie-break.
	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].Timestamp.Equal(filtered[j].Timestamp) {
			return filtered[i].Timestamp.After(filtered[j].Timestamp)
		}
		return filtered[i].ID < filtered[j].ID
	})

	page := paginate(filtered, query.Offset, query.Limit)
	sentiments := sentiment.ScorePosts(analyzer, page)

	var distribution social.SentimentDistribution
	var confidenceSum float64
	for _, s := range sentiments {
		distribution.Add(s.Sentiment)
		confidenceSum += s.Confidence
	}
	avgConfidence := 0.0
	if len(sentiments) > 0 {
		avgConfidence = confidenceSum / float64(len(sentiments))
	}

	result := &social.AnalysisResult{
		Query:             query.Query,
		TotalPosts:        len(filtered),
		Distribution:      distribution,
		AverageConfidence: avgConfidence,
		SourcesUsed:       sourcesUsed,
		Posts:             page,
		Sentiments:        sentiments,
		CreatedAt:         time.Now().UTC(),
		ProcessingTime:    time.Since(started).Seconds(),
	}

	log.Info().
		Int("total_posts", result.TotalPosts).
		Int("page_size", len(page)).
		Strs("sources", sourcesUsed).
		Dur("elapsed", time.Since(started)).
		Msg("analysis complete")

	return result, nil
}

// selectSources returns the enabled sources matching the requested names,
// or every enabled source when no names are given.
func (e *Engine) selectSources(names []string) []source.Source {
	enabled := e.sources.Enabled()
	if len(names) == 0 {
		return enabled
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}
	selected := make([]source.Source, 0, len(enabled))
	for _, src := range enabled {
		if _, ok := wanted[src.Name()]; ok {
			selected = append(selected, src)
		}
	}
	return selected
}

// paginate slices posts by offset and limit, copying so cached results
// never alias caller-visible slices.
func paginate(posts []social.Post, offset, limit int) []social.Post {
	if offset >= len(posts) {
		return []social.Post{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	page := make([]social.Post, end-offset)
	copy(page, posts[offset:end])
	return page
}
