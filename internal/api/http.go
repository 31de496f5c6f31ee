// Package api exposes the analysis engine over HTTP: the analyze and
// dashboard endpoints, the cache management surface, and Prometheus
// metrics.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsewatch/pulsewatch/internal/engine"
	"github.com/pulsewatch/pulsewatch/internal/engine/cache"
	"github.com/pulsewatch/pulsewatch/internal/sentiment"
	"github.com/pulsewatch/pulsewatch/internal/social"
	"github.com/pulsewatch/pulsewatch/internal/source"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// defaultTopN is how many regions and topics dashboard responses carry
// unless the request overrides it.
const defaultTopN = 5

// Server serves the REST surface for one engine.
type Server struct {
	engine  *engine.Engine
	logger  zerolog.Logger
	metrics *Metrics
}

// NewServer builds a Server around eng. Metrics are registered on a
// per-server registry so tests can run servers side by side.
func NewServer(eng *engine.Engine, logger zerolog.Logger) *Server {
	return &Server{
		engine:  eng,
		logger:  logger,
		metrics: NewMetrics(eng.Store()),
	}
}

// RegisterHTTPHandlers registers all handlers under the given prefix.
// The prefix should be the path segment without a trailing slash
// (e.g. "api/v1"). Handlers are registered as:
//
//	POST   <prefix>/analyze
//	POST   <prefix>/analyze-text
//	GET    <prefix>/dashboard/summary
//	GET    <prefix>/dashboard/geographic
//	GET    <prefix>/users/{user_id}/posts
//	GET    <prefix>/cache/stats
//	DELETE <prefix>/cache/clear
//	DELETE <prefix>/cache/expired
//	GET    <prefix>/sources
//	POST   <prefix>/sources
//	DELETE <prefix>/sources/{name}
//	GET    <prefix>/analyzers
//	GET    <prefix>/health
//	GET    /metrics
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"analyze", s.metrics.instrument("analyze", s.handleAnalyze))
	mux.HandleFunc(prefix+"analyze-text", s.metrics.instrument("analyze_text", s.handleAnalyzeText))
	mux.HandleFunc(prefix+"dashboard/summary", s.metrics.instrument("dashboard_summary", s.handleDashboardSummary))
	mux.HandleFunc(prefix+"dashboard/geographic", s.metrics.instrument("dashboard_geographic", s.handleDashboardGeographic))
	mux.HandleFunc(prefix+"users/{user_id}/posts", s.metrics.instrument("user_posts", s.handleUserPosts))
	mux.HandleFunc(prefix+"cache/stats", s.metrics.instrument("cache_stats", s.handleCacheStats))
	mux.HandleFunc(prefix+"cache/clear", s.metrics.instrument("cache_clear", s.handleCacheClear))
	mux.HandleFunc(prefix+"cache/expired", s.metrics.instrument("cache_expired", s.handleCacheExpired))
	mux.HandleFunc(prefix+"sources", s.metrics.instrument("sources", s.handleSources))
	mux.HandleFunc(prefix+"sources/{name}", s.metrics.instrument("source_remove", s.handleSourceRemove))
	mux.HandleFunc(prefix+"analyzers", s.metrics.instrument("analyzers", s.handleAnalyzers))
	mux.HandleFunc(prefix+"health", s.metrics.instrument("health", s.handleHealth))
	mux.Handle("/metrics", s.metrics.Handler())
}

// ----------------------------------------------------------------------------
// POST <prefix>/analyze
// ----------------------------------------------------------------------------

// AnalyzeBody is the request body for POST <prefix>/analyze. The embedded
// SearchQuery carries query, data_sources, limit, offset, min_confidence
// and language.
type AnalyzeBody struct {
	social.SearchQuery
	Analyzer   string `json:"analyzer,omitempty"`
	NoCache    bool   `json:"no_cache,omitempty"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body AnalyzeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// analyzer and no_cache are also accepted as query parameters and win
	// over the body.
	params := r.URL.Query()
	if v := params.Get("analyzer"); v != "" {
		body.Analyzer = v
	}
	if v := params.Get("no_cache"); v != "" {
		noCache, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "no_cache must be a boolean")
			return
		}
		body.NoCache = noCache
	}

	var ttl time.Duration
	if body.TTLSeconds != 0 {
		if err := cache.ValidateTTLSeconds(body.TTLSeconds); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ttl = time.Duration(body.TTLSeconds) * time.Second
	}

	result, err := s.engine.Analyze(r.Context(), engine.AnalyzeRequest{
		Query:    body.SearchQuery,
		Analyzer: body.Analyzer,
		NoCache:  body.NoCache,
		TTL:      ttl,
	})
	if err != nil {
		s.writeAnalyzeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeAnalyzeError maps pipeline errors to HTTP statuses: caller mistakes
// are 400, missing upstream capacity is 503, everything else 500.
func (s *Server) writeAnalyzeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, social.ErrEmptyQuery),
		errors.Is(err, social.ErrInvalidLimit),
		errors.Is(err, social.ErrInvalidOffset),
		errors.Is(err, sentiment.ErrUnknownAnalyzer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNoSources):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
	}
}

// ----------------------------------------------------------------------------
// POST <prefix>/analyze-text
// ----------------------------------------------------------------------------

// AnalyzeTextBody is the request body for POST <prefix>/analyze-text.
type AnalyzeTextBody struct {
	Text     string `json:"text"`
	Analyzer string `json:"analyzer,omitempty"`
}

// AnalyzeTextResponse is the score of one text, outside any search.
type AnalyzeTextResponse struct {
	Text         string                `json:"text"`
	Sentiment    social.SentimentLabel `json:"sentiment"`
	Polarity     float64               `json:"polarity"`
	Subjectivity float64               `json:"subjectivity"`
	Confidence   float64               `json:"confidence"`
	Analyzer     string                `json:"analyzer_used"`
}

// handleAnalyzeText scores a single text without touching sources or the
// cache.
func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body AnalyzeTextBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	name := body.Analyzer
	if name == "" {
		name = s.engine.DefaultAnalyzer()
	}
	analyzer, err := sentiment.New(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	score := analyzer.Analyze(body.Text)
	writeJSON(w, http.StatusOK, AnalyzeTextResponse{
		Text:         body.Text,
		Sentiment:    score.Label(),
		Polarity:     score.Polarity,
		Subjectivity: score.Subjectivity,
		Confidence:   score.Confidence,
		Analyzer:     analyzer.Name(),
	})
}

// ----------------------------------------------------------------------------
// GET <prefix>/dashboard/summary and <prefix>/dashboard/geographic
// ----------------------------------------------------------------------------

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, topN, err := analyzeRequestFromParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.engine.Analyze(r.Context(), req)
	if err != nil {
		s.writeAnalyzeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, engine.Summarize(result, topN))
}

// GeographicResponse is the body of GET <prefix>/dashboard/geographic.
type GeographicResponse struct {
	Query          string              `json:"query"`
	GeographicData []engine.RegionStat `json:"geographic_data"`
}

func (s *Server) handleDashboardGeographic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, _, err := analyzeRequestFromParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.engine.Analyze(r.Context(), req)
	if err != nil {
		s.writeAnalyzeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GeographicResponse{
		Query:          result.Query,
		GeographicData: engine.GeographicAggregate(result),
	})
}

// analyzeRequestFromParams builds an engine request from dashboard query
// parameters: query, sources (comma-separated), limit, offset,
// min_confidence, language, analyzer, top.
func analyzeRequestFromParams(r *http.Request) (engine.AnalyzeRequest, int, error) {
	params := r.URL.Query()
	query := social.SearchQuery{
		Query:    params.Get("query"),
		Language: params.Get("language"),
	}
	if raw := params.Get("sources"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				query.DataSources = append(query.DataSources, name)
			}
		}
	}

	var err error
	if query.Limit, err = intParam(params.Get("limit"), 0); err != nil {
		return engine.AnalyzeRequest{}, 0, err
	}
	if query.Offset, err = intParam(params.Get("offset"), 0); err != nil {
		return engine.AnalyzeRequest{}, 0, err
	}
	if raw := params.Get("min_confidence"); raw != "" {
		if query.MinConfidence, err = strconv.ParseFloat(raw, 64); err != nil {
			return engine.AnalyzeRequest{}, 0, errors.New("min_confidence must be a number")
		}
	}
	topN, err := intParam(params.Get("top"), defaultTopN)
	if err != nil {
		return engine.AnalyzeRequest{}, 0, err
	}

	return engine.AnalyzeRequest{
		Query:    query,
		Analyzer: params.Get("analyzer"),
	}, topN, nil
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("parameter must be an integer: " + raw)
	}
	return v, nil
}

// ----------------------------------------------------------------------------
// GET <prefix>/users/{user_id}/posts
// ----------------------------------------------------------------------------

// UserPostsResponse is the body of GET <prefix>/users/{user_id}/posts.
type UserPostsResponse struct {
	UserID string        `json:"user_id"`
	Posts  []social.Post `json:"posts"`
	Total  int           `json:"total"`
}

// handleUserPosts returns recent posts by one author. The optional source
// parameter restricts the lookup to a single source; otherwise every
// enabled source is asked and a failing one degrades the response.
func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := r.PathValue("user_id")
	limit, err := intParam(r.URL.Query().Get("limit"), social.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit < 1 || limit > social.MaxLimit {
		writeError(w, http.StatusBadRequest, social.ErrInvalidLimit.Error())
		return
	}

	var sources []source.Source
	if name := r.URL.Query().Get("source"); name != "" {
		src, ok := s.engine.Sources().Get(name)
		if !ok {
			writeError(w, http.StatusNotFound, "data source not added: "+name)
			return
		}
		sources = []source.Source{src}
	} else {
		sources = s.engine.Sources().Enabled()
	}
	if len(sources) == 0 {
		writeError(w, http.StatusServiceUnavailable, engine.ErrNoSources.Error())
		return
	}

	posts := make([]social.Post, 0, limit)
	for _, src := range sources {
		found, err := src.UserPosts(r.Context(), userID, limit)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", src.Name()).Str("user_id", userID).
				Msg("user posts fetch failed")
			continue
		}
		posts = append(posts, found...)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Timestamp.Equal(posts[j].Timestamp) {
			return posts[i].Timestamp.After(posts[j].Timestamp)
		}
		return posts[i].ID < posts[j].ID
	})
	if len(posts) > limit {
		posts = posts[:limit]
	}

	writeJSON(w, http.StatusOK, UserPostsResponse{
		UserID: userID,
		Posts:  posts,
		Total:  len(posts),
	})
}

// ----------------------------------------------------------------------------
// Cache management
// ----------------------------------------------------------------------------

// CacheStatsResponse is the body of GET <prefix>/cache/stats.
type CacheStatsResponse struct {
	cache.Stats
	HitRate float64 `json:"hit_rate"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats := s.engine.Store().Stats()
	writeJSON(w, http.StatusOK, CacheStatsResponse{Stats: stats, HitRate: stats.HitRate()})
}

// ClearResponse is the body of the cache clearing endpoints.
type ClearResponse struct {
	Removed int `json:"removed"`
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	removed := s.engine.Store().ClearAll()
	s.logger.Info().Int("removed", removed).Msg("cache cleared")
	writeJSON(w, http.StatusOK, ClearResponse{Removed: removed})
}

func (s *Server) handleCacheExpired(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, ClearResponse{Removed: s.engine.Store().ClearExpired()})
}

// ----------------------------------------------------------------------------
// Registry listings and health
// ----------------------------------------------------------------------------

// SourceInfo describes one enabled source in GET <prefix>/sources.
type SourceInfo struct {
	Name      string               `json:"name"`
	Available bool                 `json:"available"`
	RateLimit source.RateLimitInfo `json:"rate_limit"`
}

// SourcesResponse is the body of GET <prefix>/sources.
type SourcesResponse struct {
	Sources []SourceInfo `json:"sources"`
	Types   []string     `json:"types"`
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSources(w)
	case http.MethodPost:
		s.addSource(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) listSources(w http.ResponseWriter) {
	registry := s.engine.Sources()
	enabled := registry.Enabled()
	infos := make([]SourceInfo, 0, len(enabled))
	for _, src := range enabled {
		infos = append(infos, SourceInfo{
			Name:      src.Name(),
			Available: src.Available(),
			RateLimit: src.RateLimit(),
		})
	}
	writeJSON(w, http.StatusOK, SourcesResponse{Sources: infos, Types: registry.Types()})
}

// SourceAddBody is the request body for POST <prefix>/sources. It carries
// the credentials that source.Config deliberately keeps out of JSON, so
// they can be supplied here but are never echoed by listings.
type SourceAddBody struct {
	Name           string  `json:"name"`
	Enabled        bool    `json:"enabled"`
	APIKey         string  `json:"api_key,omitempty"`
	APISecret      string  `json:"api_secret,omitempty"`
	RateLimit      int     `json:"rate_limit,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
	CacheTTL       int     `json:"cache_ttl,omitempty"`
	BotThreshold   float64 `json:"bot_threshold,omitempty"`
}

// addSource installs a source instance at runtime, replacing any previous
// instance of the same name.
func (s *Server) addSource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var body SourceAddBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	registry := s.engine.Sources()
	err := registry.Add(source.Config{
		Name:           body.Name,
		Enabled:        body.Enabled,
		APIKey:         body.APIKey,
		APISecret:      body.APISecret,
		RateLimit:      body.RateLimit,
		TimeoutSeconds: body.TimeoutSeconds,
		CacheTTL:       body.CacheTTL,
		BotThreshold:   body.BotThreshold,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info().Str("source", body.Name).Msg("source added")

	src, _ := registry.Get(body.Name)
	writeJSON(w, http.StatusCreated, SourceInfo{
		Name:      src.Name(),
		Available: src.Available(),
		RateLimit: src.RateLimit(),
	})
}

// SourceRemovedResponse is the body of DELETE <prefix>/sources/{name}.
type SourceRemovedResponse struct {
	Removed string `json:"removed"`
}

func (s *Server) handleSourceRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := r.PathValue("name")
	if err := s.engine.Sources().Remove(name); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Info().Str("source", name).Msg("source removed")
	writeJSON(w, http.StatusOK, SourceRemovedResponse{Removed: name})
}

// AnalyzersResponse is the body of GET <prefix>/analyzers.
type AnalyzersResponse struct {
	Analyzers []string `json:"analyzers"`
	Default   string   `json:"default"`
}

func (s *Server) handleAnalyzers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzersResponse{
		Analyzers: sentiment.Available(),
		Default:   s.engine.DefaultAnalyzer(),
	})
}

// HealthResponse is the body of GET <prefix>/health.
type HealthResponse struct {
	Status       string `json:"status"`
	CacheEntries int    `json:"cache_entries"`
	Sources      int    `json:"sources"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		CacheEntries: s.engine.Store().Stats().TotalEntries,
		Sources:      len(s.engine.Sources().Enabled()),
	})
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing left to do.
		_ = err
	}
}
