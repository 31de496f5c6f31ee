package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsewatch/pulsewatch/internal/engine"
	"github.com/pulsewatch/pulsewatch/internal/engine/cache"
	"github.com/pulsewatch/pulsewatch/internal/social"
	"github.com/pulsewatch/pulsewatch/internal/source"
)

// setupServer wires a full stack on the deterministic demo source and
// returns a running test server.
func setupServer(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()

	registry := source.NewRegistry()
	require.NoError(t, registry.Add(source.Config{Name: source.DemoName, Enabled: true}))

	store, err := cache.NewStore(64)
	require.NoError(t, err)

	eng := engine.New(store, registry, engine.Options{
		DefaultTTL: time.Minute,
		Logger:     zerolog.Nop(),
	})

	mux := http.NewServeMux()
	NewServer(eng, zerolog.Nop()).RegisterHTTPHandlers("api/v1", mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, eng
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func doDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHandleAnalyze(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("returns an analysis result", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze", AnalyzeBody{
			SearchQuery: social.SearchQuery{Query: "golang", Limit: 10},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := decodeBody[social.AnalysisResult](t, resp)
		assert.Equal(t, "golang", result.Query)
		assert.Equal(t, []string{"demo"}, result.SourcesUsed)
		assert.NotEmpty(t, result.Posts)
		assert.Len(t, result.Sentiments, len(result.Posts))
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/analyze", "application/json", bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects an empty query", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze", AnalyzeBody{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects an out-of-range ttl", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze", AnalyzeBody{
			SearchQuery: social.SearchQuery{Query: "golang"},
			TTLSeconds:  99999999,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects an unknown analyzer", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze", AnalyzeBody{
			SearchQuery: social.SearchQuery{Query: "golang"},
			Analyzer:    "nope",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown source is service unavailable", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze", AnalyzeBody{
			SearchQuery: social.SearchQuery{Query: "golang", DataSources: []string{"nope"}},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/analyze")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestAnalyzeQueryParams(t *testing.T) {
	t.Run("no_cache=true bypasses the cache", func(t *testing.T) {
		srv, eng := setupServer(t)
		for i := 0; i < 2; i++ {
			resp := postJSON(t, srv.URL+"/api/v1/analyze?no_cache=true", AnalyzeBody{
				SearchQuery: social.SearchQuery{Query: "golang"},
			})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			resp.Body.Close()
		}
		assert.Zero(t, eng.Store().Stats().TotalEntries)
	})

	t.Run("analyzer param wins over the body", func(t *testing.T) {
		srv, _ := setupServer(t)
		resp := postJSON(t, srv.URL+"/api/v1/analyze?analyzer=nope", AnalyzeBody{
			SearchQuery: social.SearchQuery{Query: "golang"},
			Analyzer:    "lexicon",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-boolean no_cache is a bad request", func(t *testing.T) {
		srv, _ := setupServer(t)
		resp := postJSON(t, srv.URL+"/api/v1/analyze?no_cache=maybe", AnalyzeBody{
			SearchQuery: social.SearchQuery{Query: "golang"},
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleAnalyzeText(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("scores a single text", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze-text", AnalyzeTextBody{
			Text: "I love this, it is amazing",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[AnalyzeTextResponse](t, resp)
		assert.Equal(t, social.SentimentPositive, body.Sentiment)
		assert.Positive(t, body.Polarity)
		assert.Equal(t, "lexicon", body.Analyzer)
	})

	t.Run("honors the analyzer field", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze-text", AnalyzeTextBody{
			Text:     "the sky is blue",
			Analyzer: "pattern",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "pattern", decodeBody[AnalyzeTextResponse](t, resp).Analyzer)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze-text", AnalyzeTextBody{Text: "   "})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects an unknown analyzer", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/analyze-text", AnalyzeTextBody{
			Text:     "fine",
			Analyzer: "nope",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/analyze-text")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestHandleUserPosts(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("returns posts by the author", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/users/alice/posts?limit=5")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody[UserPostsResponse](t, resp)
		assert.Equal(t, "alice", body.UserID)
		assert.Equal(t, len(body.Posts), body.Total)
		require.NotEmpty(t, body.Posts)
		assert.LessOrEqual(t, len(body.Posts), 5)
		for _, post := range body.Posts {
			assert.Equal(t, "alice", post.Author)
		}
	})

	t.Run("restricts to the named source", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/users/alice/posts?source=demo&limit=3")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, decodeBody[UserPostsResponse](t, resp).Posts)
	})

	t.Run("unknown source is not found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/users/alice/posts?source=nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("out-of-range limit is a bad request", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/users/alice/posts?limit=0")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects POST", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/api/v1/users/alice/posts", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestSourceManagement(t *testing.T) {
	srv, eng := setupServer(t)

	t.Run("add installs a configured source", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/sources", SourceAddBody{Name: "reddit", Enabled: true})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "reddit", decodeBody[SourceInfo](t, resp).Name)

		_, ok := eng.Sources().Get("reddit")
		assert.True(t, ok)
	})

	t.Run("listing includes the new source", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/sources")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		names := make([]string, 0)
		for _, info := range decodeBody[SourcesResponse](t, resp).Sources {
			names = append(names, info.Name)
		}
		assert.Contains(t, names, "reddit")
		assert.Contains(t, names, "demo")
	})

	t.Run("remove uninstalls it", func(t *testing.T) {
		resp := doDelete(t, srv.URL+"/api/v1/sources/reddit")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "reddit", decodeBody[SourceRemovedResponse](t, resp).Removed)

		_, ok := eng.Sources().Get("reddit")
		assert.False(t, ok)
	})

	t.Run("removing twice is not found", func(t *testing.T) {
		resp := doDelete(t, srv.URL+"/api/v1/sources/reddit")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown type is a bad request", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/sources", SourceAddBody{Name: "bogus", Enabled: true})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unavailable source is a bad request", func(t *testing.T) {
		// Twitter without an API key reports itself unavailable.
		resp := postJSON(t, srv.URL+"/api/v1/sources", SourceAddBody{Name: "twitter", Enabled: true})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing name is a bad request", func(t *testing.T) {
		resp := postJSON(t, srv.URL+"/api/v1/sources", SourceAddBody{Enabled: true})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleDashboardSummary(t *testing.T) {
	srv, _ := setupServer(t)

	t.Run("returns the roll-up", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/dashboard/summary?query=golang&limit=20&top=3")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		summary := decodeBody[engine.Summary](t, resp)
		assert.Equal(t, "golang", summary.Query)
		assert.NotZero(t, summary.TotalPosts)
		assert.LessOrEqual(t, len(summary.TopRegions), 3)
		assert.Equal(t, []string{"demo"}, summary.SourcesUsed)
	})

	t.Run("missing query is a bad request", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/dashboard/summary")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-numeric limit is a bad request", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/dashboard/summary?query=golang&limit=lots")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestHandleDashboardGeographic(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/dashboard/geographic?query=golang&limit=20")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[GeographicResponse](t, resp)
	assert.Equal(t, "golang", body.Query)
	require.NotEmpty(t, body.GeographicData)
	for _, region := range body.GeographicData {
		assert.NotEmpty(t, region.Location)
		assert.NotZero(t, region.TotalPosts)
	}
}

func TestCacheEndpoints(t *testing.T) {
	srv, _ := setupServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/analyze", AnalyzeBody{
		SearchQuery: social.SearchQuery{Query: "golang"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	t.Run("stats reflects the cached entry", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/cache/stats")
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		stats := decodeBody[CacheStatsResponse](t, resp)
		assert.Equal(t, 1, stats.TotalEntries)
		assert.Equal(t, uint64(1), stats.TotalMisses)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		resp := doDelete(t, srv.URL+"/api/v1/cache/clear")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, decodeBody[ClearResponse](t, resp).Removed)
	})

	t.Run("expired sweep on a fresh store removes nothing", func(t *testing.T) {
		resp := doDelete(t, srv.URL+"/api/v1/cache/expired")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Zero(t, decodeBody[ClearResponse](t, resp).Removed)
	})

	t.Run("clear rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/v1/cache/clear")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestHandleSources(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/sources")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[SourcesResponse](t, resp)
	require.Len(t, body.Sources, 1)
	assert.Equal(t, "demo", body.Sources[0].Name)
	assert.True(t, body.Sources[0].Available)
	assert.Contains(t, body.Types, "twitter")
	assert.Contains(t, body.Types, "reddit")
}

func TestHandleAnalyzers(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/analyzers")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[AnalyzersResponse](t, resp)
	assert.Contains(t, body.Analyzers, "lexicon")
	assert.Contains(t, body.Analyzers, "pattern")
	assert.Equal(t, "lexicon", body.Default)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[HealthResponse](t, resp)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 1, body.Sources)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	// Generate at least one observation first.
	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "pulsewatch_http_requests_total")
	assert.Contains(t, string(raw), "pulsewatch_cache_entries")
}
