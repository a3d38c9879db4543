package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InsightBlitz/internal/auth"
	"InsightBlitz/internal/cache"
	"InsightBlitz/internal/config"
	"InsightBlitz/internal/domain"
	"InsightBlitz/internal/engine"
)

type stubStore struct {
	insights []domain.Insight
	appended []domain.Insight
}

func (s *stubStore) Append(ctx context.Context, ins domain.Insight) error {
	s.appended = append(s.appended, ins)
	return nil
}

func (s *stubStore) Recent(ctx context.Context, limit int) ([]domain.Insight, error) {
	if limit > 0 && limit < len(s.insights) {
		return s.insights[:limit], nil
	}
	return s.insights, nil
}

func (s *stubStore) ByDomain(ctx context.Context, domainName string) ([]domain.Insight, error) {
	var out []domain.Insight
	for _, ins := range s.insights {
		if strings.EqualFold(ins.Domain, domainName) {
			out = append(out, ins)
		}
	}
	return out, nil
}

type stubPool struct{ domains []string }

func (s *stubPool) Domains(ctx context.Context) ([]string, error) { return s.domains, nil }

type stubGenerator struct{}

func (stubGenerator) Generate(ctx context.Context, domainName string) domain.Insight {
	return domain.Insight{Domain: domainName, QualityScore: 0.9, Content: "insight"}
}

func newTestServer(t *testing.T, store *stubStore, pool *stubPool) (*Server, *engine.Engine, *cache.Memory) {
	t.Helper()

	eng := engine.New(engine.Config{TargetPerHour: 500}, stubGenerator{}, store, pool, nil)
	t.Cleanup(func() { eng.Stop() })

	c := cache.NewMemory(time.Hour, nil)
	t.Cleanup(c.Close)

	keys, err := auth.NewManager("secret", "", nil)
	require.NoError(t, err)

	h := NewHandlers(store, pool, eng, c, time.Minute, keys, nil)
	cfg := config.ServerConfig{AllowedOrigins: []string{"http://localhost"}}
	return NewServer(cfg, h, keys), eng, c
}

func get(t *testing.T, srv *Server, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func post(t *testing.T, srv *Server, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthNoAuth(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, &stubStore{}, &stubPool{})

	rec := get(t, srv, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAPIRequiresToken(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, &stubStore{}, &stubPool{})

	rec := get(t, srv, "/api/status", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, srv, "/api/status", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(t, srv, "/api/status", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetDomains(t *testing.T) {
	t.Parallel()

	store := &stubStore{insights: []domain.Insight{
		{Domain: "a.com", QualityScore: 0.8},
		{Domain: "A.com", QualityScore: 0.9},
	}}
	srv, _, _ := newTestServer(t, store, &stubPool{domains: []string{"a.com", "b.com"}})

	rec := get(t, srv, "/api/domains", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Domains []struct {
			Domain   string `json:"domain"`
			Insights int    `json:"insights"`
		} `json:"domains"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, 2, body.Domains[0].Insights, "counts are case-insensitive")
	assert.Equal(t, 0, body.Domains[1].Insights)
}

func TestGetDomainNotFound(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, &stubStore{}, &stubPool{domains: []string{"a.com"}})

	rec := get(t, srv, "/api/domains/unknown.com", "secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDomainInsights(t *testing.T) {
	t.Parallel()

	store := &stubStore{insights: []domain.Insight{
		{ID: "i1", Domain: "a.com", QualityScore: 0.8},
		{ID: "i2", Domain: "b.com", QualityScore: 0.9},
	}}
	srv, _, _ := newTestServer(t, store, &stubPool{domains: []string{"a.com", "b.com"}})

	rec := get(t, srv, "/api/domains/a.com/insights", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total    int              `json:"total"`
		Insights []domain.Insight `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "i1", body.Insights[0].ID)
}

func TestRecentInsightsLimit(t *testing.T) {
	t.Parallel()

	store := &stubStore{insights: []domain.Insight{
		{ID: "i1", Domain: "a.com"}, {ID: "i2", Domain: "b.com"}, {ID: "i3", Domain: "c.com"},
	}}
	srv, _, _ := newTestServer(t, store, &stubPool{})

	rec := get(t, srv, "/api/insights?limit=2", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)

	rec = get(t, srv, "/api/insights?limit=bogus", "secret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentInsightsCached(t *testing.T) {
	t.Parallel()

	store := &stubStore{insights: []domain.Insight{{ID: "i1", Domain: "a.com"}}}
	srv, _, _ := newTestServer(t, store, &stubPool{})

	first := get(t, srv, "/api/insights", "secret")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Empty(t, first.Header().Get("X-Cache"))

	// mutate the store; the cached response must win until TTL expiry
	store.insights = append(store.insights, domain.Insight{ID: "i2", Domain: "b.com"})

	second := get(t, srv, "/api/insights", "secret")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hit", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestEngineStartStopEndpoints(t *testing.T) {
	t.Parallel()

	srv, eng, _ := newTestServer(t, &stubStore{}, &stubPool{})

	rec := post(t, srv, "/api/engine/start", "secret", `{"target_per_hour": 1000}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var started struct {
		Status        string `json:"status"`
		TargetPerHour int    `json:"target_per_hour"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "started", started.Status)
	assert.Equal(t, 1000, started.TargetPerHour)
	assert.True(t, eng.Running())

	rec = post(t, srv, "/api/engine/start", "secret", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "already_running", started.Status)

	rec = post(t, srv, "/api/engine/stop", "secret", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, eng.Running())
}

func TestCacheStatsEndpoint(t *testing.T) {
	t.Parallel()

	srv, _, c := newTestServer(t, &stubStore{}, &stubPool{})
	c.Set("k", "v", time.Minute)

	rec := get(t, srv, "/api/cache/stats", "secret")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Size        int  `json:"size"`
		SweepActive bool `json:"sweep_active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Size)
	assert.True(t, stats.SweepActive)
}

func TestNotFoundIsJSON(t *testing.T) {
	t.Parallel()

	srv, _, _ := newTestServer(t, &stubStore{}, &stubPool{})

	rec := get(t, srv, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}
