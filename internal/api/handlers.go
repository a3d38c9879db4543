package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"InsightBlitz/internal/auth"
	"InsightBlitz/internal/domain"
	"InsightBlitz/internal/engine"
	"InsightBlitz/internal/ports"
)

const defaultInsightLimit = 50

// Handlers serves insight and engine data over REST, memoizing read
// responses in the TTL cache so repeated partner traffic does not
// re-read the store each time.
type Handlers struct {
	store    ports.InsightStore
	domains  ports.DomainSource
	eng      *engine.Engine
	cache    ports.Cache
	cacheTTL time.Duration
	keys     *auth.Manager
	logger   *slog.Logger
}

// NewHandlers wires the handler dependencies.
func NewHandlers(store ports.InsightStore, domains ports.DomainSource, eng *engine.Engine,
	cache ports.Cache, cacheTTL time.Duration, keys *auth.Manager, logger *slog.Logger) *Handlers {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Handlers{
		store:    store,
		domains:  domains,
		eng:      eng,
		cache:    cache,
		cacheTTL: cacheTTL,
		keys:     keys,
		logger:   logger,
	}
}

// HealthCheck reports liveness plus the engine state.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"engine_running": h.eng.Running(),
		"time":           time.Now().UTC().Format(time.RFC3339),
	})
}

// GetDomains lists the candidate pool with per-domain insight counts.
func (h *Handlers) GetDomains(w http.ResponseWriter, r *http.Request) {
	if h.serveCached(w, "domains") {
		return
	}

	pool, err := h.domains.Domains(r.Context())
	if err != nil {
		h.fail(w, "load domain pool", err)
		return
	}

	counts := map[string]int{}
	insights, err := h.store.Recent(r.Context(), 0)
	if err != nil {
		h.fail(w, "load insights", err)
		return
	}
	for _, ins := range insights {
		counts[strings.ToLower(ins.Domain)]++
	}

	type entry struct {
		Domain   string `json:"domain"`
		Insights int    `json:"insights"`
	}
	out := make([]entry, 0, len(pool))
	for _, name := range pool {
		out = append(out, entry{Domain: name, Insights: counts[strings.ToLower(name)]})
	}

	h.serveAndCache(w, "domains", map[string]any{
		"domains": out,
		"total":   len(out),
	})
}

// GetDomain returns pool membership plus recent insights for one domain.
func (h *Handlers) GetDomain(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	cacheKey := "domain:" + strings.ToLower(name)
	if h.serveCached(w, cacheKey) {
		return
	}

	pool, err := h.domains.Domains(r.Context())
	if err != nil {
		h.fail(w, "load domain pool", err)
		return
	}

	inPool := false
	for _, d := range pool {
		if strings.EqualFold(d, name) {
			inPool = true
			break
		}
	}

	insights, err := h.store.ByDomain(r.Context(), name)
	if err != nil {
		h.fail(w, "load insights", err)
		return
	}
	if !inPool && len(insights) == 0 {
		writeError(w, http.StatusNotFound, "unknown domain")
		return
	}

	var avg float64
	for _, ins := range insights {
		avg += ins.QualityScore
	}
	if len(insights) > 0 {
		avg /= float64(len(insights))
	}

	h.serveAndCache(w, cacheKey, map[string]any{
		"domain":          name,
		"in_pool":         inPool,
		"insight_count":   len(insights),
		"average_quality": avg,
		"recent_insights": clip(insights, 5),
	})
}

// GetDomainInsights returns the full retained history for one domain.
func (h *Handlers) GetDomainInsights(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	cacheKey := "domain_insights:" + strings.ToLower(name)
	if h.serveCached(w, cacheKey) {
		return
	}

	insights, err := h.store.ByDomain(r.Context(), name)
	if err != nil {
		h.fail(w, "load insights", err)
		return
	}

	h.serveAndCache(w, cacheKey, map[string]any{
		"domain":   name,
		"insights": emptyIfNil(insights),
		"total":    len(insights),
	})
}

// GetRecentInsights returns the newest accepted insights across all domains.
func (h *Handlers) GetRecentInsights(w http.ResponseWriter, r *http.Request) {
	limit := defaultInsightLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	cacheKey := "insights:" + strconv.Itoa(limit)
	if h.serveCached(w, cacheKey) {
		return
	}

	insights, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		h.fail(w, "load insights", err)
		return
	}

	h.serveAndCache(w, cacheKey, map[string]any{
		"insights": emptyIfNil(insights),
		"total":    len(insights),
	})
}

// GetStatus returns the engine counter snapshot; it always succeeds.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Status())
}

// StartEngine starts the blitz loop, optionally overriding the target rate.
func (h *Handlers) StartEngine(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetPerHour int `json:"target_per_hour"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	writeJSON(w, http.StatusOK, h.eng.Start(body.TargetPerHour))
}

// StopEngine cooperatively stops the blitz loop.
func (h *Handlers) StopEngine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Stop())
}

// GetCacheStats exposes the TTL cache diagnostic snapshot.
func (h *Handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

// CreateKey issues a partner API key.
func (h *Handlers) CreateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Partner string `json:"partner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Partner == "" {
		writeError(w, http.StatusBadRequest, "partner is required")
		return
	}

	key, err := h.keys.CreateKey(body.Partner)
	if err != nil {
		h.fail(w, "create key", err)
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

// serveCached writes a previously memoized response body, if any. The
// cached value is the response structure itself so the memory and redis
// cache variants behave alike.
func (h *Handlers) serveCached(w http.ResponseWriter, key string) bool {
	if h.cache == nil {
		return false
	}
	value, ok := h.cache.Get(key)
	if !ok {
		return false
	}

	w.Header().Set("X-Cache", "hit")
	writeJSON(w, http.StatusOK, value)
	return true
}

func (h *Handlers) serveAndCache(w http.ResponseWriter, key string, body any) {
	if h.cache != nil {
		h.cache.Set(key, body, h.cacheTTL)
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handlers) fail(w http.ResponseWriter, action string, err error) {
	if h.logger != nil {
		h.logger.Error(action+" failed", "error", err)
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func clip(insights []domain.Insight, max int) []domain.Insight {
	if len(insights) > max {
		return insights[:max]
	}
	return emptyIfNil(insights)
}

func emptyIfNil(insights []domain.Insight) []domain.Insight {
	if insights == nil {
		return []domain.Insight{}
	}
	return insights
}
