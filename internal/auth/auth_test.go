package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestStaticToken(t *testing.T) {
	t.Parallel()

	m, err := NewManager("secret-token", "", nil)
	require.NoError(t, err)

	assert.True(t, m.Authorize(authedRequest("secret-token")))
	assert.False(t, m.Authorize(authedRequest("wrong-token")))
	assert.False(t, m.Authorize(authedRequest("")))
}

func TestFileBackedKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "api_keys.json")

	m, err := NewManager("", path, nil)
	require.NoError(t, err)

	key, err := m.CreateKey("acme-partner")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key.Token, "llmpr_"))

	assert.True(t, m.Authorize(authedRequest(key.Token)))

	// a fresh manager sees the persisted key
	reloaded, err := NewManager("", path, nil)
	require.NoError(t, err)
	assert.True(t, reloaded.Authorize(authedRequest(key.Token)))
}

func TestLastUsedTracking(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "api_keys.json")
	m, err := NewManager("", path, nil)
	require.NoError(t, err)

	key, err := m.CreateKey("acme")
	require.NoError(t, err)

	require.True(t, m.Authorize(authedRequest(key.Token)))

	m.mu.RLock()
	defer m.mu.RUnlock()
	assert.False(t, m.keys[key.Token].LastUsed.IsZero())
}

func TestCreateKeyWithoutStorage(t *testing.T) {
	t.Parallel()

	m, err := NewManager("static", "", nil)
	require.NoError(t, err)

	_, err = m.CreateKey("acme")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	m, err := NewManager("secret", "", nil)
	require.NoError(t, err)

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("secret"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
