package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Key is one issued API credential.
type Key struct {
	Token     string    `json:"token"`
	Partner   string    `json:"partner"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used,omitempty"`
}

// Manager validates bearer tokens against a static token and/or a
// file-backed key set. Both may be configured; either match authorizes
// the request.
type Manager struct {
	staticToken string
	keysPath    string
	logger      *slog.Logger

	mu   sync.RWMutex
	keys map[string]*Key
}

// NewManager loads the key file if a path is configured. A missing file
// is an empty key set, not an error.
func NewManager(staticToken, keysPath string, logger *slog.Logger) (*Manager, error) {
	m := &Manager{
		staticToken: staticToken,
		keysPath:    keysPath,
		logger:      logger,
		keys:        map[string]*Key{},
	}

	if keysPath != "" {
		if err := m.loadKeys(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Authorize reports whether the bearer token in the request is valid and
// records last-use for file-backed keys.
func (m *Manager) Authorize(r *http.Request) bool {
	token := bearerToken(r)
	if token == "" {
		return false
	}

	if m.staticToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(m.staticToken)) == 1 {
		return true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.keys[token]
	if !ok {
		return false
	}
	key.LastUsed = time.Now()
	return true
}

// CreateKey issues a new uuid-based key for a partner and persists the set.
func (m *Manager) CreateKey(partner string) (Key, error) {
	if m.keysPath == "" {
		return Key{}, fmt.Errorf("key storage is not configured")
	}

	key := Key{
		Token:     "llmpr_" + uuid.NewString(),
		Partner:   partner,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.keys[key.Token] = &key
	if err := m.saveKeysLocked(); err != nil {
		delete(m.keys, key.Token)
		return Key{}, err
	}

	if m.logger != nil {
		m.logger.Info("api key issued", "partner", partner)
	}
	return key, nil
}

// Middleware rejects unauthorized requests with a JSON 401.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Authorize(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) loadKeys() error {
	raw, err := os.ReadFile(m.keysPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read api keys: %w", err)
	}

	var keys []*Key
	if err := json.Unmarshal(raw, &keys); err != nil {
		return fmt.Errorf("parse api keys: %w", err)
	}

	for _, key := range keys {
		m.keys[key.Token] = key
	}
	if m.logger != nil {
		m.logger.Info("api keys loaded", "count", len(keys))
	}
	return nil
}

func (m *Manager) saveKeysLocked() error {
	keys := make([]*Key, 0, len(m.keys))
	for _, key := range m.keys {
		keys = append(keys, key)
	}

	payload, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal api keys: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.keysPath), 0o755); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}
	if err := os.WriteFile(m.keysPath, payload, 0o600); err != nil {
		return fmt.Errorf("write api keys: %w", err)
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
