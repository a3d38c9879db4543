package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"InsightBlitz/internal/domain"
	"InsightBlitz/internal/ports"
)

const defaultRetentionCap = 1000

// JSONStore keeps accepted insights in a single JSON array file with
// bounded retention. The engine is the only writer; the mutex protects
// the read-modify-write cycle against the API handlers reading
// concurrently through this same store.
type JSONStore struct {
	path         string
	retentionCap int
	mu           sync.Mutex
	logger       *slog.Logger
}

var _ ports.InsightStore = (*JSONStore)(nil)

// NewJSONStore wires the log file path; retentionCap defaults to 1000.
func NewJSONStore(path string, retentionCap int, logger *slog.Logger) *JSONStore {
	if retentionCap <= 0 {
		retentionCap = defaultRetentionCap
	}
	return &JSONStore{path: path, retentionCap: retentionCap, logger: logger}
}

// Append adds the insight and prunes the oldest entries beyond the cap.
// The rewrite goes through a temp file and rename so a crash mid-write
// never leaves a truncated log behind.
func (s *JSONStore) Append(ctx context.Context, insight domain.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	insights, err := s.load()
	if err != nil {
		return err
	}

	insights = append(insights, insight)
	if len(insights) > s.retentionCap {
		insights = insights[len(insights)-s.retentionCap:]
	}

	return s.write(insights)
}

// Recent returns up to limit insights, newest first.
func (s *JSONStore) Recent(ctx context.Context, limit int) ([]domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	insights, err := s.load()
	if err != nil {
		return nil, err
	}

	// stored oldest-first; reverse into newest-first
	out := make([]domain.Insight, 0, len(insights))
	for i := len(insights) - 1; i >= 0; i-- {
		out = append(out, insights[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ByDomain returns all retained insights for one domain, newest first.
func (s *JSONStore) ByDomain(ctx context.Context, domainName string) ([]domain.Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	insights, err := s.load()
	if err != nil {
		return nil, err
	}

	var out []domain.Insight
	for i := len(insights) - 1; i >= 0; i-- {
		if strings.EqualFold(insights[i].Domain, domainName) {
			out = append(out, insights[i])
		}
	}
	return out, nil
}

// load reads the current log. A missing file is legitimately empty; a
// present-but-unparseable file is surfaced in the log and then treated
// as empty rather than halting the engine.
func (s *JSONStore) load() ([]domain.Insight, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read insight log: %w", err)
	}

	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	var insights []domain.Insight
	if err := json.Unmarshal(raw, &insights); err != nil {
		if s.logger != nil {
			s.logger.Error("insight log is corrupt, starting over", "path", s.path, "error", err)
		}
		return nil, nil
	}
	return insights, nil
}

func (s *JSONStore) write(insights []domain.Insight) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create insight dir: %w", err)
	}

	payload, err := json.MarshalIndent(insights, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write insight log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace insight log: %w", err)
	}
	return nil
}
