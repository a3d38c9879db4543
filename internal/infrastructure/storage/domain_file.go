package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"

	"InsightBlitz/internal/ports"
)

// FileDomainSource reads the candidate domain pool from a JSON file. The
// file holds either a flat array of names or an object keyed by name
// (the shape older deployments produced).
type FileDomainSource struct {
	path   string
	logger *slog.Logger
}

var _ ports.DomainSource = (*FileDomainSource)(nil)

// NewFileDomainSource wires the pool file path.
func NewFileDomainSource(path string, logger *slog.Logger) *FileDomainSource {
	return &FileDomainSource{path: path, logger: logger}
}

// Domains returns the ordered pool. A missing or corrupt file yields an
// empty pool, which the engine treats as no-op cycles.
func (f *FileDomainSource) Domains(ctx context.Context) ([]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read domain pool: %w", err)
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err != nil {
		if f.logger != nil {
			f.logger.Error("domain pool file is corrupt", "path", f.path, "error", err)
		}
		return nil, nil
	}

	list = make([]string, 0, len(keyed))
	for name := range keyed {
		list = append(list, name)
	}
	sort.Strings(list)
	return list, nil
}
