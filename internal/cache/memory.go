package cache

import (
	"log/slog"
	"sync"
	"time"

	"InsightBlitz/internal/ports"
)

const defaultSweepInterval = time.Minute

// Memory is an in-process TTL cache guarding a value map and an expiry map
// behind one mutex. Expired entries are evicted lazily on Get and in bulk
// by a background sweep so steady-state reads never pay sweep cost.
type Memory struct {
	mu     sync.Mutex
	values map[string]any
	expiry map[string]time.Time
	now    func() time.Time

	sweepInterval time.Duration
	stop          chan struct{}
	sweeping      bool
	logger        *slog.Logger
}

var _ ports.Cache = (*Memory)(nil)

// NewMemory builds a cache and starts its sweep goroutine.
func NewMemory(sweepInterval time.Duration, logger *slog.Logger) *Memory {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	m := &Memory{
		values:        map[string]any{},
		expiry:        map[string]time.Time{},
		now:           time.Now,
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
		logger:        logger,
	}
	m.sweeping = true
	go m.sweepLoop()
	return m
}

// Set stores value with absolute expiry now+ttl, overwriting any entry.
func (m *Memory) Set(key string, value any, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	m.expiry[key] = m.now().Add(ttl)
}

// Get returns the live value for key. An expired entry is treated as
// absent and removed on the spot.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]
	if !ok {
		return nil, false
	}

	if m.now().Before(m.expiry[key]) {
		return value, true
	}

	delete(m.values, key)
	delete(m.expiry, key)
	return nil, false
}

// Delete removes key; absent keys are a no-op.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	delete(m.expiry, key)
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = map[string]any{}
	m.expiry = map[string]time.Time{}
}

// Stats reports occupancy split into still-valid and awaiting-sweep entries.
func (m *Memory) Stats() ports.CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0
	for _, exp := range m.expiry {
		if !now.Before(exp) {
			expired++
		}
	}

	return ports.CacheStats{
		Size:           len(m.values),
		ValidEntries:   len(m.values) - expired,
		ExpiredEntries: expired,
		SweepActive:    m.sweeping,
	}
}

// Close stops the background sweep. The cache stays usable afterwards.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sweeping {
		return
	}
	m.sweeping = false
	close(m.stop)
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	now := m.now()
	var removed int
	for key, exp := range m.expiry {
		if !now.Before(exp) {
			delete(m.values, key)
			delete(m.expiry, key)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 && m.logger != nil {
		m.logger.Debug("swept expired cache entries", "removed", removed)
	}
}
