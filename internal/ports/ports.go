package ports

import (
	"context"
	"time"

	"InsightBlitz/internal/domain"
)

// DomainSource exposes the rotating pool of candidate domains.
type DomainSource interface {
	Domains(ctx context.Context) ([]string, error)
}

// ContentSource fetches and extracts readable text for a domain's root page.
type ContentSource interface {
	Extract(ctx context.Context, domainName string) (string, error)
}

// ChatClient generates insight text via an LLM chat-completion API.
type ChatClient interface {
	GenerateInsight(ctx context.Context, domainName, content string) (string, error)
	Model() string
}

// InsightStore persists accepted insights with bounded retention.
type InsightStore interface {
	Append(ctx context.Context, insight domain.Insight) error
	Recent(ctx context.Context, limit int) ([]domain.Insight, error)
	ByDomain(ctx context.Context, domainName string) ([]domain.Insight, error)
}

// Cache memoizes expensive computations with per-entry expiry.
type Cache interface {
	Set(key string, value any, ttl time.Duration)
	Get(key string) (any, bool)
	Delete(key string)
	Clear()
	Stats() CacheStats
}

// CacheStats is a diagnostic snapshot of cache occupancy.
type CacheStats struct {
	Size           int  `json:"size"`
	ValidEntries   int  `json:"valid_entries"`
	ExpiredEntries int  `json:"expired_entries"`
	SweepActive    bool `json:"sweep_active"`
}
