package domain

import (
	"fmt"
	"strings"
	"time"
)

// Insight is a core entity: a short generated statement about a domain's
// competitive position and trust signals.
type Insight struct {
	ID            string    `json:"id"`
	Domain        string    `json:"domain"`
	Content       string    `json:"content"`
	QualityScore  float64   `json:"quality_score"`
	Timestamp     time.Time `json:"timestamp"`
	Category      Category  `json:"category"`
	Model         string    `json:"model"`
	SourceLength  int       `json:"source_content_length"`
	ProcessedWith string    `json:"processing_mode,omitempty"`
}

// NewInsightID derives a stable identifier from the subject domain and
// the generation time.
func NewInsightID(domainName string, at time.Time) string {
	return fmt.Sprintf("insight_%d_%s", at.Unix(), strings.ReplaceAll(domainName, ".", "_"))
}

// Category is a coarse topic classification derived from the domain name.
type Category string

const (
	CategoryAI            Category = "artificial_intelligence"
	CategoryTechnology    Category = "technology"
	CategoryCloud         Category = "cloud_computing"
	CategoryCybersecurity Category = "cybersecurity"
	CategoryGeneral       Category = "general_business"
)

// Classify maps a domain name onto a Category by keyword matching.
func Classify(domainName string) Category {
	lower := strings.ToLower(domainName)
	switch {
	case containsAny(lower, "ai", "artificial", "intelligence"):
		return CategoryAI
	case containsAny(lower, "tech", "technology"):
		return CategoryTechnology
	case containsAny(lower, "cloud", "computing"):
		return CategoryCloud
	case containsAny(lower, "security", "cyber"):
		return CategoryCybersecurity
	default:
		return CategoryGeneral
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// EngineStatus is a point-in-time snapshot of the blitz engine counters.
type EngineStatus struct {
	Status            string  `json:"status"`
	DomainsProcessed  int64   `json:"domains_processed"`
	InsightsGenerated int64   `json:"insights_generated"`
	QualityThreshold  float64 `json:"quality_threshold"`
	TargetPerHour     int     `json:"target_per_hour"`
	SuccessRate       float64 `json:"success_rate"`
	Concurrency       int     `json:"concurrent_processes,omitempty"`
}
