package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"InsightBlitz/internal/domain"
	"InsightBlitz/internal/ports"
)

// ModelTemplate attributes insights produced without an LLM.
const ModelTemplate = "template"

// Generator produces insight content for a domain through tiered fallbacks:
// live page content when reachable, a domain-name heuristic otherwise, and
// an LLM synthesis when configured, a content-statistics template otherwise.
// No tier failure is fatal; each falls through to the next.
type Generator struct {
	source ports.ContentSource
	chat   ports.ChatClient
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator wires the content source and an optional chat client.
// A nil chat client means permanent template-only mode.
func NewGenerator(source ports.ContentSource, chat ports.ChatClient, logger *slog.Logger) *Generator {
	return &Generator{
		source: source,
		chat:   chat,
		logger: logger,
		now:    time.Now,
	}
}

// Generate builds a complete, unscored insight for the domain.
func (g *Generator) Generate(ctx context.Context, domainName string) domain.Insight {
	content := g.extract(ctx, domainName)
	text, model := g.synthesize(ctx, domainName, content)
	now := g.now()

	return domain.Insight{
		ID:           domain.NewInsightID(domainName, now),
		Domain:       domainName,
		Content:      text,
		QualityScore: Score(text, content),
		Timestamp:    now,
		Category:     domain.Classify(domainName),
		Model:        model,
		SourceLength: len(content),
	}
}

func (g *Generator) extract(ctx context.Context, domainName string) string {
	if g.source != nil {
		content, err := g.source.Extract(ctx, domainName)
		if err == nil {
			return content
		}
		g.debug("content extraction failed", "domain", domainName, "error", err)
	}

	return domainNameContent(domainName)
}

func (g *Generator) synthesize(ctx context.Context, domainName, content string) (string, string) {
	if g.chat != nil {
		text, err := g.chat.GenerateInsight(ctx, domainName, content)
		if err == nil {
			return text, g.chat.Model()
		}
		g.debug("llm synthesis failed", "domain", domainName, "error", err)
	}

	return statsTemplate(domainName, content), ModelTemplate
}

// domainNameContent derives stand-in source content from lexical analysis
// of the domain name when the live page is unreachable or too thin.
func domainNameContent(domainName string) string {
	stripped := domainName
	for _, suffix := range []string{".com", ".org", ".io"} {
		stripped = strings.ReplaceAll(stripped, suffix, "")
	}
	lower := strings.ToLower(stripped)

	switch {
	case strings.Contains(lower, "ai"):
		return fmt.Sprintf("%s appears to be in the artificial intelligence sector. The domain suggests AI-focused services or products.", domainName)
	case strings.Contains(lower, "tech"):
		return fmt.Sprintf("%s operates in the technology sector with focus on technical solutions and innovation.", domainName)
	case strings.Contains(lower, "cloud"):
		return fmt.Sprintf("%s provides cloud computing services and infrastructure solutions.", domainName)
	default:
		return fmt.Sprintf("%s is a business domain providing specialized services in their market sector.", domainName)
	}
}

// statsTemplate builds a deterministic insight from simple statistics of
// the source content, bucketed into qualitative trust-signal tiers.
func statsTemplate(domainName, content string) string {
	wordCount := len(strings.Fields(content))

	var trustSignal string
	switch {
	case len(content) > 1000:
		trustSignal = "strong"
	case len(content) > 500:
		trustSignal = "moderate"
	default:
		trustSignal = "developing"
	}

	return fmt.Sprintf(
		"%s shows %s trust signals with %d words of content. Their market presence indicates established positioning in their sector with clear value proposition.",
		domainName, trustSignal, wordCount)
}

func (g *Generator) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
