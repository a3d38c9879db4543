package insight

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"InsightBlitz/internal/domain"
)

type stubSource struct {
	content string
	err     error
}

func (s *stubSource) Extract(ctx context.Context, domainName string) (string, error) {
	return s.content, s.err
}

type stubChat struct {
	text string
	err  error
}

func (s *stubChat) GenerateInsight(ctx context.Context, domainName, content string) (string, error) {
	return s.text, s.err
}

func (s *stubChat) Model() string { return "gpt-4o-mini" }

func TestGenerateWithLLM(t *testing.T) {
	t.Parallel()

	g := NewGenerator(
		&stubSource{content: strings.Repeat("rich page content ", 50)},
		&stubChat{text: "acme.com shows strong competitive market position and trust signals."},
		nil,
	)

	got := g.Generate(context.Background(), "acme.com")

	if got.Model != "gpt-4o-mini" {
		t.Fatalf("expected llm attribution, got %s", got.Model)
	}
	if got.Domain != "acme.com" {
		t.Fatalf("unexpected domain: %s", got.Domain)
	}
	if got.QualityScore <= 0 || got.QualityScore > 1 {
		t.Fatalf("score out of range: %v", got.QualityScore)
	}
	if got.ID == "" {
		t.Fatalf("expected derived id")
	}
}

func TestGenerateFallsBackToTemplateOnLLMError(t *testing.T) {
	t.Parallel()

	g := NewGenerator(
		&stubSource{content: strings.Repeat("x", 1200)},
		&stubChat{err: errors.New("endpoint down")},
		nil,
	)

	got := g.Generate(context.Background(), "acme.com")

	if got.Model != ModelTemplate {
		t.Fatalf("expected template attribution, got %s", got.Model)
	}
	if !strings.Contains(got.Content, "strong trust signals") {
		t.Fatalf("expected strong tier for long content, got %q", got.Content)
	}
}

func TestGenerateFallbackChain(t *testing.T) {
	t.Parallel()

	// fetch forced to fail, no LLM configured
	g := NewGenerator(&stubSource{err: errors.New("unreachable")}, nil, nil)

	first := g.Generate(context.Background(), "unreachable-domain-xyz.invalid")

	if first.Content == "" {
		t.Fatalf("expected non-empty fallback insight")
	}
	if first.Model != ModelTemplate {
		t.Fatalf("expected template attribution, got %s", first.Model)
	}
	if !strings.Contains(first.Content, "unreachable-domain-xyz.invalid") {
		t.Fatalf("expected domain in template: %q", first.Content)
	}

	second := g.Generate(context.Background(), "unreachable-domain-xyz.invalid")
	if first.Content != second.Content {
		t.Fatalf("expected deterministic fallback content")
	}
	if first.QualityScore != second.QualityScore {
		t.Fatalf("expected deterministic fallback score")
	}
}

func TestGenerateTrustSignalTiers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		length int
		want   string
	}{
		{1500, "strong"},
		{700, "moderate"},
		{200, "developing"},
	}

	for _, tc := range cases {
		g := NewGenerator(&stubSource{content: strings.Repeat("x", tc.length)}, nil, nil)
		got := g.Generate(context.Background(), "acme.com")
		if !strings.Contains(got.Content, tc.want+" trust signals") {
			t.Fatalf("content length %d: expected %q tier, got %q", tc.length, tc.want, got.Content)
		}
	}
}

func TestDomainNameContentHeuristics(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"deepai.com":     "artificial intelligence",
		"futuretech.com": "technology sector",
		"cloudbase.io":   "cloud computing",
		"greenshop.com":  "business domain",
	}

	for domainName, want := range cases {
		got := domainNameContent(domainName)
		if !strings.Contains(got, want) {
			t.Fatalf("%s: expected %q in %q", domainName, want, got)
		}
	}
}

func TestGenerateCategory(t *testing.T) {
	t.Parallel()

	g := NewGenerator(&stubSource{err: errors.New("unreachable")}, nil, nil)
	g.now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }

	got := g.Generate(context.Background(), "cybersecurity-labs.com")

	if got.Category != domain.CategoryCybersecurity {
		t.Fatalf("unexpected category: %s", got.Category)
	}
	if got.ID != "insight_1748736000_cybersecurity-labs_com" {
		t.Fatalf("unexpected id: %s", got.ID)
	}
}
