package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"InsightBlitz/internal/ports"
)

const (
	// maxContentLength bounds extracted text so LLM prompts stay cheap.
	maxContentLength = 2000
	// minContentLength below which a page is considered not worth analyzing.
	minContentLength = 100
)

// boilerplateSelectors are stripped from the document before text extraction.
var boilerplateSelectors = []string{"script", "style", "noscript", "nav", "header", "footer", "iframe", "svg", "form"}

// Extractor fetches a domain's root page and reduces it to readable text.
type Extractor struct {
	client *http.Client
}

var _ ports.ContentSource = (*Extractor)(nil)

// New wires an HTTP client; timeout defaults to 5s.
func New(client *http.Client, timeout time.Duration) *Extractor {
	if client == nil {
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Extractor{client: client}
}

// Extract downloads https://{domain} and returns up to maxContentLength
// characters of boilerplate-free text. Responses that yield fewer than
// minContentLength characters are reported as an error so the caller can
// fall back to its cheaper tier.
func (e *Extractor) Extract(ctx context.Context, domainName string) (string, error) {
	pageURL := domainName
	if !strings.HasPrefix(pageURL, "http") {
		pageURL = "https://" + domainName
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "InsightBlitz/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned %s", domainName, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	text := extractText(doc)
	if len(text) < minContentLength {
		return "", fmt.Errorf("%s yielded only %d characters", domainName, len(text))
	}

	if len(text) > maxContentLength {
		text = text[:maxContentLength]
	}
	return text, nil
}

func extractText(doc *goquery.Document) string {
	for _, selector := range boilerplateSelectors {
		doc.Find(selector).Remove()
	}

	var parts []string
	doc.Find("title, h1, h2, h3, p, li, td").Each(func(_ int, sel *goquery.Selection) {
		if t := strings.TrimSpace(sel.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	if len(parts) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " ")
	}
	return strings.Join(parts, " ")
}
