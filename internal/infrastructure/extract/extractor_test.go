package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!doctype html>
<html>
<head>
  <title>Acme Analytics</title>
  <script>window.tracker = true;</script>
  <style>body { color: red; }</style>
</head>
<body>
  <nav>Home | Pricing | About</nav>
  <h1>Enterprise analytics you can trust</h1>
  <p>Acme Analytics provides market-leading dashboards for competitive teams.
  Our platform processes millions of signals every day and has been trusted by
  industry leaders for over a decade of continuous operation.</p>
  <footer>Copyright Acme</footer>
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	e := New(server.Client(), 0)

	text, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}

	if !strings.Contains(text, "Enterprise analytics you can trust") {
		t.Fatalf("expected heading text, got: %q", text)
	}
	if strings.Contains(text, "window.tracker") {
		t.Fatalf("expected script content to be stripped")
	}
	if strings.Contains(text, "color: red") {
		t.Fatalf("expected style content to be stripped")
	}
	if strings.Contains(text, "Home | Pricing") {
		t.Fatalf("expected nav content to be stripped")
	}
}

func TestExtractRejectsThinPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>tiny</p></body></html>`))
	}))
	defer server.Close()

	e := New(server.Client(), 0)

	if _, err := e.Extract(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error for page below minimum content length")
	}
}

func TestExtractRejectsNon200(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := New(server.Client(), 0)

	if _, err := e.Extract(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestExtractTruncates(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("competitive signals across every market segment ", 200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>" + long + "</p></body></html>"))
	}))
	defer server.Close()

	e := New(server.Client(), 0)

	text, err := e.Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if len(text) > maxContentLength {
		t.Fatalf("expected at most %d characters, got %d", maxContentLength, len(text))
	}
}
