package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmylchreest/pagewatch/pkg/fetcher"
)

// newBrowserFetcher skips the test when no browser is installed.
func newBrowserFetcher(t *testing.T) *DynamicFetcher {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests skipped in short mode")
	}
	if FindChromePath() == "" {
		t.Skip("no Chrome binary available")
	}
	f, err := NewDynamicFetcher(Config{Timeout: 20 * time.Second})
	if err != nil {
		t.Fatalf("NewDynamicFetcher() error = %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.UserAgent != fetcher.DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.Timeout <= 0 {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}

func TestNewDynamicFetcher_NoBrowser(t *testing.T) {
	if FindChromePath() != "" {
		t.Skip("a browser is installed")
	}
	_, err := NewDynamicFetcher(Config{})
	if !errors.Is(err, ErrNoBrowser) {
		t.Errorf("NewDynamicFetcher() error = %v, want ErrNoBrowser", err)
	}
}

func TestDynamicFetcher_RendersScript(t *testing.T) {
	f := newBrowserFetcher(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Rendered</title></head><body>
<div id="out"></div>
<script>document.getElementById("out").textContent = "from script";</script>
</body></html>`))
	}))
	defer srv.Close()

	content, err := f.Fetch(context.Background(), srv.URL, fetcher.Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if content.Title != "Rendered" {
		t.Errorf("Title = %q", content.Title)
	}
	if content.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", content.StatusCode)
	}
	if !bytes.Contains(content.Body, []byte("from script")) {
		t.Errorf("body should contain rendered text, got %s", content.Body)
	}
}

func TestDynamicFetcher_ErrorStatus(t *testing.T) {
	f := newBrowserFetcher(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><body>missing</body></html>"))
	}))
	defer srv.Close()

	_, err := f.Fetch(context.Background(), srv.URL, fetcher.Options{})
	if !errors.Is(err, fetcher.ErrStatus) {
		t.Errorf("Fetch() error = %v, want ErrStatus", err)
	}
}

func TestDynamicFetcher_Type(t *testing.T) {
	f := &DynamicFetcher{}
	if f.Type() != "dynamic" {
		t.Errorf("Type() = %q", f.Type())
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
