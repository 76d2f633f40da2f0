package page

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html><html><head><title>Sample</title>` +
	`<style>body { color: red }</style></head><body>` +
	`<script>console.log("hidden")</script>` +
	`<h1>Heading</h1><p>First paragraph.</p><p>Second   paragraph.</p>` +
	`</body></html>`

func servePage(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(hosts ...string) *Fetcher {
	return NewFetcher(Config{Timeout: 5 * time.Second, AllowedHosts: hosts}, nil)
}

func TestFetchReturnsBody(t *testing.T) {
	srv := servePage(t, samplePage)
	f := newTestFetcher()

	data, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(data), "First paragraph.")
}

func TestFetchDecompressesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept-Encoding"), "gzip")
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(samplePage))
		gz.Close()
	}))
	defer srv.Close()

	f := newTestFetcher()
	data, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Heading")
}

func TestFetchRejectsNonTextContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0})
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestFetchRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchHostAllowlist(t *testing.T) {
	srv := servePage(t, samplePage)

	denied := newTestFetcher("*.example.com")
	_, err := denied.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in allowlist")

	// httptest binds to 127.0.0.1.
	allowed := newTestFetcher("127.0.0.1")
	_, err = allowed.Fetch(context.Background(), srv.URL)
	assert.NoError(t, err)
}

func TestContentStripsScriptsAndNormalizes(t *testing.T) {
	srv := servePage(t, samplePage)
	f := newTestFetcher()

	text := f.Content(context.Background(), srv.URL, 0)
	assert.Contains(t, text, "Heading First paragraph. Second paragraph.")
	assert.NotContains(t, text, "hidden")
	assert.NotContains(t, text, "color: red")
}

func TestContentTruncatesWithMarker(t *testing.T) {
	srv := servePage(t, samplePage)
	f := newTestFetcher()

	text := f.Content(context.Background(), srv.URL, 10)
	assert.True(t, strings.HasSuffix(text, TruncationMarker))
	assert.LessOrEqual(t, len(text), 10+len(TruncationMarker))
}

func TestContentUnreachablePageIsEmptyNotError(t *testing.T) {
	f := newTestFetcher()
	text := f.Content(context.Background(), "http://127.0.0.1:1/nothing-here", 100)
	assert.Empty(t, text)
}

func TestHTMLSanitizesMarkup(t *testing.T) {
	srv := servePage(t, `<html><body><p onclick="steal()">ok</p><script>bad()</script></body></html>`)
	f := newTestFetcher()

	markup := f.HTML(context.Background(), srv.URL, 0)
	assert.Contains(t, markup, "<p>ok</p>")
	assert.NotContains(t, markup, "script")
	assert.NotContains(t, markup, "onclick")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abc", 0), "non-positive limit means unbounded")
	assert.Equal(t, "ab"+TruncationMarker, Truncate("abcdef", 2))

	// Never cut inside a multibyte rune.
	s := "aé" // 'é' is two bytes starting at index 1
	assert.Equal(t, "a"+TruncationMarker, Truncate(s+"xx", 2))
}
