package page

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/firelink/firebridge/internal/logging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// MaxPageSize caps fetched page bodies at 10MB.
const MaxPageSize = 10 * 1024 * 1024

// TruncationMarker is appended when content exceeds the caller's limit.
const TruncationMarker = "…[truncated]"

// Config controls fetching behavior.
type Config struct {
	Timeout time.Duration
	// AllowedHosts holds doublestar patterns matched against request hosts,
	// e.g. "*.example.com" or "**". Empty permits any host.
	AllowedHosts []string
}

// Fetcher retrieves pages and exposes the bounded text/markup getters the
// assistant actions consume. Unreachable or disallowed pages degrade to
// empty content rather than errors.
type Fetcher struct {
	client    *resty.Client
	sanitizer *bluemonday.Policy
	allowed   []string
	log       *logging.Logger
}

// NewFetcher creates a fetcher with retrying transport.
func NewFetcher(cfg Config, log *logging.Logger) *Fetcher {
	if log == nil {
		log = logging.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "firebridge/1.0").
		// Explicit Accept-Encoding keeps the transport from transparently
		// decompressing, so the gzip path below is ours.
		SetHeader("Accept-Encoding", "gzip").
		SetTransport(retryClient.HTTPClient.Transport)

	return &Fetcher{
		client:    client,
		sanitizer: bluemonday.UGCPolicy(),
		allowed:   cfg.AllowedHosts,
		log:       log,
	}
}

// Fetch retrieves a page and returns its body decoded to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if err := f.checkAllowed(pageURL); err != nil {
		return nil, err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode())
	}

	var reader io.Reader = io.LimitReader(body, MaxPageSize)
	if strings.Contains(resp.Header().Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress page: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read page body: %w", err)
	}

	if kind := mimetype.Detect(data); !kind.Is("text/html") && !strings.HasPrefix(kind.String(), "text/") {
		return nil, fmt.Errorf("unsupported content type %s", kind.String())
	}

	return decodeToUTF8(data), nil
}

func (f *Fetcher) checkAllowed(pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if len(f.allowed) == 0 {
		return nil
	}
	host := u.Hostname()
	for _, pattern := range f.allowed {
		if ok, _ := doublestar.Match(pattern, host); ok {
			return nil
		}
	}
	return fmt.Errorf("host %q not in allowlist", host)
}

// decodeToUTF8 converts page bytes to UTF-8 using detected charset, falling
// back to the raw bytes when detection or conversion fails.
func decodeToUTF8(data []byte) []byte {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return data
	}

	reader, err := charset.NewReaderLabel(strings.ToLower(result.Charset), bytes.NewReader(data))
	if err != nil {
		return data
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return data
	}
	return decoded
}

// Truncate bounds s to limit bytes, appending the visible marker when
// anything was cut. A non-positive limit means unbounded.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	// Cut on a rune boundary.
	cut := limit
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + TruncationMarker
}

func (f *Fetcher) logFallback(pageURL string, err error) {
	f.log.Warn("page unavailable, returning empty content",
		zap.String("url", pageURL), zap.Error(err))
}
