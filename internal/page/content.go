package page

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content returns the page's visible text, bounded to limit bytes with a
// truncation marker. An unreachable page yields empty content, never an
// error: the assistant request proceeds with whatever context exists.
func (f *Fetcher) Content(ctx context.Context, pageURL string, limit int) string {
	data, err := f.Fetch(ctx, pageURL)
	if err != nil {
		f.logFallback(pageURL, err)
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		f.logFallback(pageURL, err)
		return ""
	}

	doc.Find("script, style, noscript, template").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	text := normalizeWhitespace(root.Text())
	return Truncate(text, limit)
}

// HTML returns the page's sanitized markup with the same bounding contract
// as Content.
func (f *Fetcher) HTML(ctx context.Context, pageURL string, limit int) string {
	data, err := f.Fetch(ctx, pageURL)
	if err != nil {
		f.logFallback(pageURL, err)
		return ""
	}

	clean := f.sanitizer.Sanitize(string(data))
	return Truncate(clean, limit)
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
