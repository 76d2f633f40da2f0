package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/firelink/firebridge/internal/coordinator"
	"github.com/firelink/firebridge/internal/dom"
	"github.com/firelink/firebridge/internal/logging"
)

// Sender issues requests to the assistant peer.
type Sender interface {
	Send(ctx context.Context, action string, params map[string]interface{}) (*coordinator.Result, error)
	CancelActive() bool
}

// PageReader supplies bounded page context for prompts.
type PageReader interface {
	Content(ctx context.Context, pageURL string, limit int) string
	HTML(ctx context.Context, pageURL string, limit int) string
}

// Service wraps the coordinator with the assistant's action vocabulary:
// summarize, ask, explain, analyze_network, suggest_dom_changes and ping.
type Service struct {
	peer         Sender
	pages        PageReader
	contentLimit int
	htmlLimit    int
	log          *logging.Logger
}

// New creates the assistant action service.
func New(peer Sender, pages PageReader, contentLimit, htmlLimit int, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{
		peer:         peer,
		pages:        pages,
		contentLimit: contentLimit,
		htmlLimit:    htmlLimit,
		log:          log,
	}
}

// Ping checks the peer is responsive.
func (s *Service) Ping(ctx context.Context) error {
	result, err := s.peer.Send(ctx, "ping", nil)
	if err != nil {
		return err
	}
	if v, _ := result.Value.(string); v != "pong" {
		return fmt.Errorf("unexpected ping reply: %v", result.Value)
	}
	return nil
}

// Summarize asks the assistant for a summary of the page at pageURL.
func (s *Service) Summarize(ctx context.Context, pageURL string) (*coordinator.Result, error) {
	content := s.pages.Content(ctx, pageURL, s.contentLimit)
	return s.peer.Send(ctx, "summarize", map[string]interface{}{
		"content": content,
	})
}

// Ask poses a question about the page at pageURL.
func (s *Service) Ask(ctx context.Context, pageURL, question string) (*coordinator.Result, error) {
	content := s.pages.Content(ctx, pageURL, s.contentLimit)
	return s.peer.Send(ctx, "ask", map[string]interface{}{
		"question": question,
		"content":  content,
	})
}

// Explain asks the assistant to explain a selected snippet.
func (s *Service) Explain(ctx context.Context, selection string) (*coordinator.Result, error) {
	return s.peer.Send(ctx, "explain", map[string]interface{}{
		"selection": selection,
	})
}

// AnalyzeNetwork sends recorded network activity for analysis.
func (s *Service) AnalyzeNetwork(ctx context.Context, entries []map[string]interface{}) (*coordinator.Result, error) {
	return s.peer.Send(ctx, "analyze_network", map[string]interface{}{
		"networkData": entries,
	})
}

// SuggestEdits sends the page's markup and the user's request, and parses the
// assistant's reply into edit operations ready for the transaction engine.
func (s *Service) SuggestEdits(ctx context.Context, pageURL, request string) ([]dom.Op, *coordinator.Result, error) {
	markup := s.pages.HTML(ctx, pageURL, s.htmlLimit)

	result, err := s.peer.Send(ctx, "suggest_dom_changes", map[string]interface{}{
		"html":    markup,
		"request": request,
	})
	if err != nil {
		return nil, nil, err
	}

	text, _ := result.Value.(string)
	ops, err := ParseSuggestions(text)
	if err != nil {
		return nil, result, err
	}
	return ops, result, nil
}

// Cancel aborts the active request, if any.
func (s *Service) Cancel() bool {
	return s.peer.CancelActive()
}

// ParseSuggestions extracts the JSON array of edit operations from an
// assistant reply, tolerating a fenced ```json block or surrounding prose.
func ParseSuggestions(reply string) ([]dom.Op, error) {
	body := extractJSONArray(reply)
	if body == "" {
		return nil, fmt.Errorf("reply contains no edit operations")
	}
	return dom.ParseOps([]byte(body))
}

func extractJSONArray(s string) string {
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if j := strings.IndexByte(rest, '\n'); j >= 0 {
			rest = rest[j+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			s = rest[:j]
		} else {
			s = rest
		}
	}
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
