package ws

import "github.com/firelink/firebridge/internal/dom"

// Message is one frame exchanged with the browser UI. Type selects the
// operation; the remaining fields are per-type. ID is an opaque client token
// echoed back on the matching reply.
type Message struct {
	Type        string                   `json:"type"`
	ID          string                   `json:"id,omitempty"`
	URL         string                   `json:"url,omitempty"`
	Question    string                   `json:"question,omitempty"`
	Selection   string                   `json:"selection,omitempty"`
	Request     string                   `json:"request,omitempty"`
	Selector    string                   `json:"selector,omitempty"`
	HTML        string                   `json:"html,omitempty"`
	Ops         []dom.Op                 `json:"ops,omitempty"`
	NetworkData []map[string]interface{} `json:"network_data,omitempty"`
}

// Inbound message types.
const (
	TypeSummarize      = "summarize"
	TypeAsk            = "ask"
	TypeExplain        = "explain"
	TypeAnalyzeNetwork = "analyze_network"
	TypeSuggestEdits   = "suggest_edits"
	TypeCancel         = "cancel"
	TypeApplyEdits     = "apply_edits"
	TypeUndo           = "undo"
	TypeHighlight      = "highlight"
	TypeClearHighlight = "clear_highlight"
	TypeLoadDocument   = "load_document"
	TypePing           = "ping"
)

// EditSummary reports a batch outcome: per-operation results plus the counts
// the UI renders as a partial-success summary.
type EditSummary struct {
	Applied int            `json:"applied"`
	Failed  int            `json:"failed"`
	Results []dom.OpResult `json:"results"`
}

func summarize(results []dom.OpResult) EditSummary {
	s := EditSummary{Results: results}
	for _, r := range results {
		if r.Success {
			s.Applied++
		} else {
			s.Failed++
		}
	}
	return s
}
