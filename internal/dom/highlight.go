package dom

// highlightStyle is the marker applied to the highlighted element. A served
// document has no layout boxes, so the overlay is expressed as a restorable
// outline on the element itself.
const highlightStyle = "outline: 2px solid #ff6b35; outline-offset: 2px"

// Highlighter marks at most one element at a time. Two states: hidden, or
// shown for a selector. The target is re-resolved fresh on every call.
type Highlighter struct {
	engine *Engine

	shown        bool
	selector     string
	gen          uint64 // document generation the highlight was applied to
	priorStyle   string
	priorPresent bool
}

// NewHighlighter creates a highlighter over the engine's document.
func NewHighlighter(engine *Engine) *Highlighter {
	return &Highlighter{engine: engine}
}

// Highlight resolves the selector and marks its first match, clearing any
// previous highlight first. Returns false when the selector matches nothing,
// leaving the highlighter hidden.
func (h *Highlighter) Highlight(selector string) bool {
	e := h.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	h.clearLocked()

	sel, err := e.resolveFirst(selector)
	if err != nil {
		return false
	}

	h.priorStyle, h.priorPresent = sel.Attr("style")
	sel.SetAttr("style", joinStyles(h.priorStyle, highlightStyle))

	h.shown = true
	h.selector = selector
	h.gen = e.gen
	return true
}

// Clear unconditionally transitions to hidden, restoring the element's prior
// inline style when the element is still reachable.
func (h *Highlighter) Clear() {
	e := h.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	h.clearLocked()
}

// Shown reports the current state.
func (h *Highlighter) Shown() (string, bool) {
	e := h.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	return h.selector, h.shown
}

func (h *Highlighter) clearLocked() {
	if !h.shown {
		return
	}
	h.shown = false
	selector := h.selector
	h.selector = ""

	// A replaced document invalidated the reference; nothing to restore.
	if h.gen != h.engine.gen {
		return
	}

	sel, err := h.engine.resolveFirst(selector)
	if err != nil {
		return
	}
	if h.priorPresent {
		sel.SetAttr("style", h.priorStyle)
	} else {
		sel.RemoveAttr("style")
	}
}

func joinStyles(existing, added string) string {
	existing = trimStyle(existing)
	if existing == "" {
		return added
	}
	return existing + "; " + added
}

func trimStyle(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ';' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
