package dom

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/firelink/firebridge/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// OpResult reports the outcome of one operation within a batch.
type OpResult struct {
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// undoRecord captures the prior state needed to invert one successful
// operation. The variant mirrors the operation's action tag.
type undoRecord struct {
	action   Action
	selector string

	text    string // SetText: prior text content
	html    string // SetHTML: prior inner markup
	attr    string // SetAttribute: attribute name
	value   string // SetAttribute: prior value; class/style: prior attribute
	present bool   // whether the attribute existed before

	// Remove: the detached node and its former position. Reinsertion goes
	// before next, or appends to parent when next is nil.
	node   *html.Node
	parent *html.Node
	next   *html.Node
}

// Engine applies batches of edit operations to a live document and can undo
// the most recent batch. Apply and UndoLast run to completion under one lock,
// so no caller observes a partially-applied batch.
type Engine struct {
	mu    sync.Mutex
	doc   *goquery.Document
	undo  [][]undoRecord
	gen   uint64 // bumped when the document is replaced
	log   *logging.Logger
}

// NewEngine creates an engine around an already-parsed document.
func NewEngine(doc *goquery.Document, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{doc: doc, log: log}
}

// FromHTML parses markup and creates an engine for it.
func FromHTML(markup string, log *logging.Logger) (*Engine, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return NewEngine(doc, log), nil
}

// Load replaces the document, e.g. after a navigation. The undo stack is
// dropped: its records reference nodes of the old tree.
func (e *Engine) Load(markup string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.doc = doc
	e.undo = nil
	e.gen++
	return nil
}

// HTML serializes the current document.
func (e *Engine) HTML() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Html()
}

// Depth reports the number of undoable batches.
func (e *Engine) Depth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.undo)
}

// Apply executes operations strictly in order, re-resolving each selector at
// application time so earlier edits influence what later selectors match. A
// failed operation is recorded and skipped; the rest of the batch still runs.
// If at least one operation succeeded its undo records are pushed as a batch.
func (e *Engine) Apply(ops []Op) []OpResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]OpResult, len(ops))
	records := make([]undoRecord, 0, len(ops))

	for i, op := range ops {
		rec, err := e.applyOne(op)
		if err != nil {
			results[i] = OpResult{Index: i, Error: err.Error()}
			e.log.Debug("edit failed",
				zap.Int("index", i),
				zap.String("action", string(op.Action)),
				zap.Error(err))
			continue
		}
		results[i] = OpResult{Index: i, Success: true}
		records = append(records, rec)
	}

	if len(records) > 0 {
		e.undo = append(e.undo, records)
	}
	return results
}

// UndoLast pops the most recent batch and inverts its records last-applied-
// first, since later edits may depend on state earlier ones produced. A
// record whose inversion fails (its target has since vanished) is reported
// and skipped.
func (e *Engine) UndoLast() ([]OpResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	batch := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]

	results := make([]OpResult, 0, len(batch))
	for i := len(batch) - 1; i >= 0; i-- {
		rec := batch[i]
		if err := e.invertOne(rec); err != nil {
			results = append(results, OpResult{Index: i, Error: err.Error()})
			e.log.Debug("undo item failed",
				zap.Int("index", i),
				zap.String("action", string(rec.action)),
				zap.Error(err))
			continue
		}
		results = append(results, OpResult{Index: i, Success: true})
	}
	return results, nil
}

// resolveFirst resolves a selector to its first match. Callers hold e.mu.
func (e *Engine) resolveFirst(selector string) (*goquery.Selection, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %v", selector, err)
	}
	sel := e.doc.FindMatcher(matcher).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrTargetNotFound, selector)
	}
	return sel, nil
}

func (e *Engine) applyOne(op Op) (undoRecord, error) {
	if err := op.Validate(); err != nil {
		return undoRecord{}, err
	}

	sel, err := e.resolveFirst(op.Selector)
	if err != nil {
		return undoRecord{}, err
	}

	rec := undoRecord{action: op.Action, selector: op.Selector}

	switch op.Action {
	case SetText:
		rec.text = sel.Text()
		sel.SetText(op.Value)

	case SetHTML:
		prior, err := sel.Html()
		if err != nil {
			return undoRecord{}, fmt.Errorf("failed to capture markup: %w", err)
		}
		rec.html = prior
		sel.SetHtml(op.Value)

	case SetAttribute:
		rec.attr = op.Attribute
		rec.value, rec.present = sel.Attr(op.Attribute)
		sel.SetAttr(op.Attribute, op.Value)

	case AddClass:
		// The whole class attribute is snapshotted so inversion restores it
		// byte for byte, including its absence.
		rec.value, rec.present = sel.Attr("class")
		sel.AddClass(op.ClassName)

	case RemoveClass:
		rec.value, rec.present = sel.Attr("class")
		sel.RemoveClass(op.ClassName)

	case SetStyle:
		// Same wholesale snapshot as classes.
		rec.value, rec.present = sel.Attr("style")
		setStyleProperty(sel, op.Property, op.Value)

	case Remove:
		node := sel.Get(0)
		rec.node = node
		rec.parent = node.Parent
		rec.next = node.NextSibling
		sel.Remove()

	default:
		return undoRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedOperation, op.Action)
	}

	return rec, nil
}

func (e *Engine) invertOne(rec undoRecord) error {
	// Reinsertion does not resolve a selector: the node was detached and is
	// restored at its recorded position.
	if rec.action == Remove {
		if rec.parent == nil {
			return fmt.Errorf("removed element had no parent to restore into")
		}
		if rec.next != nil {
			if rec.next.Parent != rec.parent {
				return fmt.Errorf("former sibling no longer present")
			}
			rec.parent.InsertBefore(rec.node, rec.next)
		} else {
			rec.parent.AppendChild(rec.node)
		}
		return nil
	}

	sel, err := e.resolveFirst(rec.selector)
	if err != nil {
		return err
	}

	switch rec.action {
	case SetText:
		sel.SetText(rec.text)
	case SetHTML:
		sel.SetHtml(rec.html)
	case SetAttribute:
		if rec.present {
			sel.SetAttr(rec.attr, rec.value)
		} else {
			sel.RemoveAttr(rec.attr)
		}
	case AddClass, RemoveClass:
		if rec.present {
			sel.SetAttr("class", rec.value)
		} else {
			sel.RemoveAttr("class")
		}
	case SetStyle:
		if rec.present {
			sel.SetAttr("style", rec.value)
		} else {
			sel.RemoveAttr("style")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOperation, rec.action)
	}
	return nil
}
