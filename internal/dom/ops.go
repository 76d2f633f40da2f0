package dom

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// Action tags one kind of edit operation. The set is closed; Apply matches
// exhaustively and fails any other tag.
type Action string

const (
	SetText      Action = "setText"
	SetHTML      Action = "setHTML"
	SetAttribute Action = "setAttribute"
	AddClass     Action = "addClass"
	RemoveClass  Action = "removeClass"
	SetStyle     Action = "setStyle"
	Remove       Action = "remove"
)

// Op is one edit operation against the live document. Selector is always
// required; the remaining fields depend on the action, matching the
// suggestion schema the assistant produces:
//
//	setText/setHTML:  Value
//	setAttribute:     Attribute, Value
//	addClass/removeClass: ClassName
//	setStyle:         Property, Value
//	remove:           selector only
type Op struct {
	Action    Action `json:"action"`
	Selector  string `json:"selector"`
	Value     string `json:"value,omitempty"`
	Attribute string `json:"attribute,omitempty"`
	ClassName string `json:"className,omitempty"`
	Property  string `json:"property,omitempty"`
}

// Validate checks that the fields the action needs are present.
func (op Op) Validate() error {
	if op.Selector == "" {
		return fmt.Errorf("operation %q missing selector", op.Action)
	}
	switch op.Action {
	case SetText, SetHTML, Remove:
		return nil
	case SetAttribute:
		if op.Attribute == "" {
			return fmt.Errorf("setAttribute missing attribute name")
		}
	case AddClass, RemoveClass:
		if op.ClassName == "" {
			return fmt.Errorf("%s missing className", op.Action)
		}
	case SetStyle:
		if op.Property == "" {
			return fmt.Errorf("setStyle missing property")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedOperation, op.Action)
	}
	return nil
}

// ParseOps decodes a JSON array of edit operations.
func ParseOps(data []byte) ([]Op, error) {
	var ops []Op
	if err := sonic.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("failed to parse edit operations: %w", err)
	}
	return ops, nil
}
