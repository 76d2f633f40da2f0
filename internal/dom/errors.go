package dom

import "errors"

var (
	// ErrTargetNotFound indicates the operation's selector matched nothing.
	ErrTargetNotFound = errors.New("target element not found")

	// ErrUnsupportedOperation indicates an unrecognized edit action.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")
)
