// Package ws serves the browser UI over WebSocket, routing assistant
// actions, cancellation, edit batches, undo and highlighting.
package ws
