// Package channel implements the framed byte-stream transport to the
// assistant peer process.
//
// Frames use the native messaging convention: a 4-byte little-endian length
// prefix followed by a JSON document. The transport delivers inbound frames
// in order from a single reader goroutine and reports stream teardown through
// a disconnect handler that fires exactly once.
package channel
