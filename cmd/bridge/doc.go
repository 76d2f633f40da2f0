// Package main is the entry point for the firebridge server.
//
// The bridge sits between a browser UI and a spawned assistant process,
// relaying requests over a length-prefixed JSON channel:
//
//	Browser UI (WebSocket) → firebridge → assistant peer (stdin/stdout frames)
//
// The server provides:
//   - WebSocket endpoint for assistant actions and live DOM editing
//   - Request coordination with timeouts, cancellation and reconnect
//   - Undoable DOM edit transactions over a server-held document
//   - Prometheus metrics and a health endpoint
//
// Configuration comes from FIREBRIDGE_* environment variables, optionally
// overlaid with a YAML file:
//
//	./bridge -config bridge.yaml
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown, peer included
package main
