// Package server assembles the bridge: configuration, peer channel,
// request coordinator, transaction engine and the HTTP/WebSocket surface.
package server
