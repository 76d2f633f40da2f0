// Package assist exposes the assistant's action vocabulary as typed calls,
// composing page context fetching with the request coordinator and parsing
// suggestion replies into edit operations.
package assist
