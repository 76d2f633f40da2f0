// Package page fetches web pages and produces the bounded text and markup
// views the assistant actions send as context.
package page
