// Package middleware provides the HTTP middleware the bridge fronts its UI
// surface with: CORS for extension origins and token-bucket rate limiting.
package middleware
