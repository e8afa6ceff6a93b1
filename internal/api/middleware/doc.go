// Package middleware provides Gin middleware shared by the API: CORS
// and per-IP token-bucket rate limiting.
package middleware
