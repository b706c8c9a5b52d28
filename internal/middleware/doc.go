// Package middleware provides the HTTP middleware chain for the clip
// library service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression (gzip) with event-stream passthrough
//   - Prometheus request metrics with low-cardinality path labels
package middleware
