// Package server hosts the HTTP surface of voicecal.
//
// ServerContext carries the scheduler, logger and instrumentation shared by
// the MCP tools and the plain HTTP handlers. NewHandler mounts those handlers
// next to the health endpoints and wraps the tool routes in the middleware
// chain:
//
//   - RequestID assigns or propagates X-Request-ID
//   - RateLimiter applies a per-client token bucket
//   - SharedSecret checks the bearer or X-Tool-Secret header
//   - LimitBody caps request bodies
//
// MetricsServer exposes the Prometheus scrape endpoint on its own address.
package server
