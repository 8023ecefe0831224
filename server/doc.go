// Package server provides the Gin HTTP server a bus node can expose for
// health checks and build information.
//
// Endpoints (server/endpoint):
//
//   - /health: aggregated component health
//   - /alive: liveness probe
//   - /ready: readiness probe
//   - /version: build version information
//
// Middleware (server/middleware): panic recovery, request IDs and request
// logging.
package server
