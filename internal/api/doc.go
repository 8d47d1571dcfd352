// Package api implements the HTTP REST API and WebSocket server for the
// facility manifest service.
//
// This package provides:
//   - site listing and hours resolution for any date
//   - stored manifest listing and retrieval
//   - on-demand compilation (operator and admin roles)
//   - a WebSocket hub broadcasting manifest.compiled events
//   - Prometheus metrics and a dependency health endpoint
//
// # Security
//
// Every route except /health and /metrics requires a bearer JWT issued
// for this service (see package auth). Tokens scoped to a list of sites
// can only read or compile those sites. WebSocket connections
// authenticate with a single-use ticket obtained from
// POST /api/v1/auth/ws-ticket, so tokens never appear in URLs.
package api
