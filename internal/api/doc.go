// Package api implements the HTTP REST API and WebSocket server for the
// actuation daemon.
//
// This package provides:
//   - REST endpoints to start, list and stop dispatches
//   - Actuator catalogue and pattern script listings
//   - WebSocket hub relaying dispatch lifecycle events
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API is a second intake next to the MQTT dispatch topic. Both feed the
// same dispatch.Service, so a dispatch started over HTTP can be stopped over
// MQTT and vice versa:
//
//	HTTP client ──▶ api.Server ──┐
//	                             ├──▶ dispatch.Service ──▶ actuation.Scheduler
//	MQTT client ──▶ handlers ────┘            │
//	                                          └──▶ Hub ──▶ WebSocket clients
//
// # Security
//
// A single operator account logs in with the password whose Argon2id hash
// is configured under security.admin_password_hash. Protected routes require
// a Bearer access token. WebSocket connections use single-use tickets so the
// token never appears in a URL.
package api
