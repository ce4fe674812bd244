// Package handler implements the HTTP and WebSocket surface of netviz.
//
// # Sessions
//
// SessionHandler upgrades requests on the WebSocket path. Each Session:
//
//   - sends one Snapshot frame with every device before anything else
//   - decodes each text frame, applies it through service.TopologyService
//     and answers failures with an Error frame {kind, message, applied?}
//   - optionally acknowledges accepted messages with an Ack frame
//   - receives changes made by other sessions through the hub
//
// A failed message never closes the session; a dropped connection does.
// One goroutine reads, one writes, and only the writer touches the socket.
//
// # Middleware
//
// Chain composes Recover, CORS and Logger around the mux. Logger keeps
// http.Hijacker available so upgrades work behind it.
//
// # Health
//
// HealthHandler answers GET /healthz with {status, sessions, devices}.
package handler
