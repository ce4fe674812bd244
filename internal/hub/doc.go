// Package hub fans server frames out to connected WebSocket sessions.
//
// A single goroutine (Run) owns registration and delivery. Each session
// registers a Client whose buffered queue is drained by the session's writer.
// Delivery never blocks the hub: a client that cannot keep up is dropped and
// its queue closed, which makes the session close its connection.
package hub
