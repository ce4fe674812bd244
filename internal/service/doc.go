// Package service holds the live topology and the rules for changing it.
//
// # Store
//
// Store keeps topologies in memory behind a read/write lock. Readers take
// deep copies or run under the read lock; writers stage their change on a
// clone and the clone is swapped in only when the change, including its
// save, succeeded. Readers therefore never observe unpersisted state.
//
// # Mutations
//
// ApplyMessage dispatches on the decoded message variant:
//
//   - DeviceCreate upserts the device (idempotent)
//   - DeviceMove patches x and y of an existing device, or fails with
//     domain.ErrNotFound
//   - MultipleMessage applies its entries in order and stops at the first
//     failure, reporting it as a *BatchError
//
// TopologyService wraps this with persistence: the staged topology is saved
// through the repository before it becomes visible.
//
// # Event System
//
// Accepted changes and external reloads are published on EventBus while the
// mutation lock is held, so subscribers receive them in commit order. The
// handler package forwards them to connected WebSocket sessions.
package service
