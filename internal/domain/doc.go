// Package domain defines the core types for the netviz topology synchronization server.
//
// This package contains the entities that make up a shared network diagram and
// the error taxonomy used across the protocol, storage and session layers.
//
// # Core Types
//
// Device is a node placed on the topology canvas (router, host, switch, ...)
// with a display name, canvas coordinates and an advisory host grouping.
//
// Topology is the full diagram: a set of devices keyed by device ID. It offers
// typed mutations (UpsertDevice, PatchDevicePosition) so callers never patch
// fields dynamically.
//
// # Errors
//
// All failures that can cross a package boundary are wrapped around one of the
// sentinel errors in errors.go (ErrMalformedMessage, ErrValidation, ErrNotFound,
// ErrUnknownMessageType, ErrCorruptData, ErrPersistence). ErrorKind maps an
// error chain to the short kind string reported to clients.
//
// # Design Principles
//
// - No database, transport or logging dependencies
// - Topology values are owned by a single holder; readers receive clones
package domain
