// Package repository defines the persistence contract for topologies.
//
// A Repository stores complete topology snapshots. Every Save is a full-state
// overwrite, never a diff, and must be atomic with respect to crashes: a
// reader after a crash sees either the previous snapshot or the new one.
//
// # Implementations
//
// The file subpackage writes a single JSON or YAML document using
// write-to-temp, fsync, rename. This is the reference layout:
//
//	{"id": 0, "devices": {"1": {"id": 1, "name": "r1", ...}}}
//
// The sqlite subpackage keeps devices as rows and replaces a topology's rows
// inside one transaction.
//
// # Loading
//
// Load returns (nil, nil) when nothing has been stored yet, which callers
// treat as an empty topology. Content that exists but cannot be parsed is
// reported as domain.ErrCorruptData and must never be replaced silently.
package repository
