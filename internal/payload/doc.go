// Package payload provides the tagged-variant representation of server
// response payloads.
//
// This package contains value types only. All other internal packages
// import payload; payload imports nothing internal. This keeps it the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Absence and null are distinct: Object.Field returns Undefined for a
//     missing key, Null for an explicit JSON null. The writer treats the
//     two very differently, so the distinction must survive decoding.
//   - Values are immutable once built. The store holds references to them
//     across writes.
//   - Canonical serialization (MarshalCanonical) is the ONLY form used for
//     identity computation: root-call index keys and golden snapshots.
package payload
