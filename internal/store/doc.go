// Package store implements the flat keyed record graph.
//
// A Store owns three pieces of state handed across writes:
//   - records: data-id -> record (field name -> scalar, link, or link list)
//   - root-call index: (call name, canonical argument) -> data-id
//   - type index: data-id -> type name, server-identified records only
//
// plus the monotonic client-id counter. All cross-record relationships are
// data-id references; a field value is never a payload-shaped object.
//
// A store can be given a read-only overlay (a Snapshot from a previous
// session). Readers fall through to the overlay when the mutable store has
// no entry, which distinguishes "not touched by this session" from "truly
// unknown" without copying the prior cache. The overlay is never mutated
// and may be shared between stores.
//
// Mutations come exclusively from the writer package; the store itself
// does no change tracking.
package store
