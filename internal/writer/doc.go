// Package writer implements the payload-writing traversal.
//
// A write walks two differently-shaped trees in lock-step: the query node
// tree (what was requested) and the payload (what the server returned).
// The payload is treated purely as a source keyed by the query's requested
// field names; payload fields the query never asked for are never examined.
//
// ARCHITECTURE:
//
// Single-Writer Traversal:
// One Write call performs its entire traversal and all store mutations
// before returning. No suspension points, no interleaving with other
// writes. Callers observe either the pre-write or fully-post-write store.
// On a fatal error nothing further in the traversal is applied, but
// mutations already performed are not rolled back.
//
// Identity resolution precedence, per record:
//  1. root-call index entry (mutable store, then overlay) - this is what
//     lets a record introduced by one query be updated rather than
//     duplicated by a later query
//  2. explicit identifying field in the payload (server id)
//  3. fresh client id from the store's monotonic counter
//
// Change tracking is record-level: a record with ten changed fields is
// reported once. Created ids are never double-counted in updated.
//
// Two error tiers: fatal contract violations abort the write as a
// *WriteError; type-inference failures accumulate as diagnostics on the
// result and never fail the write.
package writer
