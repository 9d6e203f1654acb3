// Package novel implements the co-authored book aggregate.
//
// State bundles the period, the append-only book ledger and the cadence window.
// Write operations are split into a Prepare step that only validates and a Commit
// step that only mutates, so the caller can settle payment in between and abort
// without leaving partial writes. State is not safe for concurrent use; the app
// layer serialises access.
package novel
