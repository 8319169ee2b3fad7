// Package crdt implements the replicated text sequence that backs a potluck
// document.
//
// Text is an RGA-style sequence: every character is an element with a
// globally unique ID (Lamport counter plus actor), inserted to the right of
// an origin element. Deleted characters stay in the sequence as tombstones,
// which is what makes cursors stable: a Cursor names an element, not an
// offset, and is resolved to an offset on demand.
//
// # Cursors
//
// A Cursor carries an association. AssocBefore cursors sit in front of the
// character they name and move right when text is inserted at their offset.
// AssocAfter cursors sit behind the character they name and stay put. A span
// [a, b) is anchored with an AssocBefore cursor on character a and an
// AssocAfter cursor on character b-1, giving the shifting rules:
//
//   - insert at p <= a: both bounds shift
//   - insert at a < p < b: only the end shifts
//   - insert at p >= b: neither shifts
//
// When every character of a span is deleted both cursors resolve to the
// same offset.
//
// # Replication
//
// Local edits return the Ops that produced them. Another replica applies
// those ops with Apply; applying an op twice is a no-op. Ops must be
// delivered in causal order per origin (an insert's origin and a delete's
// target must already be known).
package crdt
