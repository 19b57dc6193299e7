// Package state holds the shared, mutable progress record of exactly one
// analysis request.
//
// A Store owns one Slot per role. Every slot moves forward only:
//
//	pending -> running -> succeeded | failed
//
// Terminal statuses are write-once. A write that arrives after a slot is
// terminal (typically a worker that kept running past its deadline) is
// rejected with ErrLateWrite and logged, never applied. Each slot has its own
// lock, so workers of different roles never contend with each other.
//
// Outside callers only ever see immutable copies (Snapshot) and the ordered
// transition history (Trace) produced by Freeze.
package state
