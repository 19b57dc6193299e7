// Package archive keeps completed engine responses for after-the-fact
// inspection.
//
// The engine writes each response once, after it finished; nothing in the
// request path ever reads the archive back. Two backends are provided:
//
//   - Memory: a process local map, suited for tests and one-shot CLI runs
//   - Redis: JSON documents with an optional TTL and a per-subject index
//
// Both implement Store, which satisfies engine.Archive, so the wiring layer
// decides which one to instantiate without touching the engine.
package archive
