// Package core provides the foundational domain types and interfaces shared by
// every layer of the Literary Finder. It defines:
//
//   - Roles, slot statuses and execution modes
//   - The analysis Request and its validation
//   - Role specific payloads (AuthorContext, ReadingMap, LegacyAnalysis)
//   - The Worker contract through which the engine dispatches research work
//   - The error taxonomy (validation, configuration, worker, timeout, synthesis)
//
// The package intentionally keeps implementation concerns (state keeping,
// scheduling, rendering, scoring) out of scope so that the engine and the
// concrete workers only meet at these small interfaces.
package core
