// Package report merges the frozen results of one request into the final
// markdown report.
//
// Synthesis is a pure function of the snapshot: sections always appear in
// core.Roles order, failed or missing slots render an explicit "Data
// unavailable" placeholder, and map valued fields are rendered with sorted
// keys so the same snapshot always yields byte-identical output.
package report
