// Package syncer runs the three-stage sync cycle: collect listings
// from every source adapter, enrich changed records with readme
// content, and embed them into the vector index.
//
// The cycle is resilient by stage: a failing adapter, readme fetch or
// embedding batch is reported and skipped, never fatal. Whatever a
// cycle could not embed stays flagged in the catalog and is picked up
// by the next cycle. The last-sync timestamp is recorded even for
// partially failed cycles so the UI reflects that a pass happened.
package syncer
