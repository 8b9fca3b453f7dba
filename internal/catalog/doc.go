// Package catalog persists repository records in SQLite and tracks
// which records still need an embedding pass.
//
// The change-detection contract lives in the two upsert operations:
// UpsertForge flips the needs_embedding flag when the remote push
// timestamp moves, UpsertLocal flips it only for records seen for the
// first time. Every other write is an explicit maintenance operation.
// Each single-record write is atomic and committed independently, so
// an interrupted sync cycle leaves the store consistent.
//
// The SQLite driver is selected at build time: the default pure Go
// build uses modernc.org/sqlite, a cgo build can opt into
// github.com/mattn/go-sqlite3.
package catalog
