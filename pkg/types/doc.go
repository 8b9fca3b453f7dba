// Package types defines the shared data types used across the repodex
// catalog: the repository record, its source tagging, and the helpers
// that turn a record into embedding input and vector-store metadata.
//
// A Repository is identified by its FullName, which is globally unique
// across all sources: `owner/repo` for forge repositories, a synthetic
// `hf:<kind>:<id>` for model-hub entries, and `<source>:<name>` for
// local scans. FullName is immutable once assigned.
//
// The NeedsEmbedding flag tracks pending (re-)embedding work. It is set
// by the catalog store when a record is inserted or its change signal
// moves, and cleared only by the embedding-completion path.
package types
