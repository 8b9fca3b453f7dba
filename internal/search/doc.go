// Package search ranks catalog records by a hybrid of keyword and
// semantic signals and serves them in fixed-size pages.
//
// The Engine holds the interactive view state: record list, filter
// text, visibility toggles, sort order, page index and the semantic
// score map for the current query. Keyword matching is a
// case-insensitive substring test over name, description and topics;
// semantic scores arrive asynchronously from the vector index via the
// Refresher and are combined with the keyword signal using fixed
// weights. Scores computed for an abandoned query are discarded by
// comparing query text.
package search
