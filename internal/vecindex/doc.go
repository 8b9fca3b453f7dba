// Package vecindex stores repository embeddings in a standalone
// SQLite file and answers cosine-similarity queries over them.
//
// Vectors live in one named collection and are keyed by the record's
// full name, so re-embedding a repository replaces its previous
// vector. Each entry also carries the embedded document text and a
// flat metadata snapshot sufficient to rebuild a display record
// without consulting the catalog. Similarity is computed in Go over a
// full scan of the collection, which is comfortably fast at
// personal-catalog scale.
package vecindex
