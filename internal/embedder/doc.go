// Package embedder turns repository text into embedding vectors.
//
// The OpenRouter provider speaks the OpenAI embeddings wire format
// against the OpenRouter gateway, with an LRU cache keyed by content
// hash and exponential-backoff retry around each API call. Batch
// responses are re-sorted by index so output order always matches
// input order. The local provider derives deterministic vectors from
// the text hash and exists for tests and offline use.
package embedder
