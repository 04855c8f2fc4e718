// Package store keeps named in-memory vector collections backed by HNSW graphs.
//
// Collections are short-lived: the optimizer creates one per research run,
// fills it, queries it once and deletes it.
package store
