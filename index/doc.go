// Package index defines a minimal abstraction for vector indexes that can be
// built from embeddings, queried for the best match or top-k, and serialized
// so a built reference set can be shipped to other workers.
// Implementations in this module include a brute-force baseline.
package index
