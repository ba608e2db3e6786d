// Package bruteforce provides a vector index that answers queries by scanning
// every vector and scoring it via cosine similarity. The scan order is the
// build order, which makes tie-breaking deterministic.
package bruteforce
