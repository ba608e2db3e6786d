// Package match finds, for each query embedding, the closest reference code
// by cosine similarity. A Matcher is built once per job from (code, label,
// embedding text) rows and is read-only afterwards; BestMatch and
// BestMatchBatch can be called from any number of goroutines.
package match
