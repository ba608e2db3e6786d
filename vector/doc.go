// Package vector holds the value-level helpers shared by the matcher and its
// collaborators. It includes:
//   - bracket text encoding ("[0.1, 0.2]") used by upstream datasets
//   - BLOB encoding for native float32 columns
//   - cosine similarity in float32 and a guarded float64 variant
//   - the MalformedVectorError / DimensionMismatchError taxonomy
package vector
