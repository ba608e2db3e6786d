package index

// Index defines a vector index over an ordered reference set. Positions
// returned by Best and Query refer to the order vectors were supplied to
// Build, so callers can keep labels and other payload in parallel slices.
type Index interface {
	// Build constructs the index from the given ids and vectors.
	// ids and vectors must have the same length and all vectors one dimension.
	Build(ids []string, vectors [][]float32) error

	// Dim returns the dimension established by Build (0 when empty).
	Dim() int

	// Len returns the number of indexed vectors.
	Len() int

	// Best returns the position and cosine similarity of the most similar
	// vector. Ties go to the earliest position. An empty index returns
	// position -1 and score -1.
	Best(query []float32) (pos int, score float32, err error)

	// Query returns up to k positions ordered by decreasing similarity, with
	// ties kept in build order. When k <= 0 all scorable vectors are returned.
	Query(query []float32, k int) (positions []int, scores []float32, err error)

	// MarshalBinary serializes the index into a byte slice.
	MarshalBinary() ([]byte, error)

	// UnmarshalBinary reconstructs the index from a serialized byte slice.
	UnmarshalBinary(data []byte) error
}
