package bruteforce

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/viant/icdmatch/index"
	"github.com/viant/icdmatch/vector"
)

// Index is a brute-force vector index implementing cosine similarity.
// Once built it is never mutated, so concurrent queries need no locking.
type Index struct {
	ids  []string
	vecs [][]float32
	dim  int
	mags []float32
}

// Build loads ids and vectors and precomputes magnitudes.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.ids, i.vecs, i.mags, i.dim = nil, nil, nil, 0
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("bruteforce: vector %d (%s): %w", j, ids[j], &vector.DimensionMismatchError{Want: dim, Got: len(vectors[j])})
		}
	}
	mags := make([]float32, len(vectors))
	for j := range vectors {
		mags[j] = vector.Magnitude(vectors[j])
	}
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.dim = dim
	i.mags = mags
	return nil
}

// Dim returns the indexed dimension.
func (i *Index) Dim() int { return i.dim }

// Len returns the number of indexed vectors.
func (i *Index) Len() int { return len(i.vecs) }

// ID returns the id stored at pos.
func (i *Index) ID(pos int) string { return i.ids[pos] }

// Vector returns the vector stored at pos. The slice must not be modified.
func (i *Index) Vector(pos int) []float32 { return i.vecs[pos] }

// Best scans every vector and keeps the one with the strictly greatest
// similarity, starting from -1. NaN similarities (zero-magnitude vectors)
// never compare greater, so they are skipped without error.
func (i *Index) Best(query []float32) (int, float32, error) {
	if len(i.vecs) == 0 {
		return -1, -1, nil
	}
	if len(query) != i.dim {
		return -1, -1, &vector.DimensionMismatchError{Want: i.dim, Got: len(query)}
	}
	qm := vector.Magnitude(query)
	best, bestScore := -1, float32(-1)
	for j := range i.vecs {
		s := clamp(vector.CosineWithMagnitude(query, i.vecs[j], qm, i.mags[j]))
		if s > bestScore {
			best, bestScore = j, s
		}
	}
	return best, bestScore, nil
}

// Query returns top-k by cosine similarity.
func (i *Index) Query(query []float32, k int) ([]int, []float32, error) {
	if len(i.vecs) == 0 {
		return nil, nil, nil
	}
	if len(query) != i.dim {
		return nil, nil, &vector.DimensionMismatchError{Want: i.dim, Got: len(query)}
	}
	qm := vector.Magnitude(query)
	type scored struct {
		idx   int
		score float32
	}
	scoreds := make([]scored, 0, len(i.vecs))
	for j := range i.vecs {
		s := clamp(vector.CosineWithMagnitude(query, i.vecs[j], qm, i.mags[j]))
		if math.IsNaN(float64(s)) {
			continue
		}
		scoreds = append(scoreds, scored{idx: j, score: s})
	}
	sort.SliceStable(scoreds, func(a, b int) bool { return scoreds[a].score > scoreds[b].score })
	if k <= 0 || k > len(scoreds) {
		k = len(scoreds)
	}
	positions := make([]int, k)
	scores := make([]float32, k)
	for n := 0; n < k; n++ {
		positions[n] = scoreds[n].idx
		scores[n] = scoreds[n].score
	}
	return positions, scores, nil
}

// MarshalBinary stores: dim(uint32), n(uint32), then for each item:
// idLen(uint32), id bytes, vec(float32[dim]).
func (i *Index) MarshalBinary() ([]byte, error) {
	size := 8
	for _, id := range i.ids {
		size += 4 + len(id) + 4*i.dim
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(i.dim))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(i.ids)))
	for idx, id := range i.ids {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(id)))
		out = append(out, id...)
		for _, v := range i.vecs[idx] {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
		}
	}
	return out, nil
}

// UnmarshalBinary restores the index from bytes.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errors.New("bruteforce: invalid data")
	}
	off := 0
	getU32 := func() uint32 { v := binary.LittleEndian.Uint32(data[off : off+4]); off += 4; return v }
	dim := int(getU32())
	n := int(getU32())
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for idx := 0; idx < n; idx++ {
		if off+4 > len(data) {
			return errors.New("bruteforce: truncated")
		}
		idlen := int(getU32())
		if off+idlen > len(data) {
			return errors.New("bruteforce: truncated id")
		}
		ids[idx] = string(data[off : off+idlen])
		off += idlen
		if off+4*dim > len(data) {
			return errors.New("bruteforce: truncated vec")
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(getU32())
		}
		vecs[idx] = vec
	}
	return i.Build(ids, vecs)
}

// clamp bounds rounding overshoot to [-1, 1] and passes NaN through.
func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

var _ index.Index = (*Index)(nil)
