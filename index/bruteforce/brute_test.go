package bruteforce

import (
	"errors"
	"math"
	"testing"

	"github.com/viant/icdmatch/vector"
)

func TestIndex_BestFirstWinsTies(t *testing.T) {
	idx := &Index{}
	if err := idx.Build([]string{"a", "b", "c"}, [][]float32{{0, 1}, {1, 1}, {1, 1}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	pos, score, err := idx.Best([]float32{1, 1})
	if err != nil {
		t.Fatalf("Best failed: %v", err)
	}
	if pos != 1 {
		t.Fatalf("Best pos = %d, want 1", pos)
	}
	if math.Abs(float64(score)-1) > 1e-6 {
		t.Fatalf("Best score = %v, want 1", score)
	}
}

func TestIndex_BestEmpty(t *testing.T) {
	idx := &Index{}
	if err := idx.Build(nil, nil); err != nil {
		t.Fatalf("Build(nil) failed: %v", err)
	}
	pos, score, err := idx.Best([]float32{1, 2, 3})
	if err != nil || pos != -1 || score != -1 {
		t.Fatalf("Best on empty = %d, %v, %v; want -1, -1, nil", pos, score, err)
	}
}

func TestIndex_BestSkipsZeroMagnitude(t *testing.T) {
	idx := &Index{}
	if err := idx.Build([]string{"zero", "x"}, [][]float32{{0, 0}, {1, 0}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	pos, score, err := idx.Best([]float32{1, 0})
	if err != nil || pos != 1 || score != 1 {
		t.Fatalf("Best = %d, %v, %v; want 1, 1, nil", pos, score, err)
	}

	// A zero query scores NaN against everything and nothing is selected.
	pos, score, err = idx.Best([]float32{0, 0})
	if err != nil || pos != -1 || score != -1 {
		t.Fatalf("Best(zero) = %d, %v, %v; want -1, -1, nil", pos, score, err)
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx := &Index{}
	err := idx.Build([]string{"a", "b"}, [][]float32{{1, 0}, {1, 0, 0}})
	if !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("Build err = %v, want ErrDimensionMismatch", err)
	}
	if err := idx.Build([]string{"a"}, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, _, err := idx.Best([]float32{1}); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("Best err = %v, want ErrDimensionMismatch", err)
	}
	if _, _, err := idx.Query([]float32{1}, 1); !errors.Is(err, vector.ErrDimensionMismatch) {
		t.Fatalf("Query err = %v, want ErrDimensionMismatch", err)
	}
}

func TestIndex_QueryStableOrder(t *testing.T) {
	idx := &Index{}
	ids := []string{"a", "b", "c", "d"}
	vecs := [][]float32{{0, 1}, {1, 0}, {0, 0}, {1, 0}}
	if err := idx.Build(ids, vecs); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	positions, scores, err := idx.Query([]float32{1, 0}, 0)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	want := []int{1, 3, 0}
	if len(positions) != len(want) {
		t.Fatalf("Query returned %d positions, want %d", len(positions), len(want))
	}
	for n := range want {
		if positions[n] != want[n] {
			t.Fatalf("positions = %v, want %v", positions, want)
		}
	}
	if scores[0] != 1 || scores[1] != 1 || scores[2] != 0 {
		t.Fatalf("scores = %v, want [1 1 0]", scores)
	}

	positions, _, err = idx.Query([]float32{1, 0}, 1)
	if err != nil || len(positions) != 1 || positions[0] != 1 {
		t.Fatalf("Query k=1 = %v, %v; want [1]", positions, err)
	}
}

func TestIndex_MarshalRoundTrip(t *testing.T) {
	src := &Index{}
	if err := src.Build([]string{"A00", "B00"}, [][]float32{{1, 0}, {0.5, -0.25}}); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	data, err := src.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	dst := &Index{}
	if err := dst.UnmarshalBinary(data); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if dst.Len() != 2 || dst.Dim() != 2 {
		t.Fatalf("restored len/dim = %d/%d, want 2/2", dst.Len(), dst.Dim())
	}
	if dst.ID(1) != "B00" || dst.Vector(1)[1] != -0.25 {
		t.Fatalf("restored entry 1 = %s %v", dst.ID(1), dst.Vector(1))
	}
	if err := dst.UnmarshalBinary(data[:len(data)-2]); err == nil {
		t.Fatalf("expected error on truncated data")
	}
}
