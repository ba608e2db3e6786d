package match

import (
	"fmt"

	"github.com/viant/icdmatch/vector"
)

// ReferenceRow is a raw reference record as supplied by a data source.
type ReferenceRow struct {
	Code          string
	Label         string
	EmbeddingText string
}

// ReferenceEntry is a parsed reference record.
type ReferenceEntry struct {
	Code   string
	Vector []float32
	Label  string
}

// Result is the best reference entry for one query.
type Result struct {
	Code string
	// Vector is the matched reference vector, nil for the sentinel.
	Vector []float32
	// VectorText is Vector in bracket text form, "" for the sentinel.
	VectorText string
	Label      string
	Score      float32
}

// Sentinel returns the "no match" result: empty code and label, no vector,
// score -1.
func Sentinel() Result {
	return Result{Score: -1}
}

// Found reports whether r refers to a reference entry.
func (r Result) Found() bool { return r.Vector != nil }

func newResult(e *ReferenceEntry, score float32) Result {
	return Result{
		Code:       e.Code,
		Vector:     append([]float32{}, e.Vector...),
		VectorText: vector.FormatText(e.Vector),
		Label:      e.Label,
		Score:      score,
	}
}

// Query is one query embedding, either already numeric or in bracket text
// form. Vector takes precedence when both are set.
type Query struct {
	Vector []float32
	Text   string
}

// Normalize returns the numeric form of q.
func (q Query) Normalize() ([]float32, error) {
	if q.Vector != nil {
		return q.Vector, nil
	}
	return vector.ParseText(q.Text)
}

// Outcome pairs a Result with the per-row error that prevented it.
type Outcome struct {
	Result Result
	Err    error
}

// RowError wraps a reference row failure with its position.
type RowError struct {
	Row  int
	Code string
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("match: reference row %d (%s): %v", e.Row, e.Code, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
