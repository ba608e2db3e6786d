package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedVector matches any *MalformedVectorError via errors.Is.
	ErrMalformedVector = errors.New("vector: malformed vector")
	// ErrDimensionMismatch matches any *DimensionMismatchError via errors.Is.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
	// ErrZeroMagnitude is returned by CosineSimilarity when an operand is all zeros.
	ErrZeroMagnitude = errors.New("vector: cosine similarity with zero-magnitude vector")
)

// MalformedVectorError reports a textual vector that does not parse to a list
// of floats.
type MalformedVectorError struct {
	Text     string
	Token    string
	Position int
	Err      error
}

func (e *MalformedVectorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("vector: malformed vector token %d %q: %v", e.Position, e.Token, e.Err)
	}
	return fmt.Sprintf("vector: malformed vector token %d %q", e.Position, e.Token)
}

func (e *MalformedVectorError) Unwrap() error { return e.Err }

func (e *MalformedVectorError) Is(target error) bool { return target == ErrMalformedVector }

// DimensionMismatchError reports a vector whose length differs from the
// established dimension.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector: dimension mismatch: want %d, got %d", e.Want, e.Got)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }
