package engine

import (
	"math"
	"testing"

	"github.com/viant/icdmatch/vector"
)

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	// Register globally before first connection so functions are available.
	if err := RegisterVectorFunctions(); err != nil {
		t.Fatalf("RegisterVectorFunctions failed: %v", err)
	}
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	aBlob := vector.EncodeEmbedding([]float32{1, 0})
	bBlob := vector.EncodeEmbedding([]float32{0, 1})

	// vec_cosine orthogonal -> 0
	var sim float64
	if err := db.QueryRow(`SELECT vec_cosine(?, ?)`, aBlob, bBlob).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,b) query failed: %v", err)
	}
	if sim != 0 {
		t.Fatalf("vec_cosine(a,b) = %v, want 0", sim)
	}

	// vec_cosine identical, mixing BLOB and bracket text -> 1
	if err := db.QueryRow(`SELECT vec_cosine(?, '[1.0, 0.0]')`, aBlob).Scan(&sim); err != nil {
		t.Fatalf("vec_cosine(a,text) query failed: %v", err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Fatalf("vec_cosine(a,text) = %v, want 1", sim)
	}

	// NULL in -> NULL out
	var null *float64
	if err := db.QueryRow(`SELECT vec_cosine(NULL, ?)`, aBlob).Scan(&null); err != nil {
		t.Fatalf("vec_cosine(NULL,a) query failed: %v", err)
	}
	if null != nil {
		t.Fatalf("vec_cosine(NULL,a) = %v, want NULL", *null)
	}

	// Zero magnitude -> NULL
	null = nil
	if err := db.QueryRow(`SELECT vec_cosine('[0, 0]', ?)`, aBlob).Scan(&null); err != nil {
		t.Fatalf("vec_cosine(zero,a) query failed: %v", err)
	}
	if null != nil {
		t.Fatalf("vec_cosine(zero,a) = %v, want NULL", *null)
	}

	// Malformed text surfaces as a query error.
	if err := db.QueryRow(`SELECT vec_cosine('[1, x]', ?)`, aBlob).Scan(&sim); err == nil {
		t.Fatalf("expected error for malformed text vector")
	}
}
