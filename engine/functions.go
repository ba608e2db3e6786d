package engine

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/viant/icdmatch/vector"
	sqlite "modernc.org/sqlite"
)

// RegisterVectorFunctions registers vec_cosine with the driver so it is
// available on new connections opened after this call. Existing open
// connections will not see it. vec_cosine returns NULL when either argument
// is NULL or has zero magnitude, so such rows sort last and can be filtered
// with IS NOT NULL.
func RegisterVectorFunctions() error {
	// Registration is process-wide; the driver rejects duplicates, which we ignore.
	_ = sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosineImpl)
	return nil
}

// asEmbedding accepts a float32 BLOB or a bracket text vector.
func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	case string:
		return vector.ParseText(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB or TEXT", arg)
	}
}

func vecCosineImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_cosine: expected 2 arguments, got %d", len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil {
		return nil, nil
	}
	sim, err := vector.CosineSimilarity(a, b)
	if errors.Is(err, vector.ErrZeroMagnitude) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sim, nil
}
