package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding encodes vec as a BLOB for SQLite columns that carry the
// native numeric form of an embedding: a little-endian sequence of IEEE 754
// float32 values without a length prefix.
func EncodeEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding decodes a BLOB produced by EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return []float32{}, nil
	}
	if len(b)%4 != 0 {
		return nil, &MalformedVectorError{
			Token: fmt.Sprintf("blob[%d]", len(b)),
			Err:   fmt.Errorf("length %d is not a multiple of 4", len(b)),
		}
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
