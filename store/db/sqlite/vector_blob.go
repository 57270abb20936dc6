package sqlite

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// float32ArrayToBLOB serializes a vector as little-endian float32 bytes.
func float32ArrayToBLOB(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, errors.New("empty vector")
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf, nil
}

// blobToFloat32Array is the inverse of float32ArrayToBLOB.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob) == 0 || len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid vector BLOB length: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}
