package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorBLOBRoundTrip(t *testing.T) {
	vec := []float32{0.1, -2.5, 3.75, 0, 1e-7}

	blob, err := float32ArrayToBLOB(vec)
	require.NoError(t, err)
	assert.Len(t, blob, len(vec)*4)

	got, err := blobToFloat32Array(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestVectorBLOBErrors(t *testing.T) {
	_, err := float32ArrayToBLOB(nil)
	assert.Error(t, err)

	_, err = blobToFloat32Array([]byte{1, 2, 3})
	assert.Error(t, err)

	_, err = blobToFloat32Array(nil)
	assert.Error(t, err)
}
