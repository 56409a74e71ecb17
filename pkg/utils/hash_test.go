package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-account/pkg/apperr"
)

func TestHasherDeterministic(t *testing.T) {
	hasher, err := NewHasher("sha256")
	require.NoError(t, err)

	first, err := hasher.Hash("secret1")
	require.NoError(t, err)
	second, err := hasher.Hash("secret1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestHasherDistinctInputs(t *testing.T) {
	hasher, err := NewHasher("sha256")
	require.NoError(t, err)

	first, err := hasher.Hash("secret1")
	require.NoError(t, err)
	second, err := hasher.Hash("secret2")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestHasherAlgorithms(t *testing.T) {
	sha2, err := NewHasher("sha256")
	require.NoError(t, err)
	sha3, err := NewHasher("sha3-256")
	require.NoError(t, err)

	d2, err := sha2.Hash("secret1")
	require.NoError(t, err)
	d3, err := sha3.Hash("secret1")
	require.NoError(t, err)

	// Same length, different digest family.
	assert.Len(t, d3, 64)
	assert.NotEqual(t, d2, d3)
}

func TestHasherDefaultsToSHA256(t *testing.T) {
	def, err := NewHasher("")
	require.NoError(t, err)
	sha2, err := NewHasher("sha256")
	require.NoError(t, err)

	a, _ := def.Hash("secret1")
	b, _ := sha2.Hash("secret1")
	assert.Equal(t, a, b)
}

func TestHasherUnknownAlgorithm(t *testing.T) {
	_, err := NewHasher("md5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrHashing))
}
