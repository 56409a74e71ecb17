package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"shop-account/pkg/apperr"
)

// Hasher turns a plaintext secret into a fixed-length digest. Equal inputs
// always yield equal digests, which is what lets login match email and
// digest in a single repository lookup.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

type sha256Hasher struct{}

func (sha256Hasher) Hash(plaintext string) (string, error) {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:]), nil
}

type sha3Hasher struct{}

func (sha3Hasher) Hash(plaintext string) (string, error) {
	sum := sha3.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:]), nil
}

// NewHasher selects the digest algorithm by config name.
func NewHasher(algo string) (Hasher, error) {
	switch algo {
	case "", "sha256":
		return sha256Hasher{}, nil
	case "sha3-256":
		return sha3Hasher{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown hash algorithm %q", apperr.ErrHashing, algo)
	}
}
