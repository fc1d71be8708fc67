// Package digest computes hex hashes and HMACs by algorithm name.
package digest

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Algorithm names.
const (
	MD5    = "md5"
	SHA1   = "sha1"
	SHA256 = "sha256"
	SHA512 = "sha512"
)

// UnsupportedError reports an algorithm name the caller may not use.
type UnsupportedError struct {
	Algorithm string
	HMAC      bool
}

func (e *UnsupportedError) Error() string {
	if e.HMAC {
		return fmt.Sprintf("digest: unsupported hmac algorithm %q", e.Algorithm)
	}
	return fmt.Sprintf("digest: unsupported hash algorithm %q", e.Algorithm)
}

func constructor(algorithm string) func() hash.Hash {
	switch algorithm {
	case MD5:
		return md5.New
	case SHA1:
		return sha1.New
	case SHA256:
		return sha256.New
	case SHA512:
		return sha512.New
	}
	return nil
}

// New returns a fresh hash for algorithm.
func New(algorithm string) (hash.Hash, error) {
	fn := constructor(algorithm)
	if fn == nil {
		return nil, &UnsupportedError{Algorithm: algorithm}
	}
	return fn(), nil
}

// NewHMAC returns a keyed hash. md5 is not accepted.
func NewHMAC(algorithm string, key []byte) (hash.Hash, error) {
	if algorithm == MD5 {
		return nil, &UnsupportedError{Algorithm: algorithm, HMAC: true}
	}
	fn := constructor(algorithm)
	if fn == nil {
		return nil, &UnsupportedError{Algorithm: algorithm, HMAC: true}
	}
	return hmac.New(fn, key), nil
}

// Sum reads r to EOF and returns the hex digest.
func Sum(r io.Reader, algorithm string) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	return copySum(h, r)
}

// SumHMAC reads r to EOF and returns the hex HMAC under key.
func SumHMAC(r io.Reader, algorithm string, key []byte) (string, error) {
	h, err := NewHMAC(algorithm, key)
	if err != nil {
		return "", err
	}
	return copySum(h, r)
}

// SumBytes hashes data in memory.
func SumBytes(data []byte, algorithm string) (string, error) {
	h, err := New(algorithm)
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func copySum(h hash.Hash, r io.Reader) (string, error) {
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("digest: read: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
