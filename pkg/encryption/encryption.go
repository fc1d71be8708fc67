// Package encryption implements the block cipher modes exposed through
// cryptBlob.
package encryption

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// Method enumerates supported encryption algorithms.
type Method string

const (
	// MethodAESCBC is AES in CBC mode with PKCS#7 padding. The key length
	// selects AES-128, AES-192 or AES-256.
	MethodAESCBC Method = "aes-cbc"
)

// ErrPadding is returned when decrypted data carries invalid PKCS#7 padding,
// which usually means a wrong key or iv.
var ErrPadding = errors.New("encryption: invalid padding")

// Options describes how to encrypt or decrypt a payload.
type Options struct {
	Method Method
	Key    []byte
	IV     []byte
}

// Validate ensures the configuration is usable for the selected method.
func (o Options) Validate() error {
	switch o.Method {
	case MethodAESCBC:
		switch len(o.Key) {
		case 16, 24, 32:
		default:
			return fmt.Errorf("encryption: aes-cbc requires 16, 24 or 32-byte key, got %d", len(o.Key))
		}
		if len(o.IV) != aes.BlockSize {
			return fmt.Errorf("encryption: aes-cbc requires %d-byte iv, got %d", aes.BlockSize, len(o.IV))
		}
	default:
		return fmt.Errorf("encryption: unsupported method %q", o.Method)
	}
	return nil
}

// Encrypt returns data encrypted according to opts.
func Encrypt(data []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(opts.Key)
	if err != nil {
		return nil, err
	}
	out := pad(data, block.BlockSize())
	cipher.NewCBCEncrypter(block, opts.IV).CryptBlocks(out, out)
	return out, nil
}

// Decrypt reverses Encrypt using opts.
func Decrypt(ciphertext []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(opts.Key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("encryption: ciphertext length %d is not a multiple of the block size", len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, opts.IV).CryptBlocks(out, ciphertext)
	return unpad(out, block.BlockSize())
}

// Crypt runs Encrypt when encrypt is set and Decrypt otherwise.
func Crypt(data []byte, encrypt bool, opts Options) ([]byte, error) {
	if encrypt {
		return Encrypt(data, opts)
	}
	return Decrypt(data, opts)
}

func pad(data []byte, size int) []byte {
	n := size - len(data)%size
	out := make([]byte, len(data)+n)
	copy(out, data)
	copy(out[len(data):], bytes.Repeat([]byte{byte(n)}, n))
	return out
}

func unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size || n > len(data) {
		return nil, ErrPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrPadding
		}
	}
	return data[:len(data)-n], nil
}
