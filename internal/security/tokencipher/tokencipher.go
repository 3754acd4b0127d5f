// Package tokencipher encrypts OAuth access/refresh tokens before persistence.
//
// Wire format: hex(iv) + ":" + hex(ciphertext), AES-256-CBC with PKCS#7 padding
// and a fresh random 16-byte IV per call. The format is shared with rows written
// by earlier releases, so it must not change without a migration.
//
// The key is required, validated configuration. There is deliberately no
// env-var singleton and no random fallback: a process that cannot decrypt
// yesterday's rows must refuse to start, not silently mint a new key.
package tokencipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the required key length in bytes (AES-256).
	KeySize = 32

	ivSize = aes.BlockSize
	sep    = ":"
)

var (
	// ErrMalformed is returned when the input is not hex(iv):hex(ciphertext).
	ErrMalformed = errors.New("tokencipher: malformed ciphertext")

	// ErrDecrypt is returned when decryption yields invalid padding,
	// which is what a wrong key looks like under CBC.
	ErrDecrypt = errors.New("tokencipher: decryption failed")
)

// Cipher encrypts and decrypts short token strings under a fixed key.
// Safe for concurrent use.
type Cipher struct {
	key []byte
}

// New validates the key and returns a Cipher.
func New(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("tokencipher: key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Cipher{key: k}, nil
}

// Encrypt returns hex(iv):hex(ciphertext) for the given plaintext token.
func (c *Cipher) Encrypt(token string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("tokencipher: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("tokencipher: iv: %w", err)
	}

	padded := pkcs7Pad([]byte(token), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return hex.EncodeToString(iv) + sep + hex.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt. It returns ErrMalformed for input that is not in
// the hex:hex format and ErrDecrypt when the key does not match; it never
// hands back garbage as if it were a token.
func (c *Cipher) Decrypt(stored string) (string, error) {
	ivHex, ctHex, ok := strings.Cut(stored, sep)
	if !ok {
		return "", ErrMalformed
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return "", ErrMalformed
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", ErrMalformed
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("tokencipher: %w", err)
	}

	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)

	unpadded, err := pkcs7Unpad(pt, aes.BlockSize)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(unpadded), nil
}

// IsEncrypted reports whether a stored value looks like our wire format.
// Used by operational tooling to find legacy plaintext rows; it is not a
// security check.
func IsEncrypted(stored string) bool {
	ivHex, ctHex, ok := strings.Cut(stored, sep)
	if !ok {
		return false
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivSize {
		return false
	}
	ct, err := hex.DecodeString(ctHex)
	return err == nil && len(ct) > 0 && len(ct)%aes.BlockSize == 0
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
