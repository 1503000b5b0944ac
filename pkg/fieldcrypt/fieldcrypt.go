// Package fieldcrypt encrypts individual record fields before they are
// persisted and decrypts them on the way back out.
//
// Ciphertext is text so it can live in ordinary TEXT columns:
//
//	base64url( [version: 1 byte] [nonce: 24 bytes] [sealed field + tag] )
//
// The version byte is authenticated as associated data. Keys are held only
// in process memory; there is no rotation.
package fieldcrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length in bytes of a field key.
const KeySize = chacha20poly1305.KeySize

const version byte = 0x01

const overhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// ErrCiphertext is returned for any field that was not produced by this
// cipher's key or is damaged.
var ErrCiphertext = errors.New("fieldcrypt: invalid ciphertext")

var encoding = base64.RawURLEncoding

// Cipher seals and opens field values with a single key.
type Cipher struct {
	aead cipher.AEAD
}

// NewRandomKey returns a fresh key from the system CSPRNG.
func NewRandomKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate field key: %w", err)
	}
	return key, nil
}

// ParseKey decodes a base64 (standard or URL alphabet) key.
func ParseKey(encoded string) ([]byte, error) {
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if key, err := enc.DecodeString(encoded); err == nil {
			if len(key) != KeySize {
				return nil, fmt.Errorf("field key is %d bytes, want %d", len(key), KeySize)
			}
			return key, nil
		}
	}
	return nil, errors.New("field key is not valid base64")
}

// New builds a Cipher around key.
func New(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create field cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 1+len(nonce), overhead+len(plaintext))
	out[0] = version
	copy(out[1:], nonce[:])
	out = c.aead.Seal(out, nonce[:], []byte(plaintext), []byte{version})

	return encoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt. Every failure wraps
// ErrCiphertext.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := encoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: not base64: %v", ErrCiphertext, err)
	}
	if len(raw) < overhead {
		return "", fmt.Errorf("%w: %d bytes, minimum is %d", ErrCiphertext, len(raw), overhead)
	}
	if raw[0] != version {
		return "", fmt.Errorf("%w: unsupported version %d", ErrCiphertext, raw[0])
	}

	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	sealed := raw[1+chacha20poly1305.NonceSizeX:]

	plaintext, err := c.aead.Open(nil, nonce, sealed, raw[:1])
	if err != nil {
		return "", fmt.Errorf("%w: authentication failed", ErrCiphertext)
	}
	return string(plaintext), nil
}
