package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var ErrInvalidToken = errors.New("invalid token")

// Sealer turns short values into opaque URL-safe tokens and back. Tokens are
// authenticated, so a tampered cookie fails to open instead of resolving to
// somebody else's page session.
type Sealer struct {
	aead cipher.AEAD
}

// New builds a Sealer from a base64 (standard encoding) AES key of 16, 24 or
// 32 bytes.
func New(encodedKey string) (*Sealer, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aesgcm}, nil
}

func (s *Sealer) Seal(value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ct := s.aead.Seal(nonce, nonce, []byte(value), nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

func (s *Sealer) Open(token string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize+s.aead.Overhead() {
		return "", ErrInvalidToken
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidToken
	}

	return string(pt), nil
}
