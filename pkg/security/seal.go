package security

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keySize   = 32
)

var sealSalt = []byte("agroworld-state-seal")

// ErrUnsealFailed signals sealed bytes that were tampered with or sealed under another secret.
var ErrUnsealFailed = fmt.Errorf("unseal failed")

// Sealer encrypts small payloads kept in session state.
type Sealer struct {
	key [keySize]byte
}

// NewSealer derives the sealing key from the configured secret.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, fmt.Errorf("state secret cannot be empty")
	}
	derived := argon2.IDKey([]byte(secret), sealSalt, 1, 19*1024, 1, keySize)
	s := &Sealer{}
	copy(s.key[:], derived)
	return s, nil
}

// Seal returns nonce || box.
func (s *Sealer) Seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrUnsealFailed
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, ErrUnsealFailed
	}
	return plain, nil
}
