package security

import (
	"bytes"
	"errors"
	"testing"
)

func TestSealRoundTrip(t *testing.T) {
	s, err := NewSealer("state-secret")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}

	plain := []byte(`{"password":"S3cret-pass!"}`)
	sealed, err := s.Seal(plain)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("S3cret-pass!")) {
		t.Fatal("sealed bytes leak the plaintext")
	}

	opened, err := s.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(opened, plain) {
		t.Fatalf("expected %s, got %s", plain, opened)
	}
}

func TestSealUsesFreshNonce(t *testing.T) {
	s, err := NewSealer("state-secret")
	if err != nil {
		t.Fatalf("new sealer: %v", err)
	}
	a, _ := s.Seal([]byte("same"))
	b, _ := s.Seal([]byte("same"))
	if bytes.Equal(a, b) {
		t.Fatal("expected distinct ciphertexts for repeated seals")
	}
}

func TestOpenRejectsOtherSecretAndTampering(t *testing.T) {
	s, _ := NewSealer("state-secret")
	other, _ := NewSealer("another-secret")

	sealed, err := s.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := other.Open(sealed); !errors.Is(err, ErrUnsealFailed) {
		t.Fatalf("expected ErrUnsealFailed for another secret, got %v", err)
	}

	sealed[len(sealed)-1] ^= 0xff
	if _, err := s.Open(sealed); !errors.Is(err, ErrUnsealFailed) {
		t.Fatalf("expected ErrUnsealFailed for tampered bytes, got %v", err)
	}
	if _, err := s.Open([]byte("short")); !errors.Is(err, ErrUnsealFailed) {
		t.Fatalf("expected ErrUnsealFailed for short input, got %v", err)
	}
}

func TestNewSealerRequiresSecret(t *testing.T) {
	if _, err := NewSealer(""); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
