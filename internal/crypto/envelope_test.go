package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	key, err := NewEnvelopeKey()
	if err != nil {
		t.Fatalf("NewEnvelopeKey failed: %v", err)
	}

	plaintexts := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("Albert Einstein's ideas changed the world."),
		bytes.Repeat([]byte{0xff}, 4096),
	}
	for _, plaintext := range plaintexts {
		nonce, ciphertext, err := EncryptEnvelope(key, plaintext)
		if err != nil {
			t.Fatalf("EncryptEnvelope failed: %v", err)
		}
		if len(nonce) != EnvelopeNonceLen {
			t.Fatalf("expected %d-byte nonce, got %d", EnvelopeNonceLen, len(nonce))
		}
		decrypted, err := DecryptEnvelope(key, nonce, ciphertext)
		if err != nil {
			t.Fatalf("DecryptEnvelope failed: %v", err)
		}
		if !bytes.Equal(decrypted, plaintext) {
			t.Fatalf("round trip mismatch: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestEnvelopeNonceFreshPerCall(t *testing.T) {
	key, err := NewEnvelopeKey()
	if err != nil {
		t.Fatalf("NewEnvelopeKey failed: %v", err)
	}
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		nonce, _, err := EncryptEnvelope(key, []byte("same plaintext"))
		if err != nil {
			t.Fatalf("EncryptEnvelope failed: %v", err)
		}
		if seen[string(nonce)] {
			t.Fatal("nonce repeated across calls")
		}
		seen[string(nonce)] = true
	}
}

func TestEncryptEnvelopeRejectsShortKey(t *testing.T) {
	if _, _, err := EncryptEnvelope([]byte("short"), []byte("data")); !errors.Is(err, ErrEncrypt) {
		t.Fatalf("expected ErrEncrypt, got %v", err)
	}
}

func TestDecryptEnvelopeRejectsMalformedBase64(t *testing.T) {
	key, _ := NewEnvelopeKey()
	nonce := make([]byte, EnvelopeNonceLen)
	if _, err := DecryptEnvelope(key, nonce, "!!not base64!!"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptEnvelopeRejectsBadNonceLength(t *testing.T) {
	key, _ := NewEnvelopeKey()
	if _, err := DecryptEnvelope(key, []byte{1, 2, 3}, "aGVsbG8="); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}
