package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
)

func testKeypair(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return key
}

func TestAsymmetricRoundTrip(t *testing.T) {
	key := testKeypair(t)
	messages := []string{
		"",
		"alice",
		"0123456789abcdef0123456789abcdef",
		"unicode: héllo wörld ☺",
	}
	for _, msg := range messages {
		ciphertext, err := EncryptMessage(msg, &key.PublicKey)
		if err != nil {
			t.Fatalf("EncryptMessage(%q) failed: %v", msg, err)
		}
		decrypted, err := DecryptMessage(ciphertext, key)
		if err != nil {
			t.Fatalf("DecryptMessage failed: %v", err)
		}
		if decrypted != msg {
			t.Fatalf("round trip mismatch: got %q, want %q", decrypted, msg)
		}
	}
}

func TestEncryptMessageRejectsOversized(t *testing.T) {
	key := testKeypair(t)
	// 2048-bit modulus leaves 256 - 2*32 - 2 = 190 bytes for OAEP payload.
	oversized := strings.Repeat("x", 191)
	ciphertext, err := EncryptMessage(oversized, &key.PublicKey)
	if !errors.Is(err, ErrEncrypt) {
		t.Fatalf("expected ErrEncrypt, got %v", err)
	}
	if ciphertext != "" {
		t.Fatal("expected no partial ciphertext on failure")
	}
}

func TestDecryptMessageWrongKey(t *testing.T) {
	sender := testKeypair(t)
	other := testKeypair(t)
	ciphertext, err := EncryptMessage("secret", &sender.PublicKey)
	if err != nil {
		t.Fatalf("EncryptMessage failed: %v", err)
	}
	if _, err := DecryptMessage(ciphertext, other); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestDecryptMessageMalformedBase64(t *testing.T) {
	key := testKeypair(t)
	if _, err := DecryptMessage("%%%", key); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}
