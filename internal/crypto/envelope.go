package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrEncrypt reports an encryption failure, typically an oversized
	// message or a malformed key.
	ErrEncrypt = errors.New("encryption failed")
	// ErrDecrypt reports a decryption failure. Callers get no detail about
	// which check failed.
	ErrDecrypt = errors.New("decryption failed")
)

const (
	// EnvelopeKeyLen is the required symmetric key length in bytes.
	EnvelopeKeyLen = 32
	// EnvelopeNonceLen is the CTR nonce length in bytes.
	EnvelopeNonceLen = 16
)

// EncryptEnvelope encrypts plaintext under a 32-byte key with AES-256-CTR.
// The nonce is freshly random on every call; reusing a nonce with the same
// key breaks confidentiality, so callers must never cache the pair.
func EncryptEnvelope(key, plaintext []byte) (nonce []byte, ciphertextB64 string, err error) {
	if len(key) != EnvelopeKeyLen {
		return nil, "", fmt.Errorf("%w: key must be %d bytes, got %d", ErrEncrypt, EnvelopeKeyLen, len(key))
	}

	nonce = make([]byte, EnvelopeNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, "", fmt.Errorf("%w: nonce generation: %w", ErrEncrypt, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrEncrypt, err)
	}

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCTR(block, nonce).XORKeyStream(ciphertext, plaintext)
	return nonce, base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptEnvelope reverses EncryptEnvelope. Malformed base64 or a wrong-sized
// key or nonce yields ErrDecrypt; CTR mode provides no integrity, so a wrong
// key silently produces garbage rather than an error.
func DecryptEnvelope(key, nonce []byte, ciphertextB64 string) ([]byte, error) {
	if len(key) != EnvelopeKeyLen {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrDecrypt, EnvelopeKeyLen, len(key))
	}
	if len(nonce) != EnvelopeNonceLen {
		return nil, fmt.Errorf("%w: nonce must be %d bytes, got %d", ErrDecrypt, EnvelopeNonceLen, len(nonce))
	}

	ciphertext, err := base64.StdEncoding.Strict().DecodeString(ciphertextB64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base64", ErrDecrypt)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, nonce).XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// NewEnvelopeKey generates a fresh random 32-byte symmetric key.
func NewEnvelopeKey() ([]byte, error) {
	key := make([]byte, EnvelopeKeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate envelope key: %w", err)
	}
	return key, nil
}
