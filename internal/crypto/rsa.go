package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"
)

// EncryptMessage encrypts a UTF-8 string for the recipient with RSA-OAEP
// (SHA-256 hash and MGF1). The message length is bounded by the key modulus
// minus the OAEP overhead; exceeding it fails with ErrEncrypt and produces
// no partial ciphertext.
func EncryptMessage(message string, recipient *rsa.PublicKey) (string, error) {
	if recipient == nil {
		return "", fmt.Errorf("%w: nil recipient key", ErrEncrypt)
	}
	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, recipient, []byte(message), nil)
	if err != nil {
		if errors.Is(err, rsa.ErrMessageTooLong) {
			return "", fmt.Errorf("%w: message exceeds OAEP bound for %d-bit key", ErrEncrypt, recipient.N.BitLen())
		}
		return "", fmt.Errorf("%w: %w", ErrEncrypt, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptMessage decrypts a base64 RSA-OAEP ciphertext produced by
// EncryptMessage. All failure modes map to the single ErrDecrypt so the
// result carries no padding-oracle signal, and the OAEP check itself runs in
// constant time.
func DecryptMessage(ciphertextB64 string, own *rsa.PrivateKey) (string, error) {
	if own == nil {
		return "", fmt.Errorf("%w: nil private key", ErrDecrypt)
	}
	ciphertext, err := base64.StdEncoding.Strict().DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: malformed base64", ErrDecrypt)
	}
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, own, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecrypt)
	}
	return string(plaintext), nil
}
