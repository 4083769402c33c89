// Package crypto implements the envelope and asymmetric primitives used by
// the identity and key-exchange layers.
//
// Envelope encryption is AES-256-CTR with a fresh 16-byte nonce per call and
// base64-encoded ciphertext. CTR carries no integrity tag; that matches the
// deployed client wire format, and the decision is recorded in DESIGN.md so
// an AEAD swap stays a two-function change.
//
// Asymmetric messaging is RSA-OAEP with SHA-256 for both the hash and the
// MGF1 mask, no label. Decryption failures are reported uniformly through
// ErrDecrypt; the padding check itself is constant time.
package crypto
