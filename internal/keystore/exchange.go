package keystore

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"vocalis/internal/crypto"
	"vocalis/internal/logging"
	"vocalis/internal/services"
)

// Exchange implements the client/server key handshake on top of the key
// store and the server keypair.
type Exchange struct {
	store  *Store
	server crypto.ServerKeys
	ttl    time.Duration
	logger *slog.Logger
}

// NewExchange builds a key exchange service. The TTL governs how long a
// submitted client key stays live before the next handshake must replace it.
func NewExchange(store *Store, server crypto.ServerKeys, ttl time.Duration, logger *slog.Logger) *Exchange {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exchange{
		store:  store,
		server: server,
		ttl:    ttl,
		logger: logger.With(logging.String(logging.FieldComponent, "keystore")),
	}
}

// ServerPublicKeyB64 returns the server public key PEM encoded with base64,
// the form clients expect in handshake responses.
func (e *Exchange) ServerPublicKeyB64() string {
	return base64.StdEncoding.EncodeToString(e.server.PublicPEM)
}

// SubmitPublicKey validates and stores a client public key and returns the
// server's public key for the reply. The submitted key arrives as base64 of
// a PEM document.
func (e *Exchange) SubmitPublicKey(ctx context.Context, owner, publicKeyB64, timestamp string) (string, error) {
	if owner == "" {
		return "", services.Wrap(services.ErrValidation, "keystore", "submit", "Missing key owner", nil)
	}
	if publicKeyB64 == "" {
		return "", services.Wrap(services.ErrValidation, "keystore", "submit", "Missing public key", nil)
	}
	if _, err := time.Parse(time.RFC3339, timestamp); err != nil {
		return "", services.Wrap(services.ErrValidation, "keystore", "submit", "Invalid timestamp", err)
	}

	pemBytes, err := base64.StdEncoding.Strict().DecodeString(publicKeyB64)
	if err != nil {
		return "", services.Wrap(services.ErrEncoding, "keystore", "submit", "Invalid public key encoding", err)
	}
	if _, err := crypto.ParsePublicKeyPEM(pemBytes); err != nil {
		return "", services.Wrap(services.ErrEncoding, "keystore", "submit", "Invalid public key encoding", err)
	}

	record, err := e.store.Upsert(ctx, owner, string(pemBytes), e.ttl)
	if err != nil {
		return "", services.Wrap(services.ErrResource, "keystore", "submit", "Could not store public key", err)
	}

	e.logger.InfoContext(ctx, "client key stored",
		logging.String("owner", owner),
		logging.String("expires_at", record.ExpiresAt.Format(time.RFC3339)))

	return e.ServerPublicKeyB64(), nil
}

// Decrypt recovers a payload a client encrypted under the server public key.
// The ciphertext arrives base64 encoded.
func (e *Exchange) Decrypt(ciphertextB64 string) (string, error) {
	plaintext, err := crypto.DecryptMessage(ciphertextB64, e.server.Private)
	if err != nil {
		return "", services.Wrap(services.ErrEncoding, "keystore", "decrypt", "Could not decrypt payload", err)
	}
	return plaintext, nil
}

// ClientKey loads the owner's live public key for encrypting replies to that
// client. It returns nil when no live key is on file.
func (e *Exchange) ClientKey(ctx context.Context, owner string) (*Record, error) {
	record, err := e.store.Get(ctx, owner)
	if err != nil {
		return nil, services.Wrap(services.ErrResource, "keystore", "lookup", "Could not load public key", err)
	}
	return record, nil
}
