package keystore_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"vocalis/internal/crypto"
	"vocalis/internal/keystore"
	"vocalis/internal/services"
	"vocalis/internal/testsupport"
)

func newExchange(t *testing.T) (*keystore.Exchange, crypto.ServerKeys) {
	t.Helper()

	store := openStore(t)
	server, err := crypto.LoadOrGenerateServerKeys(t.TempDir(), 2048)
	if err != nil {
		t.Fatalf("LoadOrGenerateServerKeys failed: %v", err)
	}
	return keystore.NewExchange(store, *server, time.Hour, nil), *server
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func clientKeyB64(t *testing.T) string {
	t.Helper()

	key := testsupport.MustRSAKey(t)
	pemBytes, err := crypto.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatalf("EncodePublicKeyPEM failed: %v", err)
	}
	return base64.StdEncoding.EncodeToString(pemBytes)
}

func TestSubmitPublicKeyReturnsServerKey(t *testing.T) {
	exchange, server := newExchange(t)

	got, err := exchange.SubmitPublicKey(context.Background(), "owner-1", clientKeyB64(t), nowStamp())
	if err != nil {
		t.Fatalf("SubmitPublicKey failed: %v", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(got)
	if err != nil {
		t.Fatalf("decode server key: %v", err)
	}
	if !bytes.Equal(decoded, server.PublicPEM) {
		t.Fatal("expected the server public key PEM in the response")
	}
}

func TestSubmitPublicKeyStoresClientKey(t *testing.T) {
	exchange, _ := newExchange(t)
	ctx := context.Background()

	encoded := clientKeyB64(t)
	if _, err := exchange.SubmitPublicKey(ctx, "owner-2", encoded, nowStamp()); err != nil {
		t.Fatalf("SubmitPublicKey failed: %v", err)
	}

	record, err := exchange.ClientKey(ctx, "owner-2")
	if err != nil {
		t.Fatalf("ClientKey failed: %v", err)
	}
	if record == nil {
		t.Fatal("expected a stored client key")
	}
	if _, err := crypto.ParsePublicKeyPEM([]byte(record.PublicKeyPEM)); err != nil {
		t.Fatalf("stored key is not parseable PEM: %v", err)
	}
}

func TestSubmitPublicKeyRejectsBadEncoding(t *testing.T) {
	exchange, _ := newExchange(t)

	_, err := exchange.SubmitPublicKey(context.Background(), "owner-3", "not base64!!!", nowStamp())
	if err == nil {
		t.Fatal("expected encoding error")
	}
	if !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("error = %v, want ErrEncoding", err)
	}
	if services.Message(err) != "Invalid public key encoding" {
		t.Fatalf("message = %q", services.Message(err))
	}
}

func TestSubmitPublicKeyRejectsNonKeyPayload(t *testing.T) {
	exchange, _ := newExchange(t)

	payload := base64.StdEncoding.EncodeToString([]byte("just some text"))
	_, err := exchange.SubmitPublicKey(context.Background(), "owner-4", payload, nowStamp())
	if !errors.Is(err, services.ErrEncoding) {
		t.Fatalf("error = %v, want ErrEncoding", err)
	}
}

func TestSubmitPublicKeyValidation(t *testing.T) {
	exchange, _ := newExchange(t)
	ctx := context.Background()

	if _, err := exchange.SubmitPublicKey(ctx, "", clientKeyB64(t), nowStamp()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing owner error = %v, want ErrValidation", err)
	}
	if _, err := exchange.SubmitPublicKey(ctx, "owner", "", nowStamp()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("missing key error = %v, want ErrValidation", err)
	}
	if _, err := exchange.SubmitPublicKey(ctx, "owner", clientKeyB64(t), "yesterday"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("bad timestamp error = %v, want ErrValidation", err)
	}

	_, err := exchange.SubmitPublicKey(ctx, "owner", clientKeyB64(t), "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("empty timestamp error = %v, want ErrValidation", err)
	}
	if services.Message(err) != "Invalid timestamp" {
		t.Fatalf("message = %q", services.Message(err))
	}
}
