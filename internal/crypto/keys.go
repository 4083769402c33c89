package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// ServerPrivateKeyFile is the on-disk name of the server's private key.
	ServerPrivateKeyFile = "node_private_key.pem"
	// ServerPublicKeyFile is the on-disk name of the server's public key.
	ServerPublicKeyFile = "node_public_key.pem"
)

// ServerKeys holds the daemon's long-lived keypair together with the PEM
// form of the public key handed out during the handshake.
type ServerKeys struct {
	Private   *rsa.PrivateKey
	PublicPEM []byte
}

// LoadOrGenerateServerKeys loads the server keypair from dir, generating and
// persisting a fresh one when none exists. The private key file is written
// with mode 0600.
func LoadOrGenerateServerKeys(dir string, bits int) (*ServerKeys, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}

	privatePath := filepath.Join(dir, ServerPrivateKeyFile)
	raw, err := os.ReadFile(privatePath)
	switch {
	case err == nil:
		private, err := ParsePrivateKeyPEM(raw)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", privatePath, err)
		}
		publicPEM, err := EncodePublicKeyPEM(&private.PublicKey)
		if err != nil {
			return nil, err
		}
		return &ServerKeys{Private: private, PublicPEM: publicPEM}, nil
	case errors.Is(err, fs.ErrNotExist):
		return generateServerKeys(dir, bits)
	default:
		return nil, fmt.Errorf("read %s: %w", privatePath, err)
	}
}

func generateServerKeys(dir string, bits int) (*ServerKeys, error) {
	if bits < 2048 {
		bits = 2048
	}
	private, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("generate server keypair: %w", err)
	}

	privateDER, err := x509.MarshalPKCS8PrivateKey(private)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privateDER})

	publicPEM, err := EncodePublicKeyPEM(&private.PublicKey)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(dir, ServerPrivateKeyFile), privatePEM, 0o600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ServerPublicKeyFile), publicPEM, 0o644); err != nil {
		return nil, fmt.Errorf("write public key: %w", err)
	}

	return &ServerKeys{Private: private, PublicPEM: publicPEM}, nil
}

// ParsePrivateKeyPEM parses a PEM-encoded RSA private key in PKCS#8 or
// PKCS#1 form.
func ParsePrivateKeyPEM(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("PEM block is not an RSA private key")
		}
		return rsaKey, nil
	}
	rsaKey, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return rsaKey, nil
}

// ParsePublicKeyPEM parses a PEM-encoded RSA public key in PKIX or PKCS#1
// form.
func ParsePublicKeyPEM(raw []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}
	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("PEM block is not an RSA public key")
		}
		return rsaKey, nil
	}
	rsaKey, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return rsaKey, nil
}

// EncodePublicKeyPEM renders an RSA public key in PKIX PEM form.
func EncodePublicKeyPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}
