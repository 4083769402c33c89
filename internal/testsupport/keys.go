package testsupport

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
)

// MustRSAKey generates an RSA keypair for tests. 2048 bits keeps generation
// fast while matching production envelope sizes.
func MustRSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}
