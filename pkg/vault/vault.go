// Package vault encrypts secrets at rest. It knows nothing about tenants or
// users: callers hand it plaintext and get back an opaque Fernet token.
package vault

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"

	"github.com/Abraxas-365/filesmile/pkg/errx"
	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySalt and KeyIterations fix the derivation so values written by earlier
	// deployments keep decrypting under the same master secret.
	KeySalt       = "filesmile_multi_tenant_salt"
	KeyIterations = 100_000
	keyLength     = 32
)

// Vault derives its key once from the master secret and never mutates it.
type Vault struct {
	master []byte

	once sync.Once
	key  *fernet.Key
	keys []*fernet.Key
}

// New creates a vault for the given master secret.
func New(master string) (*Vault, error) {
	if master == "" {
		return nil, errx.Validation("vault master secret is empty")
	}
	return &Vault{master: []byte(master)}, nil
}

func (v *Vault) derive() {
	v.once.Do(func() {
		raw := pbkdf2.Key(v.master, []byte(KeySalt), KeyIterations, keyLength, sha256.New)
		var k fernet.Key
		copy(k[:], raw)
		v.key = &k
		v.keys = []*fernet.Key{v.key}
	})
}

// Encrypt returns the ciphertext for plaintext. The empty string is never
// encrypted: "" maps to "".
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	v.derive()

	tok, err := fernet.EncryptAndSign([]byte(plaintext), v.key)
	if err != nil {
		return "", errx.Wrap(err, "failed to encrypt secret", errx.TypeInternal)
	}
	return string(tok), nil
}

// Decrypt returns the plaintext and true, or "" and false when the value is
// empty, malformed, tampered with or sealed under another key.
func (v *Vault) Decrypt(ciphertext string) (string, bool) {
	if ciphertext == "" {
		return "", false
	}
	if !canonical(ciphertext) {
		return "", false
	}
	v.derive()

	msg := fernet.VerifyAndDecrypt([]byte(ciphertext), -1, v.keys)
	if msg == nil {
		return "", false
	}
	return string(msg), true
}

// canonical reports whether s is exactly one padded URL-safe base64 value.
// fernet-go stops decoding at the first padding, so trailing bytes would
// otherwise be ignored.
func canonical(s string) bool {
	raw, err := base64.URLEncoding.Strict().DecodeString(s)
	return err == nil && base64.URLEncoding.EncodeToString(raw) == s
}
