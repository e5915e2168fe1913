// Package keys derives the two independent key sets used by idguard from a
// single process-wide root secret: a pepper for keyed lookup hashes and a
// symmetric key for reversible field encryption.
package keys

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"sync"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// CipherKeySalt is the fixed application salt fed to PBKDF2. It lives in
	// code, not configuration, so a leaked root secret alone does not yield the
	// cipher key through precomputed tables.
	CipherKeySalt = "idguard/identity-fields/v1"

	// CipherKeyIterations is the PBKDF2 iteration count.
	CipherKeyIterations = 100_000

	// CipherKeyLength is the derived key length in bytes (AES-256).
	CipherKeyLength = 32
)

// ErrEmptyRootSecret is returned when key material is requested for an empty
// root secret. There is no fallback secret.
var ErrEmptyRootSecret = errors.New("root secret is empty")

// DerivePepper returns the HMAC key used for lookup hashes. The root secret
// bytes are used directly so that hashing stays cheap on every lookup.
func DerivePepper(root []byte) []byte {
	return bytes.Clone(root)
}

// DeriveCipherKey stretches the root secret with PBKDF2-HMAC-SHA256. This is
// deliberately slow; use Material to pay the cost once per process.
func DeriveCipherKey(root []byte) []byte {
	return pbkdf2.Key(root, []byte(CipherKeySalt), CipherKeyIterations, CipherKeyLength, sha256.New)
}

// Material holds the key material derived from one root secret.
//
// The pepper is computed eagerly. The cipher key is derived on first use and
// memoised, so concurrent callers share a single derivation. A Material is
// immutable once built and safe for concurrent use. Returned slices must not
// be modified.
type Material struct {
	pepper    []byte
	cipherKey func() []byte
}

// NewMaterial builds key material for root. It fails on an empty root secret.
func NewMaterial(root []byte) (*Material, error) {
	if len(root) == 0 {
		return nil, ErrEmptyRootSecret
	}
	secret := bytes.Clone(root)
	return &Material{
		pepper: DerivePepper(secret),
		cipherKey: sync.OnceValue(func() []byte {
			return DeriveCipherKey(secret)
		}),
	}, nil
}

// Pepper returns the lookup-hash key.
func (m *Material) Pepper() []byte {
	return m.pepper
}

// CipherKey returns the encryption key, deriving it on the first call.
func (m *Material) CipherKey() []byte {
	return m.cipherKey()
}
