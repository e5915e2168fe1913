// Package protect implements the field transforms: a keyed one-way hash for
// lookup fields and authenticated encryption for display fields, plus the
// shape checks that tell protected values apart from raw ones.
package protect

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

const (
	// TokenPrefix marks an encrypted value. The digit is the token format
	// version; a new construction must use a new prefix.
	TokenPrefix = "idg1."

	// DigestLength is the length of a lookup hash in hex characters.
	DigestLength = 2 * sha256.Size

	nonceSize = 12
	tagSize   = 16
)

var (
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrCryptoUnavailable = errors.New("crypto primitives unavailable")
)

var tokenEncoding = base64.RawURLEncoding

// KeySource supplies key material. *keys.Material satisfies it.
type KeySource interface {
	Pepper() []byte
	CipherKey() []byte
}

// AEADFactory builds the cipher used for display fields.
type AEADFactory func(key []byte) (cipher.AEAD, error)

// NewAESGCM is the default AEADFactory.
func NewAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// Option configures a Protector.
type Option func(*Protector)

// WithAEADFactory replaces the AES-GCM construction.
func WithAEADFactory(factory AEADFactory) Option {
	return func(p *Protector) {
		p.factory = factory
	}
}

// WithRandom replaces the nonce source.
func WithRandom(r io.Reader) Option {
	return func(p *Protector) {
		p.random = r
	}
}

// WithDegradedHandler registers fn to be called once if the cipher cannot be
// built and the protector falls back to pass-through encryption.
func WithDegradedHandler(fn func(err error)) Option {
	return func(p *Protector) {
		p.onDegraded = fn
	}
}

// Protector performs the transforms over explicit key material. It holds no
// mutable state after the cipher is built and is safe for concurrent use.
type Protector struct {
	keys       KeySource
	factory    AEADFactory
	random     io.Reader
	onDegraded func(err error)
	aead       func() (cipher.AEAD, error)
}

// New returns a Protector for the given key material. The cipher is built on
// first use so hashing never pays for cipher key derivation.
func New(keys KeySource, opts ...Option) *Protector {
	p := &Protector{
		keys:    keys,
		factory: NewAESGCM,
		random:  rand.Reader,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.aead = sync.OnceValues(func() (cipher.AEAD, error) {
		aead, err := p.factory(p.keys.CipherKey())
		if err == nil && (aead.NonceSize() != nonceSize || aead.Overhead() != tagSize) {
			err = fmt.Errorf("unexpected AEAD geometry: nonce %d, overhead %d", aead.NonceSize(), aead.Overhead())
		}
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrCryptoUnavailable, err)
			if p.onDegraded != nil {
				p.onDegraded(err)
			}
			return nil, err
		}
		return aead, nil
	})
	return p
}

// Prime builds the cipher now instead of on first use. It returns the
// degradation reason if encryption runs in pass-through mode.
func (p *Protector) Prime() error {
	_, err := p.aead()
	return err
}

// Degraded reports whether encryption runs in pass-through mode.
func (p *Protector) Degraded() bool {
	return p.Prime() != nil
}

// HashForLookup returns the lowercase hex HMAC-SHA256 of the trimmed input,
// or "" when the trimmed input is empty.
func (p *Protector) HashForLookup(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	mac := hmac.New(sha256.New, p.keys.Pepper())
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Encrypt seals raw into a token. Each call uses a fresh nonce. Empty input
// returns "". In pass-through mode raw is returned as is.
func (p *Protector) Encrypt(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	aead, err := p.aead()
	if err != nil {
		return raw, nil
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(p.random, nonce); err != nil {
		return "", fmt.Errorf("%w: failed to generate nonce: %w", ErrEncryptionFailed, err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(raw), nil)
	return TokenPrefix + tokenEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token. Values that are not token-shaped are returned
// unchanged with a nil error. A token that fails to open is also returned
// unchanged, together with an error wrapping ErrDecryptionFailed.
func (p *Protector) Decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	sealed, ok := decodeToken(token)
	if !ok {
		return token, nil
	}
	aead, err := p.aead()
	if err != nil {
		return token, nil
	}
	plaintext, err := aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return token, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// LooksProtected reports whether v is a lookup digest or an encryption token.
func LooksProtected(v string) bool {
	return IsDigest(v) || IsToken(v)
}

// IsDigest reports whether v is exactly DigestLength lowercase hex characters.
func IsDigest(v string) bool {
	if len(v) != DigestLength {
		return false
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// IsToken reports whether v carries TokenPrefix followed by unpadded
// base64url data long enough to hold a nonce, a tag and one plaintext byte.
func IsToken(v string) bool {
	_, ok := decodeToken(v)
	return ok
}

func decodeToken(v string) ([]byte, bool) {
	body, ok := strings.CutPrefix(v, TokenPrefix)
	if !ok {
		return nil, false
	}
	sealed, err := tokenEncoding.DecodeString(body)
	if err != nil || len(sealed) < nonceSize+tagSize+1 {
		return nil, false
	}
	return sealed, true
}
