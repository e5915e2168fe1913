package protect

import (
	"crypto/cipher"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/idguard/internal/keys"
)

func newTestProtector(t *testing.T, secret string, opts ...Option) *Protector {
	t.Helper()
	m, err := keys.NewMaterial([]byte(secret))
	require.NoError(t, err)
	return New(m, opts...)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestHashForLookup(t *testing.T) {
	p := newTestProtector(t, "test-secret")

	t.Run("deterministic lowercase hex", func(t *testing.T) {
		h1 := p.HashForLookup("200101001")
		h2 := p.HashForLookup("200101001")
		assert.Equal(t, h1, h2)
		assert.Len(t, h1, DigestLength)
		assert.Equal(t, strings.ToLower(h1), h1)
		assert.True(t, IsDigest(h1))
	})

	t.Run("input is trimmed", func(t *testing.T) {
		assert.Equal(t, p.HashForLookup("200101001"), p.HashForLookup("  200101001 \n"))
	})

	t.Run("different inputs differ", func(t *testing.T) {
		assert.NotEqual(t, p.HashForLookup("200101001"), p.HashForLookup("200101002"))
	})

	t.Run("empty and blank input map to empty", func(t *testing.T) {
		assert.Empty(t, p.HashForLookup(""))
		assert.Empty(t, p.HashForLookup("   "))
	})

	t.Run("pepper changes the digest", func(t *testing.T) {
		other := newTestProtector(t, "another-secret")
		assert.NotEqual(t, p.HashForLookup("200101001"), other.HashForLookup("200101001"))
	})
}

func TestEncryptDecrypt(t *testing.T) {
	p := newTestProtector(t, "test-secret")

	t.Run("round trip", func(t *testing.T) {
		for _, value := range []string{"+26771234567", "Plot 123, Gaborone", "Ñandú ☂", " padded "} {
			token, err := p.Encrypt(value)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(token, TokenPrefix))
			assert.True(t, IsToken(token))

			plain, err := p.Decrypt(token)
			require.NoError(t, err)
			assert.Equal(t, value, plain)
		}
	})

	t.Run("fresh nonce per call", func(t *testing.T) {
		t1, err := p.Encrypt("same value")
		require.NoError(t, err)
		t2, err := p.Encrypt("same value")
		require.NoError(t, err)
		assert.NotEqual(t, t1, t2)

		for _, token := range []string{t1, t2} {
			plain, err := p.Decrypt(token)
			require.NoError(t, err)
			assert.Equal(t, "same value", plain)
		}
	})

	t.Run("token is url safe", func(t *testing.T) {
		token, err := p.Encrypt(strings.Repeat("x", 300))
		require.NoError(t, err)
		assert.NotContains(t, token, "+")
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "=")
	})

	t.Run("empty input maps to empty", func(t *testing.T) {
		token, err := p.Encrypt("")
		require.NoError(t, err)
		assert.Empty(t, token)

		plain, err := p.Decrypt("")
		require.NoError(t, err)
		assert.Empty(t, plain)
	})

	t.Run("non token input is returned unchanged", func(t *testing.T) {
		for _, value := range []string{"not-a-real-token", "idg1.", "idg1.***", "plain-address-123"} {
			plain, err := p.Decrypt(value)
			assert.NoError(t, err)
			assert.Equal(t, value, plain)
		}
	})

	t.Run("wrong key returns token and error", func(t *testing.T) {
		token, err := p.Encrypt("+26771234567")
		require.NoError(t, err)

		other := newTestProtector(t, "another-secret")
		plain, err := other.Decrypt(token)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
		assert.Equal(t, token, plain)
	})

	t.Run("tampered token returns token and error", func(t *testing.T) {
		token, err := p.Encrypt("+26771234567")
		require.NoError(t, err)

		sealed, ok := decodeToken(token)
		require.True(t, ok)
		sealed[len(sealed)-1] ^= 0xff
		tampered := TokenPrefix + tokenEncoding.EncodeToString(sealed)

		plain, err := p.Decrypt(tampered)
		assert.ErrorIs(t, err, ErrDecryptionFailed)
		assert.Equal(t, tampered, plain)
	})

	t.Run("nonce failure surfaces as encryption error", func(t *testing.T) {
		broken := newTestProtector(t, "test-secret", WithRandom(failingReader{}))
		token, err := broken.Encrypt("value")
		assert.ErrorIs(t, err, ErrEncryptionFailed)
		assert.Empty(t, token)
	})
}

func TestLooksProtected(t *testing.T) {
	p := newTestProtector(t, "test-secret")
	token, err := p.Encrypt("Plot 123")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"lookup digest", p.HashForLookup("200101001"), true},
		{"encryption token", token, true},
		{"plain address", "plain-address-123", false},
		{"raw identifier", "200101001", false},
		{"uppercase digest", strings.ToUpper(p.HashForLookup("200101001")), false},
		{"short hex", "abcdef", false},
		{"prefix only", TokenPrefix, false},
		{"prefix with short body", TokenPrefix + "AAAA", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksProtected(tt.value))
		})
	}
}

func TestPassthroughWhenCryptoUnavailable(t *testing.T) {
	var calls atomic.Int32
	var reported error
	p := newTestProtector(t, "test-secret",
		WithAEADFactory(func([]byte) (cipher.AEAD, error) {
			return nil, errors.New("no AES on this platform")
		}),
		WithDegradedHandler(func(err error) {
			calls.Add(1)
			reported = err
		}),
	)

	assert.True(t, p.Degraded())
	assert.ErrorIs(t, p.Prime(), ErrCryptoUnavailable)

	token, err := p.Encrypt("+26771234567")
	require.NoError(t, err)
	assert.Equal(t, "+26771234567", token)

	plain, err := p.Decrypt("+26771234567")
	require.NoError(t, err)
	assert.Equal(t, "+26771234567", plain)

	// Hashing does not depend on the cipher.
	assert.True(t, IsDigest(p.HashForLookup("200101001")))

	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, reported, ErrCryptoUnavailable)
}

func TestHashingDoesNotDeriveCipherKey(t *testing.T) {
	src := &countingKeys{pepper: []byte("test-secret")}
	p := New(src)

	p.HashForLookup("200101001")
	assert.Zero(t, src.cipherCalls.Load())

	_, err := p.Encrypt("x")
	require.NoError(t, err)
	_, err = p.Encrypt("y")
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.cipherCalls.Load())
}

type countingKeys struct {
	pepper      []byte
	cipherCalls atomic.Int32
}

func (c *countingKeys) Pepper() []byte { return c.pepper }

func (c *countingKeys) CipherKey() []byte {
	c.cipherCalls.Add(1)
	return keys.DeriveCipherKey(c.pepper)
}
