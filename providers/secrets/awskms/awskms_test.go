package awskms

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hengadev/idguard"
)

// Mock KMS client for testing
type mockKMSClient struct {
	describeKeyFunc func(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	encryptFunc     func(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	decryptFunc     func(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

func (m *mockKMSClient) DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
	if m.describeKeyFunc != nil {
		return m.describeKeyFunc(ctx, params, optFns...)
	}
	return &kms.DescribeKeyOutput{}, nil
}

func (m *mockKMSClient) Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error) {
	if m.encryptFunc != nil {
		return m.encryptFunc(ctx, params, optFns...)
	}
	return &kms.EncryptOutput{}, nil
}

func (m *mockKMSClient) Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	if m.decryptFunc != nil {
		return m.decryptFunc(ctx, params, optFns...)
	}
	return &kms.DecryptOutput{}, nil
}

// reversingKMS "encrypts" by reversing bytes so round trips can be checked.
func reversingKMS() *mockKMSClient {
	reverse := func(b []byte) []byte {
		out := make([]byte, len(b))
		for i := range b {
			out[len(b)-1-i] = b[i]
		}
		return out
	}
	return &mockKMSClient{
		encryptFunc: func(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error) {
			return &kms.EncryptOutput{CiphertextBlob: reverse(params.Plaintext)}, nil
		},
		decryptFunc: func(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
			if params.EncryptionContext["purpose"] != "idguard-root-secret" {
				return nil, errors.New("InvalidCiphertextException")
			}
			return &kms.DecryptOutput{Plaintext: reverse(params.CiphertextBlob)}, nil
		},
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		cfg       Config
		checkFunc func(t *testing.T, src *KMSSource)
	}{
		{
			name: "with custom AWS config",
			cfg: Config{
				AWSConfig: &aws.Config{Region: "eu-west-1"},
				KeyID:     "idguard-root",
			},
			checkFunc: func(t *testing.T, src *KMSSource) {
				assert.Equal(t, "eu-west-1", src.Region())
				assert.Equal(t, "alias/idguard-root", src.keyID)
				assert.NotNil(t, src.client)
			},
		},
		{
			name: "key ARN kept as is",
			cfg: Config{
				AWSConfig: &aws.Config{Region: "eu-west-1"},
				KeyID:     "arn:aws:kms:eu-west-1:123456789012:key/1234abcd-12ab-34cd-56ef-1234567890ab",
			},
			checkFunc: func(t *testing.T, src *KMSSource) {
				assert.Equal(t, "arn:aws:kms:eu-west-1:123456789012:key/1234abcd-12ab-34cd-56ef-1234567890ab", src.keyID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(ctx, tt.cfg)
			require.NoError(t, err)
			tt.checkFunc(t, src)
		})
	}
}

func TestNormalizeKeyID(t *testing.T) {
	tests := map[string]string{
		"":                                     "",
		"my-key":                               "alias/my-key",
		"alias/my-key":                         "alias/my-key",
		"1234abcd-12ab-34cd-56ef-1234567890ab": "1234abcd-12ab-34cd-56ef-1234567890ab",
		"arn:aws:kms:us-east-1:1:alias/my-key": "arn:aws:kms:us-east-1:1:alias/my-key",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeKeyID(in), in)
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	ctx := context.Background()
	client := reversingKMS()

	wrapper := &KMSSource{client: client, keyID: "alias/idguard-root"}
	wrapped, err := wrapper.WrapRootSecret(ctx, []byte("test-secret"))
	require.NoError(t, err)

	t.Run("from config", func(t *testing.T) {
		src := &KMSSource{client: client, ciphertext: wrapped}
		root, err := src.RootSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, []byte("test-secret"), root)
	})

	t.Run("from environment", func(t *testing.T) {
		t.Setenv(EnvWrappedRootSecret, wrapped)
		src := &KMSSource{client: client}
		root, err := idguard.LoadRootSecret(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, []byte("test-secret"), root)
	})
}

func TestRootSecretErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		ciphertext string
		client     *mockKMSClient
		wantErr    error
	}{
		{
			name:    "nothing configured",
			client:  &mockKMSClient{},
			wantErr: idguard.ErrRootSecretMissing,
		},
		{
			name:       "not base64",
			ciphertext: "***",
			client:     &mockKMSClient{},
			wantErr:    idguard.ErrInvalidConfiguration,
		},
		{
			name:       "kms failure",
			ciphertext: base64.StdEncoding.EncodeToString([]byte("blob")),
			client: &mockKMSClient{
				decryptFunc: func(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error) {
					return nil, errors.New("AccessDeniedException")
				},
			},
			wantErr: idguard.ErrSecretStorageUnavailable,
		},
		{
			name:       "no plaintext",
			ciphertext: base64.StdEncoding.EncodeToString([]byte("blob")),
			client:     &mockKMSClient{},
			wantErr:    idguard.ErrSecretStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvWrappedRootSecret, "")
			src := &KMSSource{client: tt.client, ciphertext: tt.ciphertext}
			_, err := src.RootSecret(ctx)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWrapRootSecretErrors(t *testing.T) {
	ctx := context.Background()

	_, err := (&KMSSource{client: &mockKMSClient{}}).WrapRootSecret(ctx, []byte("x"))
	assert.ErrorIs(t, err, idguard.ErrInvalidConfiguration)

	_, err = (&KMSSource{client: &mockKMSClient{}, keyID: "alias/k"}).WrapRootSecret(ctx, nil)
	assert.ErrorIs(t, err, idguard.ErrRootSecretMissing)

	_, err = (&KMSSource{client: &mockKMSClient{}, keyID: "alias/k"}).WrapRootSecret(ctx, []byte("x"))
	assert.ErrorIs(t, err, idguard.ErrSecretStorageUnavailable)
}

func TestKeyARN(t *testing.T) {
	ctx := context.Background()

	src := &KMSSource{keyID: "alias/idguard-root", client: &mockKMSClient{
		describeKeyFunc: func(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error) {
			assert.Equal(t, "alias/idguard-root", *params.KeyId)
			return &kms.DescribeKeyOutput{KeyMetadata: &types.KeyMetadata{
				Arn: aws.String("arn:aws:kms:af-south-1:123456789012:key/abc"),
			}}, nil
		},
	}}
	arn, err := src.KeyARN(ctx)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:kms:af-south-1:123456789012:key/abc", arn)

	_, err = (&KMSSource{keyID: "alias/x", client: &mockKMSClient{}}).KeyARN(ctx)
	assert.ErrorIs(t, err, idguard.ErrSecretStorageUnavailable)

	_, err = (&KMSSource{client: &mockKMSClient{}}).KeyARN(ctx)
	assert.ErrorIs(t, err, idguard.ErrInvalidConfiguration)
}
