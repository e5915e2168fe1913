// Package awskms provides an AWS KMS backed root secret source for idguard.
//
// The root secret is kept outside the process as a KMS ciphertext blob,
// for example in an environment variable or a deployment manifest, and is
// decrypted once at startup.
package awskms

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"

	"github.com/hengadev/idguard"
)

// EnvWrappedRootSecret is the default variable holding the base64 KMS
// ciphertext of the root secret.
const EnvWrappedRootSecret = "IDGUARD_ROOT_SECRET_KMS"

// encryptionContext binds ciphertexts to their use; KMS refuses to decrypt
// a blob with a different context.
var encryptionContext = map[string]string{"purpose": "idguard-root-secret"}

// kmsClient interface for AWS KMS operations (allows mocking)
type kmsClient interface {
	DescribeKey(ctx context.Context, params *kms.DescribeKeyInput, optFns ...func(*kms.Options)) (*kms.DescribeKeyOutput, error)
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Config holds configuration for the KMS source.
type Config struct {
	// KeyID is the key used by WrapRootSecret: a key ID, ARN or alias.
	// Aliases without the "alias/" prefix get it added. Not needed to
	// decrypt, KMS finds the key from the ciphertext.
	KeyID string

	// Ciphertext is the base64 encoded wrapped root secret. If empty, the
	// value of EnvWrappedRootSecret is read on each RootSecret call.
	Ciphertext string

	// Region is the AWS region (e.g., "us-east-1")
	// If empty, uses AWS_REGION environment variable or AWS config file
	Region string

	// AWSConfig is an optional pre-configured AWS config
	// If provided, Region is ignored
	AWSConfig *aws.Config
}

// KMSSource implements idguard.SecretSource by decrypting a wrapped root
// secret with AWS KMS.
type KMSSource struct {
	client     kmsClient
	region     string
	keyID      string
	ciphertext string
}

// New creates a new KMS source.
//
// Usage:
//
//	src, err := awskms.New(ctx, awskms.Config{Region: "af-south-1"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guard, err := idguard.NewFromSource(ctx, idguard.PatientProfile(), src)
func New(ctx context.Context, cfg Config) (*KMSSource, error) {
	var awsConfig aws.Config
	var err error

	if cfg.AWSConfig != nil {
		awsConfig = *cfg.AWSConfig
	} else {
		opts := []func(*config.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, config.WithRegion(cfg.Region))
		}

		awsConfig, err = config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to load AWS config: %w", idguard.ErrSecretStorageUnavailable, err)
		}
	}

	return &KMSSource{
		client:     kms.NewFromConfig(awsConfig),
		region:     awsConfig.Region,
		keyID:      normalizeKeyID(cfg.KeyID),
		ciphertext: cfg.Ciphertext,
	}, nil
}

// normalizeKeyID adds the "alias/" prefix to bare alias names. Key IDs,
// ARNs and already prefixed aliases are returned unchanged.
func normalizeKeyID(keyID string) string {
	switch {
	case keyID == "",
		strings.HasPrefix(keyID, "alias/"),
		strings.HasPrefix(keyID, "arn:"),
		isKeyUUID(keyID):
		return keyID
	default:
		return "alias/" + keyID
	}
}

func isKeyUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
				return false
			}
		}
	}
	return true
}

// RootSecret decrypts the wrapped root secret.
func (k *KMSSource) RootSecret(ctx context.Context) ([]byte, error) {
	wrapped := k.ciphertext
	if wrapped == "" {
		wrapped = os.Getenv(EnvWrappedRootSecret)
	}
	if strings.TrimSpace(wrapped) == "" {
		return nil, fmt.Errorf("%w: no wrapped root secret configured (set %s)",
			idguard.ErrRootSecretMissing, EnvWrappedRootSecret)
	}

	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(wrapped))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode wrapped root secret: %w",
			idguard.ErrInvalidConfiguration, err)
	}

	input := &kms.DecryptInput{
		CiphertextBlob:    blob,
		EncryptionContext: encryptionContext,
	}
	if k.keyID != "" {
		input.KeyId = aws.String(k.keyID)
	}

	result, err := k.client.Decrypt(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decrypt root secret with KMS: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}
	if result.Plaintext == nil {
		return nil, fmt.Errorf("%w: no plaintext returned from KMS", idguard.ErrSecretStorageUnavailable)
	}
	return result.Plaintext, nil
}

// WrapRootSecret encrypts root with the configured key and returns the
// base64 ciphertext to store in EnvWrappedRootSecret.
func (k *KMSSource) WrapRootSecret(ctx context.Context, root []byte) (string, error) {
	if len(root) == 0 {
		return "", fmt.Errorf("%w: root secret cannot be empty", idguard.ErrRootSecretMissing)
	}
	if k.keyID == "" {
		return "", fmt.Errorf("%w: a KMS key ID is required to wrap the root secret", idguard.ErrInvalidConfiguration)
	}

	result, err := k.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(k.keyID),
		Plaintext:         root,
		EncryptionContext: encryptionContext,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to encrypt root secret with KMS key %s: %w",
			idguard.ErrSecretStorageUnavailable, k.keyID, err)
	}
	if result.CiphertextBlob == nil {
		return "", fmt.Errorf("%w: no ciphertext returned from KMS", idguard.ErrSecretStorageUnavailable)
	}

	return base64.StdEncoding.EncodeToString(result.CiphertextBlob), nil
}

// KeyARN resolves the configured key to its ARN, which is useful to check
// permissions before wrapping.
func (k *KMSSource) KeyARN(ctx context.Context) (string, error) {
	if k.keyID == "" {
		return "", fmt.Errorf("%w: no KMS key configured", idguard.ErrInvalidConfiguration)
	}

	result, err := k.client.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(k.keyID)})
	if err != nil {
		return "", fmt.Errorf("%w: failed to describe KMS key %s: %w", idguard.ErrSecretStorageUnavailable, k.keyID, err)
	}
	if result.KeyMetadata == nil || result.KeyMetadata.Arn == nil {
		return "", fmt.Errorf("%w: no key metadata returned for %s", idguard.ErrSecretStorageUnavailable, k.keyID)
	}
	return *result.KeyMetadata.Arn, nil
}

// Region returns the AWS region this source is configured for.
func (k *KMSSource) Region() string {
	return k.region
}
