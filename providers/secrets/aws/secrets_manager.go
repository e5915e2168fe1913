package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/hengadev/idguard"
)

// secretsManagerClient interface for AWS Secrets Manager operations (allows mocking)
type secretsManagerClient interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	DescribeSecret(ctx context.Context, params *secretsmanager.DescribeSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DescribeSecretOutput, error)
}

// Config holds configuration for the Secrets Manager source.
type Config struct {
	// Alias names the deployment; the secret is "idguard/{alias}/root-secret".
	Alias string

	// Region is the AWS region (e.g., "us-east-1")
	// If empty, uses AWS_REGION environment variable or AWS config file
	Region string

	// AWSConfig is an optional pre-configured AWS config
	// If provided, Region is ignored
	AWSConfig *aws.Config
}

// SecretsManagerSource implements idguard.SecretSource using AWS Secrets Manager.
type SecretsManagerSource struct {
	client secretsManagerClient
	region string
	alias  string
}

// NewSecretsManagerSource creates a new AWS Secrets Manager source.
//
// Usage:
//
//	src, err := aws.NewSecretsManagerSource(ctx, aws.Config{Alias: "patient-portal", Region: "af-south-1"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guard, err := idguard.NewFromSource(ctx, idguard.PatientProfile(), src)
func NewSecretsManagerSource(ctx context.Context, cfg Config) (*SecretsManagerSource, error) {
	if cfg.Alias == "" {
		return nil, fmt.Errorf("%w: alias cannot be empty", idguard.ErrInvalidConfiguration)
	}

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

	return &SecretsManagerSource{
		client: secretsmanager.NewFromConfig(awsConfig),
		region: awsConfig.Region,
		alias:  cfg.Alias,
	}, nil
}

// SecretName returns the Secrets Manager name of the root secret.
//
// Path format: "idguard/{alias}/root-secret"
func (s *SecretsManagerSource) SecretName() string {
	return fmt.Sprintf(idguard.AWSRootSecretPathTemplate, s.alias)
}

// RootSecret retrieves the root secret from AWS Secrets Manager.
func (s *SecretsManagerSource) RootSecret(ctx context.Context) ([]byte, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretName()),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("%w: no root secret stored for alias: %s", idguard.ErrRootSecretMissing, s.alias)
		}
		return nil, fmt.Errorf("%w: failed to get root secret from Secrets Manager: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}

	if result.SecretString == nil {
		return nil, fmt.Errorf("%w: root secret has no string value for alias: %s",
			idguard.ErrRootSecretMissing, s.alias)
	}

	root, err := base64.StdEncoding.DecodeString(*result.SecretString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode root secret: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}
	return root, nil
}

// StoreRootSecret creates or updates the root secret.
func (s *SecretsManagerSource) StoreRootSecret(ctx context.Context, root []byte) error {
	if len(root) == 0 {
		return fmt.Errorf("%w: root secret cannot be empty", idguard.ErrRootSecretMissing)
	}

	encoded := base64.StdEncoding.EncodeToString(root)

	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}

	if exists {
		_, err = s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
			SecretId:     aws.String(s.SecretName()),
			SecretString: aws.String(encoded),
		})
		if err != nil {
			return fmt.Errorf("%w: failed to update root secret in Secrets Manager: %w",
				idguard.ErrSecretStorageUnavailable, err)
		}
		return nil
	}

	_, err = s.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(s.SecretName()),
		Description:  aws.String(fmt.Sprintf("idguard root secret for %s", s.alias)),
		SecretString: aws.String(encoded),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create root secret in Secrets Manager: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}
	return nil
}

// Exists reports whether the root secret exists. It returns an error only
// for actual failures, not for "secret not found".
func (s *SecretsManagerSource) Exists(ctx context.Context) (bool, error) {
	_, err := s.client.DescribeSecret(ctx, &secretsmanager.DescribeSecretInput{
		SecretId: aws.String(s.SecretName()),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return false, nil
		}
		return false, fmt.Errorf("%w: failed to check if root secret exists: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}
	return true, nil
}

// Region returns the AWS region this source is configured for.
func (s *SecretsManagerSource) Region() string {
	return s.region
}
