package hashicorp

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hengadev/idguard"
)

// KVSource implements idguard.SecretSource using HashiCorp Vault KV v2 Engine.
//
// The root secret is stored base64 encoded under the "value" key of the
// secret at idguard.VaultRootSecretPathTemplate.
type KVSource struct {
	client logicalClient
	alias  string
}

// NewKVSource creates a KVSource for the given deployment alias.
//
// The client is configured from environment variables (see createVaultClient).
//
// Usage:
//
//	src, err := hashicorp.NewKVSource(ctx, "patient-portal")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guard, err := idguard.NewFromSource(ctx, idguard.PatientProfile(), src)
//
// The KV v2 engine must be enabled in Vault before use:
//
//	vault secrets enable -path=secret kv-v2
func NewKVSource(ctx context.Context, alias string) (*KVSource, error) {
	if alias == "" {
		return nil, fmt.Errorf("%w: alias cannot be empty", idguard.ErrInvalidConfiguration)
	}
	client, err := createVaultClient(ctx)
	if err != nil {
		return nil, err
	}
	return &KVSource{client: client.Logical(), alias: alias}, nil
}

// Path returns the Vault KV v2 path of the root secret.
//
// Path format: "secret/data/idguard/{alias}/root-secret"
//
// Note: The "/data/" segment is required for KV v2 API reads/writes.
func (k *KVSource) Path() string {
	return fmt.Sprintf(idguard.VaultRootSecretPathTemplate, k.alias)
}

// RootSecret reads the root secret from Vault.
func (k *KVSource) RootSecret(ctx context.Context) ([]byte, error) {
	secret, err := k.client.ReadWithContext(ctx, k.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read root secret from Vault KV: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: no root secret stored for alias: %s",
			idguard.ErrRootSecretMissing, k.alias)
	}

	// KV v2 wraps the actual data in a "data" key
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: invalid KV v2 secret format for alias: %s",
			idguard.ErrSecretStorageUnavailable, k.alias)
	}

	encoded, ok := data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: root secret value not found or invalid format for alias: %s",
			idguard.ErrSecretStorageUnavailable, k.alias)
	}

	root, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode root secret: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}
	return root, nil
}

// StoreRootSecret writes the root secret to Vault. KV v2 keeps the previous
// version, but replacing the secret invalidates every stored digest and token.
func (k *KVSource) StoreRootSecret(ctx context.Context, root []byte) error {
	if len(root) == 0 {
		return fmt.Errorf("%w: root secret cannot be empty", idguard.ErrRootSecretMissing)
	}

	// KV v2 requires data to be wrapped in a "data" key
	data := map[string]interface{}{
		"data": map[string]interface{}{
			"value": base64.StdEncoding.EncodeToString(root),
		},
	}

	if _, err := k.client.WriteWithContext(ctx, k.Path(), data); err != nil {
		return fmt.Errorf("%w: failed to store root secret in Vault KV: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}
	return nil
}

// Exists reports whether a root secret is stored for the alias. It returns
// an error only for actual failures, not for a missing secret.
func (k *KVSource) Exists(ctx context.Context) (bool, error) {
	secret, err := k.client.ReadWithContext(ctx, k.Path())
	if err != nil {
		return false, fmt.Errorf("%w: failed to check if root secret exists: %w",
			idguard.ErrSecretStorageUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return false, nil
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return false, nil
	}
	_, ok = data["value"].(string)
	return ok, nil
}
