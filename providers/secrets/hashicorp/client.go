package hashicorp

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/idguard"
)

// logicalClient is the subset of *api.Logical used by KVSource (allows mocking).
type logicalClient interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*api.Secret, error)
}

// createVaultClient creates a configured Vault client using environment variables.
//
// Environment Variables:
//   - VAULT_ADDR: Vault server address (required, e.g., "https://vault.example.com")
//   - VAULT_NAMESPACE: Vault namespace for HCP Vault (optional, e.g., "admin/example")
//   - VAULT_TOKEN: Direct Vault token (optional, alternative to AppRole)
//   - VAULT_ROLE_ID: AppRole role ID for authentication (optional, requires VAULT_SECRET_ID)
//   - VAULT_SECRET_ID: AppRole secret ID for authentication (optional, requires VAULT_ROLE_ID)
//
// Authentication Priority:
//  1. If VAULT_TOKEN is set, uses token directly
//  2. If VAULT_ROLE_ID and VAULT_SECRET_ID are set, uses AppRole authentication
//  3. Otherwise, returns error (no authentication method available)
func createVaultClient(ctx context.Context) (*api.Client, error) {
	config := api.DefaultConfig()

	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if config.Address == "" {
		return nil, fmt.Errorf("%w: VAULT_ADDR environment variable is required", idguard.ErrInvalidConfiguration)
	}

	// Configure HTTP transport with proxy support
	config.HttpClient.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Vault client: %w", idguard.ErrSecretStorageUnavailable, err)
	}

	if namespace := os.Getenv("VAULT_NAMESPACE"); namespace != "" {
		client.SetNamespace(namespace)
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
		return client, nil
	}

	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID != "" && secretID != "" {
		token, err := loginAppRole(ctx, client.Logical(), roleID, secretID)
		if err != nil {
			return nil, err
		}
		client.SetToken(token)
		return client, nil
	}

	return nil, fmt.Errorf("%w: no Vault authentication method configured (set VAULT_TOKEN or VAULT_ROLE_ID+VAULT_SECRET_ID)",
		idguard.ErrInvalidConfiguration)
}

// loginAppRole exchanges AppRole credentials for a client token.
func loginAppRole(ctx context.Context, logical logicalClient, roleID, secretID string) (string, error) {
	resp, err := logical.WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to login with AppRole: %w", idguard.ErrSecretStorageUnavailable, err)
	}
	if resp == nil || resp.Auth == nil {
		return "", fmt.Errorf("%w: no auth info returned from AppRole login", idguard.ErrSecretStorageUnavailable)
	}
	return resp.Auth.ClientToken, nil
}
