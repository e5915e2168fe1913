// Package hashicorp provides a HashiCorp Vault KV v2 root secret source for idguard.
//
// # Basic Usage
//
//	import (
//	    "github.com/hengadev/idguard"
//	    vaultkv "github.com/hengadev/idguard/providers/secrets/hashicorp"
//	)
//
//	src, err := vaultkv.NewKVSource(ctx, "patient-portal")
//	if err != nil {
//	    // handle error
//	}
//	guard, err := idguard.NewFromSource(ctx, idguard.PatientProfile(), src)
//
// # Configuration
//
// Vault is configured via environment variables:
//
//	// Required
//	export VAULT_ADDR="https://vault.example.com:8200"
//	export VAULT_TOKEN="hvs.your-token-here"
//
//	// Or AppRole
//	export VAULT_ROLE_ID="..."
//	export VAULT_SECRET_ID="..."
//
//	// Optional
//	export VAULT_NAMESPACE="my-namespace"  // For Vault Enterprise / HCP
//
// # Secret Storage
//
// The root secret is stored base64 encoded at:
//
//	secret/data/idguard/{alias}/root-secret
//
// The token needs the following policy:
//
//	path "secret/data/idguard/*" {
//	    capabilities = ["create", "read", "update"]
//	}
//
// # Error Handling
//
//   - idguard.ErrSecretStorageUnavailable: Vault is unreachable or the secret is malformed
//   - idguard.ErrRootSecretMissing: nothing is stored for the alias
//   - idguard.ErrInvalidConfiguration: missing address, credentials or alias
//
// Never rotate the root secret by writing a new version: every stored lookup
// digest and display token depends on it.
package hashicorp
