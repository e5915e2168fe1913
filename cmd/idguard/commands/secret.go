package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/hengadev/idguard"
	"github.com/hengadev/idguard/providers/secrets/awskms"
)

// rootSecretSize is the number of random bytes in a generated root secret.
const rootSecretSize = 32

// RootSecretStore persists a root secret. Implemented by the Vault and
// Secrets Manager sources.
type RootSecretStore interface {
	Exists(ctx context.Context) (bool, error)
	StoreRootSecret(ctx context.Context, root []byte) error
}

// RootSecretWrapper encrypts a root secret for storage outside the process.
// Implemented by the KMS source.
type RootSecretWrapper interface {
	WrapRootSecret(ctx context.Context, root []byte) (string, error)
}

// generateRootSecret returns a random root secret, base64 encoded so it can
// also be pasted into IDGUARD_ROOT_SECRET.
func generateRootSecret(random io.Reader) ([]byte, error) {
	if random == nil {
		random = rand.Reader
	}
	raw := make([]byte, rootSecretSize)
	if _, err := io.ReadFull(random, raw); err != nil {
		return nil, fmt.Errorf("failed to generate root secret: %w", err)
	}
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(encoded, raw)
	clear(raw)
	return encoded, nil
}

// RunInitSecret generates a root secret and stores it. An existing secret is
// only replaced when force is set, since replacing it makes every stored
// digest and token unreadable.
func RunInitSecret(ctx context.Context, store RootSecretStore, logger idguard.Logger, force bool, random io.Reader, io IOTuple) error {
	if store == nil {
		return errors.New("secret store is required")
	}

	exists, err := store.Exists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing root secret: %w", err)
	}
	if exists && !force {
		return fmt.Errorf("root secret already exists (use --force to replace it, stored values will become unreadable)")
	}

	root, err := generateRootSecret(random)
	if err != nil {
		return err
	}
	defer clear(root)

	if err := store.StoreRootSecret(ctx, root); err != nil {
		return fmt.Errorf("failed to store root secret: %w", err)
	}

	logger.Info("root secret stored", "replaced", exists)
	if exists {
		fmt.Fprintln(io.Writer, "Root secret replaced")
	} else {
		fmt.Fprintln(io.Writer, "Root secret created")
	}
	return nil
}

// RunWrapSecret generates a root secret, wraps it with KMS and prints the
// environment variable to deploy. The plaintext is never printed.
func RunWrapSecret(ctx context.Context, wrapper RootSecretWrapper, logger idguard.Logger, random io.Reader, io IOTuple) error {
	if wrapper == nil {
		return errors.New("KMS wrapper is required")
	}

	root, err := generateRootSecret(random)
	if err != nil {
		return err
	}
	defer clear(root)

	wrapped, err := wrapper.WrapRootSecret(ctx, root)
	if err != nil {
		return fmt.Errorf("failed to wrap root secret: %w", err)
	}

	logger.Info("root secret wrapped with KMS")
	fmt.Fprintln(io.Writer, "# Wrapped root secret, decrypted at startup with --secret-source=kms")
	fmt.Fprintf(io.Writer, "%s=%q\n", awskms.EnvWrappedRootSecret, wrapped)
	return nil
}
