// Package secrets resolves the license-signing secret, grounded on the
// teacher's internal/security/security.go GetSecret (a KVv2 read against
// a Vault client). It exposes only the read this service needs: the
// broader bcrypt/rate-limit/blacklist surface in the teacher's
// SecurityManager belongs to its HTTP authentication path, which this
// spec treats as out of scope (§10 Non-goals).
package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/vault/api"
)

// Resolver resolves the signing secret from Vault.
type Resolver struct {
	client     *api.Client
	mountPoint string
}

// NewResolver creates a Resolver against a Vault server at addr.
func NewResolver(addr string) (*Resolver, error) {
	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: new vault client: %w", err)
	}
	return &Resolver{client: client, mountPoint: "secret"}, nil
}

// Resolve reads the signing secret from the given KVv2 path, expecting a
// "value" field holding the raw secret bytes as a string.
func (r *Resolver) Resolve(ctx context.Context, path string) ([]byte, error) {
	secret, err := r.client.KVv2(r.mountPoint).Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("secrets: read %s: %w", path, err)
	}
	raw, ok := secret.Data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("secrets: %s has no string \"value\" field", path)
	}
	return []byte(raw), nil
}

// ResolveSigningSecret resolves the signing secret from Vault when
// vaultAddr is non-empty, otherwise falls back to the ALK_SIGNING_SECRET
// environment variable. This keeps local/dev runs working without a
// Vault server while production deployments read from it.
func ResolveSigningSecret(ctx context.Context, vaultAddr, vaultPath string) ([]byte, error) {
	if vaultAddr == "" {
		secret := os.Getenv("ALK_SIGNING_SECRET")
		if secret == "" {
			return nil, fmt.Errorf("secrets: no vault address configured and ALK_SIGNING_SECRET is unset")
		}
		return []byte(secret), nil
	}

	resolver, err := NewResolver(vaultAddr)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, vaultPath)
}
