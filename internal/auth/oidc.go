package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/judyrop/storefront-api/config"
)

// NewVerifier discovers the issuer and returns a verifier for ID tokens
// minted for the configured client. It returns nil when OIDC is disabled.
func NewVerifier(ctx context.Context, cfg config.OIDCConfig) (*oidc.IDTokenVerifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider %s: %w", cfg.Issuer, err)
	}
	return provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}), nil
}
