package oidc

import (
	"context"

	"github.com/benvon/tag-catalog/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenSource returns the bearer token source tagctl authenticates with.
// Client credentials take precedence over a static token; nil means anonymous.
func TokenSource(ctx context.Context, cfg config.ClientConfig) oauth2.TokenSource {
	if cfg.UsesClientCredentials() {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		return cc.TokenSource(ctx)
	}
	if cfg.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	}
	return nil
}
