package oidc

import "strings"

// LoginConfig tells interactive clients where to obtain tokens
type LoginConfig struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty"`
	TokenEndpoint         string `json:"token_endpoint,omitempty"`
	ClientID              string `json:"client_id,omitempty"`
	Scope                 string `json:"scope"`
}

// NewLoginConfig builds the login configuration, deriving the OAuth2
// endpoints from the issuer when they are not configured explicitly.
func NewLoginConfig(issuer, clientID, authURL, tokenURL string) *LoginConfig {
	base := strings.TrimSuffix(issuer, "/")
	if authURL == "" && base != "" {
		authURL = base + "/oauth2/authorize"
	}
	if tokenURL == "" && base != "" {
		tokenURL = base + "/oauth2/token"
	}
	return &LoginConfig{
		Issuer:                issuer,
		AuthorizationEndpoint: authURL,
		TokenEndpoint:         tokenURL,
		ClientID:              clientID,
		Scope:                 "openid email profile",
	}
}
