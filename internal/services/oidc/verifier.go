package oidc

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/tag-catalog/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Verifier verifies bearer tokens issued by the configured identity provider
type Verifier struct {
	keys       KeySource
	issuer     string
	audience   string
	rolesClaim string
}

// NewVerifier creates a verifier. audience may be empty to skip the aud check;
// rolesClaim names the private claim carrying catalog roles.
func NewVerifier(keys KeySource, issuer, audience, rolesClaim string) *Verifier {
	if rolesClaim == "" {
		rolesClaim = "roles"
	}
	return &Verifier{
		keys:       keys,
		issuer:     issuer,
		audience:   audience,
		rolesClaim: rolesClaim,
	}
}

// Verify checks signature, expiry, issuer and audience, then extracts claims
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	keys, err := v.keys.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAcceptableSkew(30 * time.Second),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	token, err := jwt.Parse([]byte(tokenString), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}
	if token.Subject() == "" {
		return nil, fmt.Errorf("token missing subject claim")
	}

	claims := &models.JWTClaims{
		Sub:   token.Subject(),
		Iss:   token.Issuer(),
		Exp:   token.Expiration().Unix(),
		Iat:   token.IssuedAt().Unix(),
		Email: stringClaim(token, "email"),
		Name:  stringClaim(token, "name"),
		Roles: stringsClaim(token, v.rolesClaim),
	}
	if aud := token.Audience(); len(aud) > 0 {
		claims.Aud = aud[0]
	}
	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	raw, ok := token.Get(name)
	if !ok {
		return ""
	}
	s, _ := raw.(string)
	return s
}

// stringsClaim accepts either a JSON array of strings or a single string
func stringsClaim(token jwt.Token, name string) []string {
	raw, ok := token.Get(name)
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
