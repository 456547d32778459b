package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// KeySource supplies the key set tokens are verified against
type KeySource interface {
	Keys(ctx context.Context) (jwk.Set, error)
}

// JWKSManager fetches the issuer's JWKS document and caches it for ttl
type JWKSManager struct {
	url     string
	client  *http.Client
	ttl     time.Duration
	mu      sync.RWMutex
	keys    jwk.Set
	expires time.Time
}

// NewJWKSManager creates a manager for the JWKS document at url
func NewJWKSManager(url string) *JWKSManager {
	return &JWKSManager{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		ttl:    1 * time.Hour,
	}
}

// Keys returns the cached key set, refreshing it once expired
func (m *JWKSManager) Keys(ctx context.Context) (jwk.Set, error) {
	m.mu.RLock()
	if m.keys != nil && time.Now().Before(m.expires) {
		keys := m.keys
		m.mu.RUnlock()
		return keys, nil
	}
	m.mu.RUnlock()

	keys, err := m.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.keys = keys
	m.expires = time.Now().Add(m.ttl)
	m.mu.Unlock()
	return keys, nil
}

// Invalidate drops the cached key set so the next call refetches it
func (m *JWKSManager) Invalidate() {
	m.mu.Lock()
	m.keys = nil
	m.mu.Unlock()
}

func (m *JWKSManager) fetch(ctx context.Context) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}
	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}

// StaticKeys is a KeySource over a fixed key set
type StaticKeys struct {
	Set jwk.Set
}

// Keys returns the fixed set
func (s StaticKeys) Keys(context.Context) (jwk.Set, error) {
	if s.Set == nil {
		return nil, fmt.Errorf("no keys configured")
	}
	return s.Set, nil
}
