package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benvon/tag-catalog/internal/database"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/request"
	"github.com/rs/cors"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"go.uber.org/zap"
)

// DefaultRatelimitRate is applied when no rate has been configured
const DefaultRatelimitRate = "5-S"

// hotSwap serves through a handler that a reload loop can replace at any time
type hotSwap struct {
	mu      sync.RWMutex
	next    http.Handler
	current http.Handler
}

func (h *hotSwap) swap(handler http.Handler) {
	h.mu.Lock()
	h.current = handler
	h.mu.Unlock()
}

func (h *hotSwap) wrapped() http.Handler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current != nil {
		return h.current
	}
	return h.next
}

// ServeHTTP implements http.Handler.
func (h *hotSwap) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler := h.wrapped(); handler != nil {
		handler.ServeHTTP(w, r)
	}
}

// reloadEvery calls load on each tick until ctx is cancelled
func reloadEvery(ctx context.Context, interval time.Duration, load func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			load(ctx)
		}
	}
}

// CORSReloader wraps rs/cors and periodically reloads its options from service settings
type CORSReloader struct {
	hotSwap
	settings database.SettingsRepositoryInterface
	fallback string
	log      *zap.Logger
	interval time.Duration
}

// NewCORSReloader creates a CORS middleware that hot-reloads allowed origins.
// fallbackOrigins is a comma-separated list used until settings are stored.
func NewCORSReloader(settings database.SettingsRepositoryInterface, fallbackOrigins string, log *zap.Logger, interval time.Duration) *CORSReloader {
	return &CORSReloader{
		settings: settings,
		fallback: strings.TrimSpace(fallbackOrigins),
		log:      log,
		interval: interval,
	}
}

// Middleware returns a middleware that wraps next with CORS and hot-reload.
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *CORSReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.load)
}

func (r *CORSReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	cfg, err := r.settings.GetCORS(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_settings_using_fallback", zap.Error(err))
		cfg = nil
	}
	r.swap(cors.New(corsOptions(cfg, r.fallback)).Handler(r.next))
}

func corsOptions(cfg *models.CorsConfig, fallback string) cors.Options {
	origins := database.AllowedOriginsSlice(fallback)
	allowCreds, maxAge := true, 86400
	if cfg != nil {
		origins = database.AllowedOriginsSlice(cfg.AllowedOrigins)
		allowCreds = cfg.AllowCredentials
		maxAge = cfg.MaxAge
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: allowCreds,
		MaxAge:           maxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
	}
}

// RateLimitReloader wraps ulule/limiter and periodically reloads the rate from service settings
type RateLimitReloader struct {
	hotSwap
	store       limiter.Store
	settings    database.SettingsRepositoryInterface
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
}

// NewRateLimitReloader creates a rate limit middleware keyed by client IP. The
// store is shared across reloads so counters survive a rate change.
func NewRateLimitReloader(store limiter.Store, settings database.SettingsRepositoryInterface, defaultRate string, log *zap.Logger, interval time.Duration) *RateLimitReloader {
	if defaultRate == "" {
		defaultRate = DefaultRatelimitRate
	}
	return &RateLimitReloader{
		store:       store,
		settings:    settings,
		defaultRate: defaultRate,
		log:         log,
		interval:    interval,
	}
}

// Middleware returns a middleware that wraps next with rate limiting and hot-reload.
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *RateLimitReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.load)
}

func (r *RateLimitReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	rateStr := r.defaultRate
	cfg, err := r.settings.GetRateLimit(ctx)
	switch {
	case err != nil:
		r.log.Warn("failed_to_load_ratelimit_settings_using_default",
			zap.Error(err),
			zap.String("default_rate", r.defaultRate),
		)
	case cfg != nil && cfg.Rate != "":
		rateStr = cfg.Rate
	default:
		if err := r.settings.SetRateLimit(ctx, &models.RatelimitConfig{Rate: r.defaultRate}); err != nil {
			r.log.Error("failed_to_save_default_ratelimit_settings",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate),
			)
		}
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.Error(err),
			zap.String("rate_str", rateStr),
		)
		if rate, err = limiter.NewRateFromFormatted(r.defaultRate); err != nil {
			r.log.Error("failed_to_parse_default_rate_limit", zap.Error(err))
			return
		}
	}

	mw := stdlibmw.NewMiddleware(limiter.New(r.store, rate), stdlibmw.WithKeyGetter(request.ClientIP))
	r.swap(mw.Handler(r.next))
}
