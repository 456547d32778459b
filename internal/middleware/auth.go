package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/benvon/tag-catalog/internal/database"
	logpkg "github.com/benvon/tag-catalog/internal/logger"
	"github.com/benvon/tag-catalog/internal/models"
	"github.com/benvon/tag-catalog/internal/request"
	"go.uber.org/zap"
)

// TokenVerifier turns a bearer token into verified identity claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.JWTClaims, error)
}

// Auth creates authentication middleware that validates bearer tokens and
// attaches the matching catalog user to the request context.
func Auth(users database.UserRepositoryInterface, verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header", logger)
				return
			}

			ctx := r.Context()
			claims, err := verifier.Verify(ctx, tokenString)
			if err != nil {
				logger.Info("token_verification_failed",
					zap.Error(err),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				)
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			user, err := users.SyncFromClaims(ctx, claims)
			if err != nil {
				logger.Error("failed_to_sync_user",
					zap.Error(err),
					zap.String("subject", logpkg.SanitizeString(claims.Sub, logpkg.MaxGeneralStringLength)),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to load user", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

// StaticUser attaches a fixed user to every request. Used when authentication is disabled.
func StaticUser(user *models.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
