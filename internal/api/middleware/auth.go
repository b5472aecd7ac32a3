package middleware

import (
	"context"
	"emi-engine/internal/config"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type tenantCtxKey struct{}

const (
	TenantHeader  = "X-Tenant-ID"
	DefaultTenant = "default"
)

// WithTenant stores the resolved tenant on ctx.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, tenantID)
}

// TenantFromContext returns the tenant resolved for the request, or "" when
// no middleware ran.
func TenantFromContext(ctx context.Context) string {
	tenantID, _ := ctx.Value(tenantCtxKey{}).(string)
	return tenantID
}

// AuthMiddleware authenticates bearer tokens and scopes the request to the
// token subject. With auth disabled the tenant comes from the X-Tenant-ID
// header, falling back to DefaultTenant.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tenantID := strings.TrimSpace(r.Header.Get(TenantHeader))
				if tenantID == "" {
					tenantID = DefaultTenant
				}
				next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenantID)))
			})
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, ok := validateJWT(r, cfg.JWTSecret, logger)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"message":"Unauthorized"}}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenantID)))
		})
	}
}

func validateJWT(r *http.Request, secret string, logger *slog.Logger) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		logger.Warn("AuthMiddleware: Missing Authorization header")
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logger.Warn("AuthMiddleware: Invalid Authorization header format")
		return "", false
	}
	tokenString := parts[1]

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		logger.Warn("AuthMiddleware: Invalid token", "error", err)
		return "", false
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		logger.Warn("AuthMiddleware: Token has no subject")
		return "", false
	}

	logger.Debug("AuthMiddleware: Authenticated request", "tenant", subject)
	return subject, true
}
