package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mljjcooking/storefront-backend/api/responses"
	"github.com/mljjcooking/storefront-backend/pkg/config"
	pkgerrors "github.com/mljjcooking/storefront-backend/pkg/errors"
	"github.com/mljjcooking/storefront-backend/pkg/logger"
)

type adminCtxKey struct{}

// AdminClaims carries the verified identity of an admin request. Tokens are
// minted by the admin console backend; this service only verifies them.
type AdminClaims struct {
	Subject string
	Email   string
}

// AdminFromContext returns the admin claims seeded by RequireAdmin.
func AdminFromContext(ctx context.Context) (AdminClaims, bool) {
	claims, ok := ctx.Value(adminCtxKey{}).(AdminClaims)
	return claims, ok
}

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RequireAdmin rejects requests without a valid admin bearer token.
func RequireAdmin(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := extractBearerToken(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			claims, err := verifyAdminToken(token, cfg)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"admin_sub": claims.Subject})
			}
			ctx = context.WithValue(ctx, adminCtxKey{}, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

func verifyAdminToken(raw string, cfg config.JWTConfig) (AdminClaims, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected signing method")
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return AdminClaims{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if !parsed.Valid {
		return AdminClaims{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}
	if claims.Subject == "" {
		return AdminClaims{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing subject")
	}
	return AdminClaims{Subject: claims.Subject, Email: claims.Email}, nil
}
