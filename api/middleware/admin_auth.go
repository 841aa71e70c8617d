package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/parkgolf/notify-backend/api/responses"
	"github.com/parkgolf/notify-backend/pkg/config"
	pkgerrors "github.com/parkgolf/notify-backend/pkg/errors"
	"github.com/parkgolf/notify-backend/pkg/logger"
)

// AdminAuth guards operator routes with a bearer token signed by the admin
// gateway.
func AdminAuth(cfg config.AdminAuthConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.JWTSecret == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin auth not configured"))
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if token == "" || token == header {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required"))
				return
			}

			claims := jwt.MapClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unexpected signing method")
				}
				return []byte(cfg.JWTSecret), nil
			}, jwt.WithIssuer(cfg.Issuer), jwt.WithExpirationRequired())
			if err != nil || !parsed.Valid {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
