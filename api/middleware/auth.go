package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/agroworld/storefront/api/responses"
	pkgAuth "github.com/agroworld/storefront/pkg/auth"
	"github.com/agroworld/storefront/pkg/auth/session"
	"github.com/agroworld/storefront/pkg/backend"
	"github.com/agroworld/storefront/pkg/config"
	pkgerrors "github.com/agroworld/storefront/pkg/errors"
	"github.com/agroworld/storefront/pkg/logger"
)

// Auth validates the storefront bearer token, resolves its session and seeds
// the request context with the user, the session and the backend token that
// outgoing backend calls are signed with.
func Auth(cfg config.JWTConfig, sessions session.Lookup, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			sessionID := claims.SessionID()

			record, err := sessions.Lookup(r.Context(), sessionID)
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired, please log in again"))
					return
				}
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
				return
			}
			if record.UserID != claims.UserID {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = WithSessionID(ctx, sessionID)
			ctx = backend.WithBearerToken(ctx, record.BackendToken)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID)
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}

// RequireSession rejects requests that reached a handler without a session.
func RequireSession(ctx context.Context) (string, error) {
	sid := SessionIDFromContext(ctx)
	if sid == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "login required")
	}
	return sid, nil
}
