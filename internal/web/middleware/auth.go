package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/logging"
)

// BearerAuth verifies the Authorization: Bearer token and stores the
// principal in the request context.
//
// When required is false, requests without a token run as auth.System();
// a token that is present must still be valid.
func BearerAuth(verifier *auth.Verifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				if required {
					reject(w, r, http.StatusUnauthorized, auth.ErrMissingToken)
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), auth.System())))
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				reject(w, r, http.StatusUnauthorized, err)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), principal)
			ctx = logging.ContextWithLogger(ctx, slog.Default().With("user_id", principal.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	logging.FromContext(r.Context()).Warn("auth: request rejected",
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
		"error", err,
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"Your session is missing or has expired","message":"Your session is missing or has expired","action":"Sign in again and retry","code":"AUTH002"}`))
}
