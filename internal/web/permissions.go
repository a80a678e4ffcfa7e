package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/importer"
)

// requirePermission answers 403 unless the request principal holds
// permission. It runs after BearerAuth.
func requirePermission(permission string) func(http.Handler) http.Handler {
	gate := auth.Gate{}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.IsGranted(r.Context(), permission) {
				err := fmt.Errorf("%w: %s %s requires %s", importer.ErrPermissionDenied, r.Method, r.URL.Path, permission)
				respondError(w, r, err, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
