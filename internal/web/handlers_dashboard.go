package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/importer"
)

// handleImportSummary renders the import summary widget for dateFrom to
// dateTo, which default to the last 30 days.
func (s *Server) handleImportSummary(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
	from := to.AddDate(0, 0, -30)

	var err error
	if v := r.URL.Query().Get("dateFrom"); v != "" {
		if from, err = parseDate(v); err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("dateTo"); v != "" {
		if to, err = parseDate(v); err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}

	var userID int64
	if p, ok := auth.FromContext(r.Context()); ok {
		userID = p.UserID
	}

	data, cached, err := s.deps.Summary.Render(r.Context(), userID, from, to)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cached": cached, "data": data})
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", importer.ErrInvalidForm, v)
}
