package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/crmimport/internal/campaign"
	"github.com/JonMunkholm/crmimport/internal/importer"
)

type publishedRequest struct {
	Published *bool `json:"published"`
}

type eventFailedRequest struct {
	ContactID int64 `json:"contactId"`
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", errInvalidID, name)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFormSize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", importer.ErrInvalidForm, err)
	}
	return nil
}

// handleSetPublished publishes or unpublishes a campaign. Publishing resets
// the failure counts of its events.
func (s *Server) handleSetPublished(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "campaignID")
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	var req publishedRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Published == nil {
		respondError(w, r, fmt.Errorf("%w: missing published", importer.ErrInvalidForm), http.StatusBadRequest)
		return
	}

	c, err := s.deps.Campaigns.SetPublished(r.Context(), id, *req.Published)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleEventFailed records a failed execution of a campaign event. The
// campaign is unpublished once too many of its contacts fail.
func (s *Server) handleEventFailed(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	var req eventFailedRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	outcome, err := s.deps.Campaigns.OnEventFailed(r.Context(), campaign.FailedEvent{EventID: id, ContactID: req.ContactID})
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}
