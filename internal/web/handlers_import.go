package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/importer"
	"github.com/JonMunkholm/crmimport/internal/logging"
	"github.com/JonMunkholm/crmimport/internal/store"
)

// maxFormSize bounds the JSON mapping body of the validate endpoint.
const maxFormSize = 1 << 20

// multipartMemory is the part of an upload kept in memory before
// ParseMultipartForm spools to disk.
const multipartMemory = 32 << 20

var errImportRunning = errors.New("import still running")

type initResponse struct {
	Kind    importer.Kind    `json:"kind"`
	Display importer.Display `json:"display"`
}

type fieldsResponse struct {
	Kind     importer.Kind         `json:"kind"`
	Sections importer.FieldMapping `json:"sections"`
}

type validateResponse struct {
	Valid  bool                       `json:"valid"`
	Result *importer.ValidationResult `json:"result"`
}

func importKind(r *http.Request) importer.Kind {
	return importer.ParseKind(chi.URLParam(r, "kind"))
}

func (s *Server) handleInitImport(w http.ResponseWriter, r *http.Request) {
	ev, err := s.deps.Imports.InitImport(r.Context(), importKind(r))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, initResponse{Kind: ev.Kind(), Display: ev.Display()})
}

func (s *Server) handleImportFields(w http.ResponseWriter, r *http.Request) {
	kind := importKind(r)
	mapping, err := s.deps.Imports.ImportFields(r.Context(), kind)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, fieldsResponse{Kind: kind, Sections: mapping})
}

// handleValidateMapping checks a mapping form without uploading a file.
func (s *Server) handleValidateMapping(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFormSize))
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", importer.ErrInvalidForm, err), http.StatusBadRequest)
		return
	}

	res, err := s.deps.Imports.ValidateMapping(r.Context(), importKind(r), body)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if !res.Valid() {
		err := &core.ValidationFailedError{Result: res, Messages: s.deps.Imports.Messages(res)}
		respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: true, Result: res})
}

// handleStartImport takes a multipart upload with the CSV in "file" and the
// JSON mapping form in "mapping" and starts a background run.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		respondError(w, r, fmt.Errorf("%w: file too large or invalid form: %v", importer.ErrInvalidForm, err), http.StatusBadRequest)
		return
	}

	mapping := r.FormValue("mapping")
	if mapping == "" {
		respondError(w, r, fmt.Errorf("%w: missing mapping", importer.ErrInvalidForm), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: no file provided", importer.ErrInvalidForm), http.StatusBadRequest)
		return
	}

	// StartImport owns file from here on and closes it.
	importID, err := s.deps.Imports.StartImport(r.Context(), importKind(r), header.Filename, file, header.Size, []byte(mapping))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Location", "/api/import-runs/"+importID+"/result")
	writeJSON(w, http.StatusAccepted, map[string]string{"importId": importID})
}

// handleImportProgress streams progress as Server-Sent Events. The event id
// is the byte percentage. A reconnecting client passes lastEventId (or the
// Last-Event-ID header) to skip updates it already has.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	lastEventIDStr := r.URL.Query().Get("lastEventId")
	if lastEventIDStr == "" {
		lastEventIDStr = r.Header.Get("Last-Event-ID")
	}
	resumeFrom := -1
	if lastEventIDStr != "" {
		if n, err := strconv.Atoi(lastEventIDStr); err == nil {
			resumeFrom = n
		}
	}

	progressCh, err := s.deps.Imports.SubscribeProgress(r.Context(), chi.URLParam(r, "importID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	streamProgress(r.Context(), w, flusher, progressCh, resumeFrom)
}

// streamProgress writes one event per update until the channel closes or ctx
// ends. Updates at or below resumeFrom are skipped, except the final one;
// resumeFrom -1 sends everything.
func streamProgress(ctx context.Context, w io.Writer, flusher http.Flusher, updates <-chan core.ImportProgress, resumeFrom int) {
	for {
		select {
		case progress, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			pct := progress.Percent()
			if pct <= resumeFrom && !progress.Phase.Done() {
				continue
			}

			data, err := json.Marshal(progress)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", pct, data)
			flusher.Flush()

		case <-ctx.Done():
			return
		}
	}
}

// handleImportResult returns the result of a finished run, or 202 with the
// current progress while it is still running.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	progress, err := s.deps.Imports.GetImportProgress(r.Context(), importID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if !progress.Phase.Done() {
		writeJSON(w, http.StatusAccepted, progress)
		return
	}

	result, err := s.deps.Imports.GetImportResult(r.Context(), importID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Imports.CancelImport(r.Context(), chi.URLParam(r, "importID")); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// handleExportFailedRows writes the failed rows of a finished run as CSV:
// the line number and reason followed by the original cells.
func (s *Server) handleExportFailedRows(w http.ResponseWriter, r *http.Request) {
	importID := chi.URLParam(r, "importID")

	progress, err := s.deps.Imports.GetImportProgress(r.Context(), importID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if !progress.Phase.Done() {
		respondError(w, r, errImportRunning, http.StatusConflict)
		return
	}

	result, err := s.deps.Imports.GetImportResult(r.Context(), importID)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	filename := fmt.Sprintf("failed_rows_%s_%s.csv", result.Kind, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	if err := core.WriteFailedRows(w, result); err != nil {
		logging.FromContext(r.Context()).Error("write failed rows", "error", err)
	}
}

func (s *Server) handleImportHistory(w http.ResponseWriter, r *http.Request) {
	params := store.ListImportsParams{
		Kind:  r.URL.Query().Get("kind"),
		Limit: parseIntParam(r, "limit", 50),
	}
	if params.Limit > 500 {
		params.Limit = 500
	}
	if p, ok := auth.FromContext(r.Context()); ok && !p.Admin {
		id := p.UserID
		params.UserID = &id
	}

	runs, err := s.deps.History.ListImports(r.Context(), params)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	if runs == nil {
		runs = []store.ImportRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"imports": runs})
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
