package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/importer"
	"github.com/JonMunkholm/crmimport/internal/logging"
	"github.com/JonMunkholm/crmimport/internal/store"
)

// ErrImportNotFound is returned for an unknown or expired import id.
var ErrImportNotFound = errors.New("import not found")

// ResultRetention is how long a finished run stays available for progress
// and result queries.
var ResultRetention = 15 * time.Minute

// Pipeline runs the import stages. *importer.Orchestrator implements it.
type Pipeline interface {
	Initialize(ctx context.Context, kind importer.Kind) (*importer.Event, error)
	MapFields(ctx context.Context, ev *importer.Event) (importer.FieldMapping, error)
	Validate(ctx context.Context, ev *importer.Event, form *importer.Form) (*importer.ValidationResult, error)
	Process(ctx context.Context, ev *importer.Event, row importer.Row) (importer.ProcessResult, error)
}

// HistoryStore keeps finished runs. *store.Store implements it.
type HistoryStore interface {
	RecordImport(ctx context.Context, run store.ImportRun) error
	PurgeImportHistory(ctx context.Context, cutoff time.Time) (int64, error)
}

// ValidationFailedError is returned by StartImport when the mapping form did
// not pass the validate stage. No run is started.
type ValidationFailedError struct {
	Result   *importer.ValidationResult
	Messages []string
}

func (e *ValidationFailedError) Error() string {
	if err := e.Result.Err(); err != nil {
		return "import validation failed: " + err.Error()
	}
	return "import validation failed"
}

func (e *ValidationFailedError) Unwrap() error {
	return e.Result.Err()
}

// Service drives CSV files through the import pipeline.
type Service struct {
	pipeline   Pipeline
	history    HistoryStore
	limiter    *ImportLimiter
	timeout    time.Duration
	translator importer.Translator

	mu      sync.RWMutex
	imports map[string]*activeImport
	running sync.WaitGroup
}

type activeImport struct {
	id       string
	kind     importer.Kind
	fileName string
	userID   *int64
	event    *importer.Event
	cancel   context.CancelFunc
	done     chan struct{}

	mu        sync.Mutex
	progress  ImportProgress
	result    *ImportResult
	listeners []chan ImportProgress
}

// NewService creates a Service. history may be nil, in which case finished
// runs are not recorded.
func NewService(pipeline Pipeline, history HistoryStore, cfg config.ImportConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Service{
		pipeline:   pipeline,
		history:    history,
		limiter:    NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		timeout:    timeout,
		translator: importer.DefaultMessages,
		imports:    make(map[string]*activeImport),
	}
}

// SetTranslator replaces the translator used for validation messages.
func (s *Service) SetTranslator(t importer.Translator) {
	if t != nil {
		s.translator = t
	}
}

// InitImport runs the initialize stage for kind.
func (s *Service) InitImport(ctx context.Context, kind importer.Kind) (*importer.Event, error) {
	return s.pipeline.Initialize(ctx, kind)
}

// ImportFields returns the mapping sections a CSV column can be matched to.
func (s *Service) ImportFields(ctx context.Context, kind importer.Kind) (importer.FieldMapping, error) {
	ev, err := s.pipeline.Initialize(ctx, kind)
	if err != nil {
		return nil, err
	}
	return s.pipeline.MapFields(ctx, ev)
}

// ValidateMapping checks a mapping form without starting a run. Problems with
// the form are reported on the result, not as an error.
func (s *Service) ValidateMapping(ctx context.Context, kind importer.Kind, form []byte) (*importer.ValidationResult, error) {
	ev, err := s.prepare(ctx, kind, form)
	if err != nil {
		return nil, err
	}
	return ev.Validation(), nil
}

// Messages renders the problems on a validation result.
func (s *Service) Messages(res *importer.ValidationResult) []string {
	return res.Messages(s.translator)
}

func (s *Service) prepare(ctx context.Context, kind importer.Kind, raw []byte) (*importer.Event, error) {
	form, err := importer.ParseForm(raw)
	if err != nil {
		return nil, err
	}
	ev, err := s.pipeline.Initialize(ctx, kind)
	if err != nil {
		return nil, err
	}
	if _, err := s.pipeline.MapFields(ctx, ev); err != nil {
		return nil, err
	}
	if _, err := s.pipeline.Validate(ctx, ev, form); err != nil {
		return nil, err
	}
	return ev, nil
}

// StartImport validates form and then imports the CSV in r in the
// background. It returns the import id immediately; use SubscribeProgress
// or GetImportResult to follow the run. If r is an io.Closer the run closes
// it when done.
//
// Returns ErrTooManyImports when no import slot frees up in time and
// *ValidationFailedError when the form is rejected.
func (s *Service) StartImport(ctx context.Context, kind importer.Kind, fileName string, r io.Reader, size int64, form []byte) (string, error) {
	closeReader := func() {
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
		}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		closeReader()
		return "", err
	}

	ev, err := s.prepare(ctx, kind, form)
	if err == nil && !ev.Validation().Valid() {
		err = &ValidationFailedError{
			Result:   ev.Validation(),
			Messages: s.Messages(ev.Validation()),
		}
	}
	if err != nil {
		s.limiter.Release()
		closeReader()
		return "", err
	}

	imp := &activeImport{
		id:       uuid.New().String(),
		kind:     kind,
		fileName: fileName,
		event:    ev,
		done:     make(chan struct{}),
	}
	if p, ok := auth.FromContext(ctx); ok && p.UserID > 0 {
		id := p.UserID
		imp.userID = &id
	}
	imp.progress = ImportProgress{
		ImportID:   imp.id,
		Kind:       kind,
		Phase:      PhaseStarting,
		FileName:   fileName,
		BytesTotal: size,
	}

	// The run outlives the request but keeps its values.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	imp.cancel = cancel

	s.mu.Lock()
	s.imports[imp.id] = imp
	s.mu.Unlock()

	logger := logging.FromContext(ctx).With("import_id", imp.id, "kind", kind)
	logger.Info("import started", "file", fileName, "size", size)

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		defer s.limiter.Release()
		defer cancel()
		defer closeReader()

		startedAt := time.Now()
		var result *ImportResult
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic in import", "panic", rec)
				result = &ImportResult{
					ImportID: imp.id,
					Kind:     kind,
					FileName: fileName,
					Error:    fmt.Sprintf("internal error: %v", rec),
					Duration: time.Since(startedAt),
				}
			}
			s.finish(runCtx, imp, result, startedAt, logger)
		}()

		result = s.runImport(runCtx, imp, r, size)
	}()

	return imp.id, nil
}

// finish publishes the final state, records history and schedules removal.
func (s *Service) finish(ctx context.Context, imp *activeImport, result *ImportResult, startedAt time.Time, logger *slog.Logger) {
	finishedAt := time.Now()
	result.Duration = finishedAt.Sub(startedAt)

	imp.complete(result)

	logger.Info("import finished",
		"status", result.status(),
		"total_rows", result.TotalRows,
		"inserted", result.Inserted,
		"merged", result.Merged,
		"failed", result.Failed(),
		"duration_ms", result.Duration.Milliseconds(),
	)

	if s.history != nil {
		// The run context may already be cancelled or expired.
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		err := s.history.RecordImport(recordCtx, store.ImportRun{
			ID:           imp.id,
			Kind:         imp.kind.String(),
			FileName:     imp.fileName,
			Status:       result.status(),
			TotalRows:    result.TotalRows,
			Inserted:     result.Inserted,
			Merged:       result.Merged,
			Skipped:      result.Skipped,
			Failed:       result.Failed(),
			ErrorMessage: result.Error,
			UserID:       imp.userID,
			StartedAt:    startedAt,
			FinishedAt:   finishedAt,
		})
		if err != nil {
			logger.Error("record import history failed", "error", err)
		}
	}

	time.AfterFunc(ResultRetention, func() {
		s.mu.Lock()
		delete(s.imports, imp.id)
		s.mu.Unlock()
	})
}

// lookup returns the run with importID if the principal in ctx may see it.
// Admins see every run, other users only the runs they started. A context
// without a principal is an in-process caller and is not restricted.
func (s *Service) lookup(ctx context.Context, importID string) (*activeImport, error) {
	s.mu.RLock()
	imp, ok := s.imports[importID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}

	p, ok := auth.FromContext(ctx)
	if !ok || p.Admin {
		return imp, nil
	}
	if imp.userID == nil || *imp.userID != p.UserID {
		return nil, fmt.Errorf("%w: import %s was started by another user", importer.ErrPermissionDenied, importID)
	}
	return imp, nil
}

// SubscribeProgress returns a channel receiving progress updates for a run.
// The channel is closed when the run ends. Slow readers miss intermediate
// updates but always get the final one.
func (s *Service) SubscribeProgress(ctx context.Context, importID string) (<-chan ImportProgress, error) {
	imp, err := s.lookup(ctx, importID)
	if err != nil {
		return nil, err
	}
	return imp.subscribe(), nil
}

// GetImportProgress returns the current progress without blocking.
func (s *Service) GetImportProgress(ctx context.Context, importID string) (ImportProgress, error) {
	imp, err := s.lookup(ctx, importID)
	if err != nil {
		return ImportProgress{}, err
	}
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.progress, nil
}

// CancelImport stops a running import. Rows imported so far are kept.
func (s *Service) CancelImport(ctx context.Context, importID string) error {
	imp, err := s.lookup(ctx, importID)
	if err != nil {
		return err
	}
	imp.cancel()
	return nil
}

// GetImportResult waits for a run to end and returns its result.
func (s *Service) GetImportResult(ctx context.Context, importID string) (*ImportResult, error) {
	imp, err := s.lookup(ctx, importID)
	if err != nil {
		return nil, err
	}
	select {
	case <-imp.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.result, nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until every running import has finished or ctx is
// done. Used for graceful shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// update applies fn to the progress and sends the new state to listeners.
func (imp *activeImport) update(fn func(p *ImportProgress)) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	fn(&imp.progress)
	for _, ch := range imp.listeners {
		select {
		case ch <- imp.progress:
		default:
			// Listener is slow, skip this update
		}
	}
}

func (imp *activeImport) subscribe() <-chan ImportProgress {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	ch := make(chan ImportProgress, 16)
	ch <- imp.progress
	if imp.result != nil {
		close(ch)
		return ch
	}
	imp.listeners = append(imp.listeners, ch)
	return ch
}

// complete stores the result, sends the final progress and closes listeners.
func (imp *activeImport) complete(result *ImportResult) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	imp.result = result
	p := &imp.progress
	p.Inserted = result.Inserted
	p.Merged = result.Merged
	p.Skipped = result.Skipped
	p.Failed = result.Failed()
	p.Error = result.Error
	switch {
	case result.Cancelled:
		p.Phase = PhaseCancelled
	case result.Error != "":
		p.Phase = PhaseFailed
	default:
		p.Phase = PhaseComplete
	}

	for _, ch := range imp.listeners {
		// Drop a stale update to make room for the final state.
		select {
		case ch <- *p:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- *p:
			default:
			}
		}
		close(ch)
	}
	imp.listeners = nil
	close(imp.done)
}
