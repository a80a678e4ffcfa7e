package core

import (
	"time"

	"github.com/JonMunkholm/crmimport/internal/importer"
	"github.com/JonMunkholm/crmimport/internal/store"
)

// ImportPhase indicates the current stage of an import run.
type ImportPhase string

const (
	PhaseStarting   ImportPhase = "starting"
	PhaseReading    ImportPhase = "reading"
	PhaseProcessing ImportPhase = "processing"
	PhaseComplete   ImportPhase = "complete"
	PhaseFailed     ImportPhase = "failed"
	PhaseCancelled  ImportPhase = "cancelled"
)

// Done reports whether the phase is final.
func (p ImportPhase) Done() bool {
	return p == PhaseComplete || p == PhaseFailed || p == PhaseCancelled
}

// ImportProgress represents the current state of an import run.
type ImportProgress struct {
	ImportID   string        `json:"importId"`
	Kind       importer.Kind `json:"kind"`
	Phase      ImportPhase   `json:"phase"`
	FileName   string        `json:"fileName"`
	CurrentRow int           `json:"currentRow"`
	Inserted   int           `json:"inserted"`
	Merged     int           `json:"merged"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Error      string        `json:"error,omitempty"`
	BytesRead  int64         `json:"bytesRead"`
	BytesTotal int64         `json:"bytesTotal"`
}

// Percent returns the byte based progress (0-100). Rows are streamed, so the
// row total is not known until the run ends.
func (p ImportProgress) Percent() int {
	if p.Phase == PhaseComplete {
		return 100
	}
	if p.BytesTotal <= 0 {
		return 0
	}
	pct := int(p.BytesRead * 100 / p.BytesTotal)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// FailedRow is a CSV row the pipeline could not import.
type FailedRow struct {
	LineNumber int      `json:"lineNumber"`
	Reason     string   `json:"reason"`
	Data       []string `json:"data"`
}

// ImportResult is the final outcome of an import run.
type ImportResult struct {
	ImportID   string        `json:"importId"`
	Kind       importer.Kind `json:"kind"`
	FileName   string        `json:"fileName"`
	Header     []string      `json:"header,omitempty"`
	TotalRows  int           `json:"totalRows"`
	Inserted   int           `json:"inserted"`
	Merged     int           `json:"merged"`
	Skipped    int           `json:"skipped"`
	FailedRows []FailedRow   `json:"failedRows,omitempty"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Cancelled  bool          `json:"cancelled,omitempty"`
}

// Failed returns the number of rows that could not be imported.
func (r *ImportResult) Failed() int {
	return len(r.FailedRows)
}

// status maps the result onto the import history status.
func (r *ImportResult) status() store.ImportStatus {
	switch {
	case r.Cancelled:
		return store.ImportCancelled
	case r.Error != "":
		return store.ImportFailed
	default:
		return store.ImportCompleted
	}
}
