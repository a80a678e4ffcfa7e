package importer

import "fmt"

// Display holds the labels and navigation data the UI shows for an import.
type Display struct {
	ObjectSingular   string            `json:"objectSingular"`
	ObjectName       string            `json:"objectName"`
	ActiveLink       string            `json:"activeLink"`
	IndexRoute       string            `json:"indexRoute"`
	IndexRouteParams map[string]string `json:"indexRouteParams,omitempty"`
}

// Event is the per-run context shared by all stages. It is created by
// Orchestrator.Initialize and must not be shared between runs.
type Event struct {
	kind      Kind
	claimedBy Kind

	display    Display
	fields     FieldMapping
	validation *ValidationResult
}

func newEvent(kind Kind) *Event {
	return &Event{kind: kind}
}

// Kind returns the object kind requested for this run.
func (e *Event) Kind() Kind { return e.kind }

// IsFor reports whether the run targets kind. It has no side effects.
func (e *Event) IsFor(kind Kind) bool { return e.kind == kind }

// Claimed reports whether a handler has taken ownership of the run.
func (e *Event) Claimed() bool { return e.claimedBy != "" }

// ClaimedBy returns the kind of the handler that owns the run, or "".
func (e *Event) ClaimedBy() Kind { return e.claimedBy }

// Display returns the metadata set by the initialize stage.
func (e *Event) Display() Display { return e.display }

// Fields returns the mapping produced by the map-fields stage.
func (e *Event) Fields() FieldMapping { return e.fields }

// Validation returns the outcome of the validate stage, or nil if the stage
// has not run yet.
func (e *Event) Validation() *ValidationResult { return e.validation }

func (e *Event) claim(by Kind) error {
	if e.claimedBy != "" && e.claimedBy != by {
		return fmt.Errorf("%w: run already owned by %s, %s tried to claim it", ErrDuplicateClaim, e.claimedBy, by)
	}
	e.claimedBy = by
	return nil
}
