// Package importer implements the staged import pipeline used to load CSV
// rows into CRM objects (companies, contacts).
//
// # Stages
//
// Every import run passes through four stages, in order:
//
//	initialize  - the handler for the requested kind checks permissions and
//	              supplies display metadata (labels, navigation, index route)
//	map-fields  - the handler lists the fields a CSV column can be mapped to
//	validate    - the handler normalizes the submitted mapping form, resolves
//	              owner, list and tags, and reports missing required fields
//	process     - invoked once per CSV row; the handler upserts the record
//	              and reports whether an existing record was merged
//
// # Claiming
//
// Handlers are registered once with New and offered each stage in
// registration order. A handler that owns the run returns Claim(payload);
// every other handler returns Decline. The Orchestrator records the claiming
// kind on the Event and, by default, stops offering the stage after the first
// claim (PolicyShortCircuit). After the initialize stage is claimed, later
// stages go straight to the claiming handler.
//
// A stage configured with PolicyBroadcast is offered to every handler; a
// second claim within such a stage is a configuration error and fails with
// ErrDuplicateClaim.
//
// # Errors
//
// Hard failures abort the run and are returned as errors:
//
//	ErrPermissionDenied       - the caller may not import this kind
//	ErrUnsupportedImportKind  - no handler claimed the stage
//	ErrNotValidated           - process was called before a clean validation
//
// Validation problems are soft: they are collected on the ValidationResult
// (ErrNoFieldsMatched, *MissingRequiredFieldsError) so that every problem can
// be shown to the user at once.
package importer
