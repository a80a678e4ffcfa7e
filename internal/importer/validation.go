package importer

import (
	"errors"
	"sort"
	"strings"
)

// Owner is the user new records are assigned to when the row has none.
type Owner struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// ValidationResult is the outcome of the validate stage. Field-level problems
// are collected with AddError instead of aborting the run.
type ValidationResult struct {
	// MatchedFields maps a CSV column header to a field alias.
	MatchedFields map[string]string `json:"matchedFields"`
	Owner         *Owner            `json:"owner,omitempty"`
	ListID        *int64            `json:"listId,omitempty"`
	Tags          []string          `json:"tags"`

	errs []error
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{
		MatchedFields: map[string]string{},
		Tags:          []string{},
	}
}

// AddError records a validation problem.
func (r *ValidationResult) AddError(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

// Errors returns the recorded problems in the order they were added.
func (r *ValidationResult) Errors() []error {
	return r.errs
}

// Valid reports whether no problem was recorded.
func (r *ValidationResult) Valid() bool {
	return len(r.errs) == 0
}

// Err joins every recorded problem, or returns nil when the result is valid.
func (r *ValidationResult) Err() error {
	return errors.Join(r.errs...)
}

// Messages renders the recorded problems for display.
func (r *ValidationResult) Messages(t Translator) []string {
	if t == nil {
		t = DefaultMessages
	}
	out := make([]string, 0, len(r.errs))
	for _, err := range r.errs {
		out = append(out, errorMessage(err, t))
	}
	return out
}

func errorMessage(err error, t Translator) string {
	var missing *MissingRequiredFieldsError
	var unknown *UnknownFieldsError
	switch {
	case errors.Is(err, ErrNoFieldsMatched):
		return t.Trans(MsgMatchFields, nil)
	case errors.As(err, &unknown):
		word := "fields"
		if len(unknown.Aliases) == 1 {
			word = "field"
		}
		return t.Trans(MsgUnknownFields, map[string]string{
			paramUnknownFields: strings.Join(unknown.Aliases, ", "),
			paramFieldOrFields: word,
		})
	case errors.As(err, &missing):
		word := "fields"
		if len(missing.Fields) == 1 {
			word = "field"
		}
		return t.Trans(MsgMissingRequiredFields, map[string]string{
			paramRequiredFields: strings.Join(missing.Labels(), ", "),
			paramFieldOrFields:  word,
		})
	default:
		return err.Error()
	}
}

// knownFields splits matched into the pairs whose alias appears in mapping
// and the sorted, distinct aliases that do not.
func knownFields(matched map[string]string, mapping FieldMapping) (map[string]string, []string) {
	offered := make(map[string]bool)
	for _, alias := range mapping.Aliases() {
		offered[alias] = true
	}
	known := make(map[string]string, len(matched))
	seen := make(map[string]bool)
	var unknown []string
	for header, alias := range matched {
		if offered[alias] {
			known[header] = alias
			continue
		}
		if !seen[alias] {
			seen[alias] = true
			unknown = append(unknown, alias)
		}
	}
	sort.Strings(unknown)
	return known, unknown
}

// missingRequired returns the required fields whose alias is not a value of
// matched, in the order of required.
func missingRequired(required []Field, matched map[string]string) []Field {
	mapped := make(map[string]bool, len(matched))
	for _, alias := range matched {
		mapped[alias] = true
	}
	var missing []Field
	for _, f := range required {
		if !mapped[f.Alias] {
			missing = append(missing, f)
		}
	}
	return missing
}
