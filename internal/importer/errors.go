package importer

import (
	"errors"
	"strings"
)

var (
	// ErrPermissionDenied is returned when the caller may not import the
	// requested kind.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnsupportedImportKind is returned when no handler claims a stage.
	ErrUnsupportedImportKind = errors.New("unsupported import kind")

	// ErrNoFieldsMatched is recorded when the mapping form contains no
	// usable column to field pairs.
	ErrNoFieldsMatched = errors.New("no fields matched")

	// ErrNotValidated is returned by Process when the run has no clean
	// validation result.
	ErrNotValidated = errors.New("import not validated")

	// ErrDuplicateClaim is a configuration error: two handlers claimed the
	// same run.
	ErrDuplicateClaim = errors.New("duplicate import claim")

	// ErrDuplicateHandler is returned by New when two handlers share a kind.
	ErrDuplicateHandler = errors.New("duplicate import handler")

	// ErrInvalidForm is returned by ParseForm for input that is not a JSON
	// object.
	ErrInvalidForm = errors.New("invalid import form")
)

// MissingRequiredFieldsError lists the required fields no CSV column was
// mapped to.
type MissingRequiredFieldsError struct {
	Fields []Field
}

func (e *MissingRequiredFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Labels(), ", ")
}

// Aliases returns the aliases of the missing fields in catalog order.
func (e *MissingRequiredFieldsError) Aliases() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Alias
	}
	return out
}

// Labels returns the display labels of the missing fields.
func (e *MissingRequiredFieldsError) Labels() []string {
	out := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		out[i] = f.Label
	}
	return out
}

// UnknownFieldsError lists mapped aliases that are not offered by the
// map-fields stage of the run.
type UnknownFieldsError struct {
	Aliases []string
}

func (e *UnknownFieldsError) Error() string {
	return "unknown fields: " + strings.Join(e.Aliases, ", ")
}
