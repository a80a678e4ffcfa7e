package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/crmimport/internal/catalog"
	"github.com/JonMunkholm/crmimport/internal/importer"
	"github.com/JonMunkholm/crmimport/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error", nil, ""},
		{"permission denied", fmt.Errorf("%w: importing companies requires lead:imports:create", importer.ErrPermissionDenied), "AUTH001"},
		{"invalid token", errors.New("invalid bearer token"), "AUTH002"},
		{"unsupported kind", fmt.Errorf("%w: invoices", importer.ErrUnsupportedImportKind), "IMP001"},
		{"no fields matched", importer.ErrNoFieldsMatched, "IMP002"},
		{
			name:     "missing required before required field",
			err:      &importer.MissingRequiredFieldsError{Fields: []importer.Field{{Alias: "companyname", Label: "Company Name"}}},
			wantCode: "IMP003",
		},
		{"not validated", importer.ErrNotValidated, "IMP004"},
		{"invalid form", importer.ErrInvalidForm, "IMP005"},
		{"unknown fields", &importer.UnknownFieldsError{Aliases: []string{"emial"}}, "IMP007"},
		{"unknown import id", fmt.Errorf("%w: 42", ErrImportNotFound), "IMP006"},
		{"duplicate key", errors.New("pq: duplicate key value violates unique constraint"), "DB001"},
		{"unique constraint", errors.New("ERROR: unique constraint violated"), "DB002"},
		{"foreign key", errors.New("violates foreign key constraint"), "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"timeout", errors.New("i/o timeout"), "DB006"},
		{"import timeout", errors.New("import timeout: context deadline exceeded"), "UPL005"},
		{
			name:     "invalid number cell",
			err:      &store.FieldValueError{Alias: "points", Type: catalog.TypeNumber, Value: "ten"},
			wantCode: "VAL002",
		},
		{
			name:     "invalid email cell",
			err:      &store.FieldValueError{Alias: "email", Type: catalog.TypeEmail, Value: "nope"},
			wantCode: "VAL007",
		},
		{
			name:     "invalid datetime cell",
			err:      &store.FieldValueError{Alias: "lastActive", Type: catalog.TypeDateTime, Value: "soon"},
			wantCode: "VAL001",
		},
		{"empty file", errors.New("empty file"), "FILE005"},
		{"cancelled", errors.New("import cancelled"), "UPL001"},
		{"busy", ErrTooManyImports, "UPL002"},
		{"rate limit", errors.New("rate limit exceeded"), "RATE001"},
		{"record not found", fmt.Errorf("campaign 3: %w", store.ErrNotFound), "NF001"},
		{"case insensitive", errors.New("DUPLICATE KEY value"), "DB001"},
		{"unknown", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapError(tt.err); got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_ValidationFailed(t *testing.T) {
	res := &importer.ValidationResult{}
	res.AddError(importer.ErrNoFieldsMatched)
	err := &ValidationFailedError{Result: res}

	if got := MapError(err).Code; got != "IMP002" {
		t.Errorf("code = %q, want IMP002", got)
	}
	if !errors.Is(err, importer.ErrNoFieldsMatched) {
		t.Error("ValidationFailedError should unwrap to the recorded problems")
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(importer.ErrNoFieldsMatched)
	want := "No CSV column was matched to a field (Code: IMP002). Match at least one column before importing"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"known", errors.New("duplicate key"), true},
		{"unknown", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	if got := NewUserError(nil); got != nil {
		t.Errorf("NewUserError(nil) = %v, want nil", got)
	}

	techErr := errors.New("pq: duplicate key value")
	userErr := NewUserError(techErr)
	if userErr.Error() != "A record with this identifier already exists" {
		t.Errorf("Error() = %q, want user message", userErr.Error())
	}
	if !errors.Is(userErr, techErr) {
		t.Error("Unwrap() should return original error")
	}
}
