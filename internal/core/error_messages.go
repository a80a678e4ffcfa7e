package core

// Coded user messages. Users quote the code to support; support looks the
// code up in errorPatterns to see what triggered it. ERR000 means no pattern
// matched and the technical error is only in the server log.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are matched case-insensitively against the error text. The
// first match wins, so specific patterns come before general ones
// ("missing required fields" before "required field", "import timeout"
// before "timeout").
var errorPatterns = []errorPattern{
	// Authorization (AUTH)
	{"permission denied", UserMessage{Message: "You do not have permission for this action", Action: "Ask an administrator for the required permission", Code: "AUTH001"}},
	{"bearer token", UserMessage{Message: "Your session is missing or has expired", Action: "Sign in again and retry", Code: "AUTH002"}},
	// Import pipeline (IMP)
	{"unsupported import kind", UserMessage{Message: "This kind of import is not supported", Action: "Import companies or contacts", Code: "IMP001"}},
	{"no fields matched", UserMessage{Message: "No CSV column was matched to a field", Action: "Match at least one column before importing", Code: "IMP002"}},
	{"missing required fields", UserMessage{Message: "Required fields are not matched", Action: "Match a column to every required field", Code: "IMP003"}},
	{"import not validated", UserMessage{Message: "The import has not been validated", Action: "Validate the field mapping before importing", Code: "IMP004"}},
	{"invalid import form", UserMessage{Message: "The field mapping could not be read", Action: "Send the mapping as a JSON object", Code: "IMP005"}},
	{"import not found", UserMessage{Message: "Import not found", Action: "The import may have expired. Please start a new import", Code: "IMP006"}},
	{"unknown fields", UserMessage{Message: "A column is matched to a field that does not exist", Action: "Pick fields from the list returned for this import", Code: "IMP007"}},
	// Database (DB)
	{"duplicate key", UserMessage{Message: "A record with this identifier already exists", Action: "Download failed rows to review duplicates", Code: "DB001"}},
	{"unique constraint", UserMessage{Message: "This value must be unique but already exists", Action: "Check for duplicate entries in your CSV", Code: "DB002"}},
	{"violates unique", UserMessage{Message: "A duplicate value was found", Action: "Review your data for duplicate identifiers", Code: "DB002"}},
	{"foreign key constraint", UserMessage{Message: "Referenced record does not exist", Action: "Check owner, list and company references", Code: "DB003"}},
	{"violates foreign key", UserMessage{Message: "Referenced record does not exist", Action: "Check owner, list and company references", Code: "DB003"}},
	{"connection refused", UserMessage{Message: "Unable to connect to database", Action: "Please try again in a few moments", Code: "DB004"}},
	{"connection reset", UserMessage{Message: "Database connection was interrupted", Action: "Please try again", Code: "DB005"}},
	{"import timeout", UserMessage{Message: "The import took too long and was stopped", Action: "Split the file into smaller imports", Code: "UPL005"}},
	{"timeout", UserMessage{Message: "Operation timed out", Action: "Try importing a smaller file or try again later", Code: "DB006"}},
	{"deadlock", UserMessage{Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"}},
	// Validation (VAL)
	{"invalid date", UserMessage{Message: "Invalid date format detected", Action: "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024", Code: "VAL001"}},
	{"invalid number", UserMessage{Message: "Invalid number format detected", Action: "Remove currency symbols and use standard decimal format", Code: "VAL002"}},
	{"required field", UserMessage{Message: "Required field is empty", Action: "Ensure all required columns have values", Code: "VAL003"}},
	{"invalid select", UserMessage{Message: "Value is not in the allowed list", Action: "Check the allowed values for this field", Code: "VAL006"}},
	{"invalid email", UserMessage{Message: "Invalid email address", Action: "Check the email column for typos", Code: "VAL007"}},
	{"invalid boolean", UserMessage{Message: "Invalid yes/no value", Action: "Use 1/0, yes/no or true/false", Code: "VAL008"}},
	{"invalid fields", UserMessage{Message: "The custom field file is invalid", Action: "Fix the reported entries in the field file", Code: "VAL009"}},
	// File (FILE)
	{"file too large", UserMessage{Message: "File exceeds the maximum size limit", Action: "Split the file into smaller chunks", Code: "FILE001"}},
	{"invalid csv", UserMessage{Message: "File is not a valid CSV", Action: "Ensure file is comma-separated with consistent columns", Code: "FILE002"}},
	{"encoding error", UserMessage{Message: "File contains invalid characters", Action: "Save file as UTF-8 encoding", Code: "FILE003"}},
	{"no file provided", UserMessage{Message: "No file was selected", Action: "Please select a CSV file to import", Code: "FILE004"}},
	{"empty file", UserMessage{Message: "The uploaded file is empty", Action: "Please upload a CSV file with a header and data rows", Code: "FILE005"}},
	// Import run (UPL)
	{"import cancelled", UserMessage{Message: "Import was cancelled", Action: "Start a new import when ready", Code: "UPL001"}},
	{"too many imports", UserMessage{Message: "System is busy processing other imports", Action: "Please wait a moment and try again", Code: "UPL002"}},
	{"context canceled", UserMessage{Message: "Request was cancelled", Action: "Please try again", Code: "UPL004"}},
	{"context deadline exceeded", UserMessage{Message: "Request timed out", Action: "Try importing a smaller file or check your connection", Code: "UPL005"}},
	// Rate limiting
	{"rate limit", UserMessage{Message: "Too many requests", Action: "Please wait a moment before trying again", Code: "RATE001"}},
	// Lookups
	{"not found", UserMessage{Message: "The requested record was not found", Action: "Check the id and try again", Code: "NF001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. Unmatched
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	text := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(text, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown for it.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. It returns nil for a nil error.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
