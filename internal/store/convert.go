package store

// convert.go turns raw CSV cell values into typed values.
//
// Imported spreadsheets carry the usual noise: US, EU and ISO dates, currency
// symbols and thousands separators, yes/no booleans. The ToPg* helpers return
// pgtype values with Valid=false for empty or unparseable input.

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/crmimport/internal/catalog"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
	dateTimeLayouts = []string{
		time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"1/2/2006 15:04:05", "1/2/2006 15:04", "01/02/2006 3:04 PM",
	}
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a string to pgtype.Date.
// Four digit years are tried first; two digit years use TwoDigitYearPivot.
func ToPgDate(s string) pgtype.Date {
	t, ok := parseDate(s)
	if !ok {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ToPgTimestamptz converts a string to pgtype.Timestamptz. Values without a
// zone are read as UTC; plain dates are midnight UTC.
func ToPgTimestamptz(s string) pgtype.Timestamptz {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamptz{Valid: false}
	}

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
		}
	}
	if t, ok := parseDate(s); ok {
		return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
	}
	return pgtype.Timestamptz{Valid: false}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}

	return n
}

// ToPgBool converts a string to pgtype.Bool.
// Accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func ToPgBool(s string) pgtype.Bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return pgtype.Bool{Valid: false}
	}

	switch s {
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// FieldValueError reports a cell that does not parse as its field's type.
type FieldValueError struct {
	Alias string
	Type  catalog.FieldType
	Value string
}

func (e *FieldValueError) Error() string {
	return fmt.Sprintf("%s: invalid %s value %q", e.Alias, e.Type, e.Value)
}

// fieldValue converts raw to the JSON value stored for def.
func fieldValue(def catalog.FieldDefinition, raw string) (any, error) {
	invalid := &FieldValueError{Alias: def.Alias, Type: def.Type, Value: raw}

	switch def.Type {
	case catalog.TypeNumber:
		n := ToPgNumeric(raw)
		if !n.Valid {
			return nil, invalid
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil, invalid
		}
		return f.Float64, nil

	case catalog.TypeBoolean:
		b := ToPgBool(raw)
		if !b.Valid {
			return nil, invalid
		}
		return b.Bool, nil

	case catalog.TypeDate:
		d := ToPgDate(raw)
		if !d.Valid {
			return nil, invalid
		}
		return d.Time.Format("2006-01-02"), nil

	case catalog.TypeDateTime:
		ts := ToPgTimestamptz(raw)
		if !ts.Valid {
			return nil, invalid
		}
		return ts.Time.Format(time.RFC3339), nil

	case catalog.TypeEmail:
		email := strings.ToLower(strings.TrimSpace(raw))
		at := strings.LastIndex(email, "@")
		if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t") {
			return nil, invalid
		}
		return email, nil

	case catalog.TypeSelect:
		if len(def.Options) == 0 {
			return raw, nil
		}
		for _, opt := range def.Options {
			if strings.EqualFold(opt, raw) {
				return opt, nil
			}
		}
		return nil, invalid

	default:
		return raw, nil
	}
}
