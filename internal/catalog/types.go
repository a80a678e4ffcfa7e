// Package catalog holds the importable field definitions of each CRM object.
//
// Built-in objects register themselves from the objects subpackage (blank
// import it from main). Deployments can add custom fields or override labels,
// publication and required flags with a YAML file loaded by Catalog.LoadFile.
package catalog

// FieldType is the value type of a field. It decides how raw CSV values are
// converted before they are stored.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeEmail    FieldType = "email"
	TypePhone    FieldType = "tel"
	TypeURL      FieldType = "url"
	TypeNumber   FieldType = "number"
	TypeBoolean  FieldType = "boolean"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "datetime"
	TypeSelect   FieldType = "select"
	TypeCountry  FieldType = "country"
	TypeLocale   FieldType = "locale"
	TypeTimezone FieldType = "timezone"
)

// FieldDefinition describes one field of an object.
type FieldDefinition struct {
	Alias     string    `yaml:"alias"`
	Label     string    `yaml:"label"`
	Object    string    `yaml:"object"`
	Group     string    `yaml:"group"`
	Type      FieldType `yaml:"type"`
	Required  bool      `yaml:"required"`
	Published bool      `yaml:"published"`

	// Unique fields together identify an existing record when importing.
	Unique bool `yaml:"unique"`

	// Options lists the allowed values of select fields.
	Options []string `yaml:"options"`
}

// ObjectDefinition is the built-in field set of one object.
type ObjectDefinition struct {
	Name   string
	Label  string
	Table  string
	Fields []FieldDefinition
}
