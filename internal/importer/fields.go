package importer

import "context"

// Section names used in a FieldMapping.
const (
	SectionCompany = "mautic.lead.company"
	SectionContact = "mautic.lead.contact"
	SectionSpecial = "mautic.lead.special_fields"
)

// Field is one importable field: its alias (stored in the matched-field
// mapping) and its display label.
type Field struct {
	Alias string `json:"alias"`
	Label string `json:"label"`
}

// FieldSection is a labelled group of fields.
type FieldSection struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// FieldMapping is the ordered list of sections a CSV column can be mapped to.
type FieldMapping []FieldSection

// Section returns the section with the given name.
func (m FieldMapping) Section(name string) (FieldSection, bool) {
	for _, s := range m {
		if s.Name == name {
			return s, true
		}
	}
	return FieldSection{}, false
}

// Aliases returns every field alias across all sections, in order.
func (m FieldMapping) Aliases() []string {
	var out []string
	for _, s := range m {
		for _, f := range s.Fields {
			out = append(out, f.Alias)
		}
	}
	return out
}

// FieldQuery filters a FieldCatalog lookup.
type FieldQuery struct {
	Object        string
	PublishedOnly bool
	RequiredOnly  bool
}

// FieldCatalog provides the importable fields of an object.
type FieldCatalog interface {
	GetFields(ctx context.Context, q FieldQuery) ([]Field, error)
}

// Special fields are not catalog fields but can always be mapped.
var (
	companySpecialFields = []string{"dateAdded", "createdByUser", "dateModified", "modifiedByUser"}
	contactSpecialFields = []string{
		"dateAdded", "createdByUser", "dateModified", "modifiedByUser",
		"lastActive", "dateIdentified", "ip", "stage", "doNotEmail", "ownerusername",
	}
)

// SpecialFieldLabelKey returns the translation key of a special field label.
func SpecialFieldLabelKey(alias string) string {
	return "mautic.lead.import.label." + alias
}

func specialFields(aliases []string, t Translator) []Field {
	out := make([]Field, len(aliases))
	for i, a := range aliases {
		out[i] = Field{Alias: a, Label: t.Trans(SpecialFieldLabelKey(a), nil)}
	}
	return out
}

// IsSpecialField reports whether alias is one of the fixed special fields.
func IsSpecialField(alias string) bool {
	for _, a := range contactSpecialFields {
		if a == alias {
			return true
		}
	}
	return false
}
