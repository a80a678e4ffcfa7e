package importer

import "strings"

// Translator resolves message keys to display text.
type Translator interface {
	Trans(key string, params map[string]string) string
}

// Messages is a map-backed Translator. Placeholders in the form %name% are
// replaced from params. Unknown keys are returned unchanged.
type Messages map[string]string

func (m Messages) Trans(key string, params map[string]string) string {
	msg, ok := m[key]
	if !ok {
		msg = key
	}
	for k, v := range params {
		msg = strings.ReplaceAll(msg, k, v)
	}
	return msg
}

// Message keys used by the validate stage.
const (
	MsgMatchFields           = "mautic.lead.import.matchfields"
	MsgMissingRequiredFields = "mautic.import.missing.required.fields"
	MsgUnknownFields         = "mautic.lead.import.unknown.fields"
	paramUnknownFields       = "%unknownFields%"
	paramRequiredFields      = "%requiredFields%"
	paramFieldOrFields       = "%fieldOrFields%"
)

// DefaultMessages holds the English texts.
var DefaultMessages = Messages{
	MsgMatchFields:           "Import failed - please match at least one field.",
	MsgMissingRequiredFields: "Required %fieldOrFields% missing: %requiredFields%",
	MsgUnknownFields:         "Unknown %fieldOrFields%: %unknownFields%",

	"mautic.lead.lead.companies": "Companies",
	"mautic.lead.leads":          "Contacts",
	SectionCompany:               "Company",
	SectionContact:               "Contact",
	SectionSpecial:               "Special Fields",

	"mautic.lead.import.label.dateAdded":      "Date Added",
	"mautic.lead.import.label.createdByUser":  "Created By User",
	"mautic.lead.import.label.dateModified":   "Date Modified",
	"mautic.lead.import.label.modifiedByUser": "Modified By User",
	"mautic.lead.import.label.lastActive":     "Last Active",
	"mautic.lead.import.label.dateIdentified": "Date Identified",
	"mautic.lead.import.label.ip":             "IP Address",
	"mautic.lead.import.label.stage":          "Stage",
	"mautic.lead.import.label.doNotEmail":     "Do Not Email",
	"mautic.lead.import.label.ownerusername":  "Owner Username",
}
