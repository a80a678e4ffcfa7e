package importer

import "strings"

// Kind identifies the object kind an import run targets. It is the value
// found in the import route (e.g. /imports/companies).
type Kind string

const (
	KindCompanies Kind = "companies"
	KindContacts  Kind = "contacts"
)

// Object names used by the field catalog and the record models.
const (
	ObjectCompany = "company"
	ObjectLead    = "lead"
)

// ImportPermission is required to start an import of any kind.
const ImportPermission = "lead:imports:create"

// ParseKind normalizes a route value into a Kind. It does not check whether
// a handler exists for the kind; that is decided by the Orchestrator.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

func (k Kind) String() string {
	return string(k)
}
