package importer

import "context"

// Row is one CSV data row keyed by column header.
type Row map[string]string

// ProcessResult is the outcome of importing one row.
type ProcessResult struct {
	Merged bool `json:"merged"`
}

// Handler owns all four stages for one object kind. Each method returns
// Decline when the event targets another kind.
type Handler interface {
	Kind() Kind
	Initialize(ctx context.Context, ev *Event) (Result[Display], error)
	MapFields(ctx context.Context, ev *Event) (Result[FieldMapping], error)
	Validate(ctx context.Context, ev *Event, form *Form) (Result[*ValidationResult], error)
	Process(ctx context.Context, ev *Event, row Row) (Result[ProcessResult], error)
}

// Permissions answers whether the caller in ctx holds a permission.
type Permissions interface {
	IsGranted(ctx context.Context, permission string) bool
}

// ImportRequest carries one row to a Model.
type ImportRequest struct {
	Object        string
	MatchedFields map[string]string
	Row           Row
	Owner         *Owner
	ListID        *int64
	Tags          []string
}

// Model creates or updates the record described by an ImportRequest and
// reports whether an existing record was merged.
type Model interface {
	Import(ctx context.Context, req ImportRequest) (merged bool, err error)
}

// OwnerResolver looks up a user by id. It returns nil, nil when the user
// does not exist.
type OwnerResolver interface {
	LookupOwner(ctx context.Context, id int64) (*Owner, error)
}

// ListResolver checks that a segment list exists.
type ListResolver interface {
	ListExists(ctx context.Context, id int64) (bool, error)
}

// TagResolver maps tag ids to tag names. Unknown ids are left out.
type TagResolver interface {
	TagNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Deps are the collaborators shared by the built-in handlers. Owners, Lists
// and Tags are optional; without them the matching references are dropped.
type Deps struct {
	Permissions Permissions
	Catalog     FieldCatalog
	Owners      OwnerResolver
	Lists       ListResolver
	Tags        TagResolver
	Companies   Model
	Contacts    Model
	Translator  Translator
}

// DefaultHandlers returns one handler per supported kind, companies first.
func DefaultHandlers(deps Deps) []Handler {
	return []Handler{
		NewCompanyHandler(deps),
		NewContactHandler(deps),
	}
}
