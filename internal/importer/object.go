package importer

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"
)

// sectionSource is a mapping section filled from the catalog.
type sectionSource struct {
	name   string
	object string
}

// definition describes how one object kind is imported.
type definition struct {
	kind       Kind
	object     string
	permission string
	display    Display
	sections   []sectionSource
	special    []string

	// listAndTags passes the resolved list and tags on to the model.
	listAndTags bool
}

// objectHandler implements Handler for a definition. The exported handler
// types embed it.
type objectHandler struct {
	def   definition
	deps  Deps
	model Model
}

func newObjectHandler(def definition, deps Deps, model Model) objectHandler {
	if deps.Translator == nil {
		deps.Translator = DefaultMessages
	}
	return objectHandler{def: def, deps: deps, model: model}
}

func (h *objectHandler) Kind() Kind {
	return h.def.kind
}

func (h *objectHandler) Initialize(ctx context.Context, ev *Event) (Result[Display], error) {
	if !ev.IsFor(h.def.kind) {
		return Decline[Display](), nil
	}
	if h.deps.Permissions == nil || !h.deps.Permissions.IsGranted(ctx, h.def.permission) {
		return Decline[Display](), fmt.Errorf("%w: importing %s requires %s", ErrPermissionDenied, h.def.kind, h.def.permission)
	}
	return Claim(h.def.display), nil
}

func (h *objectHandler) MapFields(ctx context.Context, ev *Event) (Result[FieldMapping], error) {
	if !ev.IsFor(h.def.kind) {
		return Decline[FieldMapping](), nil
	}
	mapping, err := h.fieldMapping(ctx)
	if err != nil {
		return Decline[FieldMapping](), err
	}
	return Claim(mapping), nil
}

func (h *objectHandler) fieldMapping(ctx context.Context) (FieldMapping, error) {
	mapping := make(FieldMapping, 0, len(h.def.sections)+1)
	for _, src := range h.def.sections {
		fields, err := h.deps.Catalog.GetFields(ctx, FieldQuery{Object: src.object, PublishedOnly: true})
		if err != nil {
			return nil, fmt.Errorf("load %s fields: %w", src.object, err)
		}
		mapping = append(mapping, FieldSection{Name: src.name, Fields: fields})
	}
	mapping = append(mapping, FieldSection{
		Name:   SectionSpecial,
		Fields: specialFields(h.def.special, h.deps.Translator),
	})
	return mapping, nil
}

func (h *objectHandler) Validate(ctx context.Context, ev *Event, form *Form) (Result[*ValidationResult], error) {
	if !ev.IsFor(h.def.kind) {
		return Decline[*ValidationResult](), nil
	}

	fields := form.clone()
	res := newValidationResult()

	if v, ok := fields.pick(FormKeyOwner); ok {
		owner, err := h.resolveOwner(ctx, v)
		if err != nil {
			return Decline[*ValidationResult](), err
		}
		res.Owner = owner
	}
	if v, ok := fields.pick(FormKeyList); ok {
		listID, err := h.resolveList(ctx, v)
		if err != nil {
			return Decline[*ValidationResult](), err
		}
		res.ListID = listID
	}
	if v, ok := fields.pick(FormKeyTags); ok {
		tags, err := h.resolveTags(ctx, tagRefs(v))
		if err != nil {
			return Decline[*ValidationResult](), err
		}
		res.Tags = tags
	}

	// Only aliases offered by the map-fields stage can be matched.
	mapping := ev.Fields()
	if mapping == nil {
		var err error
		if mapping, err = h.fieldMapping(ctx); err != nil {
			return Decline[*ValidationResult](), err
		}
	}
	matched, unknown := knownFields(fields.matchedFields(), mapping)
	res.MatchedFields = matched
	if len(unknown) > 0 {
		res.AddError(&UnknownFieldsError{Aliases: unknown})
	}
	if len(res.MatchedFields) == 0 {
		res.AddError(ErrNoFieldsMatched)
	}

	required, err := h.deps.Catalog.GetFields(ctx, FieldQuery{
		Object:        h.def.object,
		PublishedOnly: true,
		RequiredOnly:  true,
	})
	if err != nil {
		return Decline[*ValidationResult](), fmt.Errorf("load required %s fields: %w", h.def.object, err)
	}
	if missing := missingRequired(required, res.MatchedFields); len(missing) > 0 {
		res.AddError(&MissingRequiredFieldsError{Fields: missing})
	}

	return Claim(res), nil
}

func (h *objectHandler) Process(ctx context.Context, ev *Event, row Row) (Result[ProcessResult], error) {
	if !ev.IsFor(h.def.kind) {
		return Decline[ProcessResult](), nil
	}

	v := ev.Validation()
	if v == nil {
		return Decline[ProcessResult](), ErrNotValidated
	}
	req := ImportRequest{
		Object:        h.def.object,
		MatchedFields: v.MatchedFields,
		Row:           row,
		Owner:         v.Owner,
	}
	if h.def.listAndTags {
		req.ListID = v.ListID
		req.Tags = v.Tags
	}

	merged, err := h.model.Import(ctx, req)
	if err != nil {
		return Decline[ProcessResult](), fmt.Errorf("import %s: %w", h.def.object, err)
	}
	return Claim(ProcessResult{Merged: merged}), nil
}

func (h *objectHandler) resolveOwner(ctx context.Context, v gjson.Result) (*Owner, error) {
	id, ok := referenceID(v)
	if !ok || h.deps.Owners == nil {
		return nil, nil
	}
	owner, err := h.deps.Owners.LookupOwner(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("resolve owner %d: %w", id, err)
	}
	return owner, nil
}

func (h *objectHandler) resolveList(ctx context.Context, v gjson.Result) (*int64, error) {
	id, ok := referenceID(v)
	if !ok {
		return nil, nil
	}
	if h.deps.Lists != nil {
		exists, err := h.deps.Lists.ListExists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve list %d: %w", id, err)
		}
		if !exists {
			return nil, nil
		}
	}
	return &id, nil
}

func (h *objectHandler) resolveTags(ctx context.Context, refs []tagRef) ([]string, error) {
	var ids []int64
	for _, r := range refs {
		if r.name == "" && r.id > 0 {
			ids = append(ids, r.id)
		}
	}

	var byID map[int64]string
	if len(ids) > 0 && h.deps.Tags != nil {
		var err error
		if byID, err = h.deps.Tags.TagNames(ctx, ids); err != nil {
			return nil, fmt.Errorf("resolve tags: %w", err)
		}
	}

	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.name != "" {
			names = append(names, r.name)
		} else if n, ok := byID[r.id]; ok {
			names = append(names, n)
		}
	}
	return normalizeTags(names), nil
}
