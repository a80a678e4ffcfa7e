package importer

import (
	"context"
	"errors"
	"sync"
)

type catalogEntry struct {
	Field
	object    string
	published bool
	required  bool
}

type fakeCatalog struct {
	entries []catalogEntry
	err     error
}

func (c *fakeCatalog) GetFields(_ context.Context, q FieldQuery) ([]Field, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []Field
	for _, e := range c.entries {
		if q.Object != "" && e.object != q.Object {
			continue
		}
		if q.PublishedOnly && !e.published {
			continue
		}
		if q.RequiredOnly && !e.required {
			continue
		}
		out = append(out, e.Field)
	}
	return out, nil
}

type fakePermissions map[string]bool

func (p fakePermissions) IsGranted(_ context.Context, permission string) bool {
	return p[permission]
}

type fakeOwners map[int64]*Owner

func (o fakeOwners) LookupOwner(_ context.Context, id int64) (*Owner, error) {
	return o[id], nil
}

type fakeLists map[int64]bool

func (l fakeLists) ListExists(_ context.Context, id int64) (bool, error) {
	return l[id], nil
}

type fakeTags map[int64]string

func (t fakeTags) TagNames(_ context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	for _, id := range ids {
		if n, ok := t[id]; ok {
			out[id] = n
		}
	}
	return out, nil
}

// fakeModel merges when the value mapped to mergeAlias is already known.
type fakeModel struct {
	mergeAlias string
	existing   map[string]bool
	err        error

	mu       sync.Mutex
	requests []ImportRequest
}

func (m *fakeModel) Import(_ context.Context, req ImportRequest) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return false, m.err
	}
	for header, alias := range req.MatchedFields {
		if alias == m.mergeAlias {
			key := req.Row[header]
			merged := m.existing[key]
			if m.existing == nil {
				m.existing = map[string]bool{}
			}
			m.existing[key] = true
			return merged, nil
		}
	}
	return false, nil
}

func newTestCatalog() *fakeCatalog {
	return &fakeCatalog{entries: []catalogEntry{
		{Field: Field{Alias: "companyname", Label: "Company Name"}, object: ObjectCompany, published: true, required: true},
		{Field: Field{Alias: "companycity", Label: "City"}, object: ObjectCompany, published: true},
		{Field: Field{Alias: "companyemail", Label: "Company Email"}, object: ObjectCompany, published: true},
		{Field: Field{Alias: "companylegacy", Label: "Legacy"}, object: ObjectCompany, published: false, required: true},
		{Field: Field{Alias: "firstname", Label: "First Name"}, object: ObjectLead, published: true},
		{Field: Field{Alias: "email", Label: "Email"}, object: ObjectLead, published: true, required: true},
	}}
}

func newTestDeps() Deps {
	return Deps{
		Permissions: fakePermissions{ImportPermission: true},
		Catalog:     newTestCatalog(),
		Owners:      fakeOwners{5: {ID: 5, Username: "admin"}},
		Lists:       fakeLists{3: true},
		Tags:        fakeTags{7: "Partner"},
		Companies:   &fakeModel{mergeAlias: "companyname"},
		Contacts:    &fakeModel{mergeAlias: "email"},
	}
}

// spyHandler claims every stage for its kind and records how often each
// stage was offered.
type spyHandler struct {
	kind     Kind
	claimAll bool
	panicIn  map[Stage]bool
	errIn    map[Stage]error

	mu    sync.Mutex
	calls map[Stage]int
}

func newSpy(kind Kind) *spyHandler {
	return &spyHandler{kind: kind, calls: map[Stage]int{}}
}

func (s *spyHandler) Kind() Kind { return s.kind }

func (s *spyHandler) Calls(stage Stage) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[stage]
}

func (s *spyHandler) enter(stage Stage, ev *Event) (bool, error) {
	s.mu.Lock()
	s.calls[stage]++
	s.mu.Unlock()
	if s.panicIn[stage] {
		panic("boom")
	}
	if err := s.errIn[stage]; err != nil {
		return false, err
	}
	return s.claimAll || ev.IsFor(s.kind), nil
}

func (s *spyHandler) Initialize(_ context.Context, ev *Event) (Result[Display], error) {
	ok, err := s.enter(StageInitialize, ev)
	if !ok || err != nil {
		return Decline[Display](), err
	}
	return Claim(Display{ObjectSingular: string(s.kind)}), nil
}

func (s *spyHandler) MapFields(_ context.Context, ev *Event) (Result[FieldMapping], error) {
	ok, err := s.enter(StageMapFields, ev)
	if !ok || err != nil {
		return Decline[FieldMapping](), err
	}
	return Claim(FieldMapping{{Name: string(s.kind)}}), nil
}

func (s *spyHandler) Validate(_ context.Context, ev *Event, _ *Form) (Result[*ValidationResult], error) {
	ok, err := s.enter(StageValidate, ev)
	if !ok || err != nil {
		return Decline[*ValidationResult](), err
	}
	res := newValidationResult()
	res.MatchedFields["Name"] = "name"
	return Claim(res), nil
}

func (s *spyHandler) Process(_ context.Context, ev *Event, _ Row) (Result[ProcessResult], error) {
	ok, err := s.enter(StageProcess, ev)
	if !ok || err != nil {
		return Decline[ProcessResult](), err
	}
	return Claim(ProcessResult{Merged: true}), nil
}

var errBackend = errors.New("backend unavailable")
