package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTo initializes a run for kind and returns it with its orchestrator.
func runTo(t *testing.T, deps Deps, kind Kind) (*Orchestrator, *Event) {
	t.Helper()
	o, err := New(DefaultHandlers(deps))
	require.NoError(t, err)
	ev, err := o.Initialize(context.Background(), kind)
	require.NoError(t, err)
	return o, ev
}

func TestCompanyMapFields(t *testing.T) {
	o, ev := runTo(t, newTestDeps(), KindCompanies)

	mapping, err := o.MapFields(context.Background(), ev)
	require.NoError(t, err)

	want := FieldMapping{
		{Name: SectionCompany, Fields: []Field{
			{Alias: "companyname", Label: "Company Name"},
			{Alias: "companycity", Label: "City"},
			{Alias: "companyemail", Label: "Company Email"},
		}},
		{Name: SectionSpecial, Fields: []Field{
			{Alias: "dateAdded", Label: "Date Added"},
			{Alias: "createdByUser", Label: "Created By User"},
			{Alias: "dateModified", Label: "Date Modified"},
			{Alias: "modifiedByUser", Label: "Modified By User"},
		}},
	}
	if diff := cmp.Diff(want, mapping); diff != "" {
		t.Errorf("MapFields mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, mapping, ev.Fields())
}

func TestContactMapFields(t *testing.T) {
	o, ev := runTo(t, newTestDeps(), KindContacts)

	mapping, err := o.MapFields(context.Background(), ev)
	require.NoError(t, err)

	var names []string
	for _, s := range mapping {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{SectionContact, SectionCompany, SectionSpecial}, names)

	special, ok := mapping.Section(SectionSpecial)
	require.True(t, ok)
	assert.Len(t, special.Fields, 10)
	assert.Contains(t, mapping.Aliases(), "ownerusername")
}

func TestMapFields_CatalogError(t *testing.T) {
	deps := newTestDeps()
	deps.Catalog = &fakeCatalog{err: errBackend}
	o, ev := runTo(t, deps, KindCompanies)

	_, err := o.MapFields(context.Background(), ev)
	require.ErrorIs(t, err, errBackend)
}

func TestCompanyValidate(t *testing.T) {
	tests := []struct {
		name        string
		form        string
		wantMatched map[string]string
		wantErrs    []error
		wantMissing []string
		wantUnknown []string
	}{
		{
			name:        "empty form",
			form:        `{}`,
			wantMatched: map[string]string{},
			wantErrs:    []error{ErrNoFieldsMatched},
			wantMissing: []string{"companyname"},
		},
		{
			name:        "only reserved keys",
			form:        `{"owner": 5, "list": 3, "tags": ["vip"]}`,
			wantMatched: map[string]string{},
			wantErrs:    []error{ErrNoFieldsMatched},
			wantMissing: []string{"companyname"},
		},
		{
			name:        "blank and null values",
			form:        `{"Name": "   ", "City": "", "Email": null, "Flag": false}`,
			wantMatched: map[string]string{},
			wantErrs:    []error{ErrNoFieldsMatched},
			wantMissing: []string{"companyname"},
		},
		{
			name:        "trimmed mapping",
			form:        `{"Name": " companyname ", "City": "companycity\t", "Skip": ""}`,
			wantMatched: map[string]string{"Name": "companyname", "City": "companycity"},
		},
		{
			name:        "missing required",
			form:        `{"City": "companycity"}`,
			wantMatched: map[string]string{"City": "companycity"},
			wantMissing: []string{"companyname"},
		},
		{
			name:        "misspelled alias",
			form:        `{"Name": "companyname", "City": "compnaycity", "Town": "compnaycity"}`,
			wantMatched: map[string]string{"Name": "companyname"},
			wantUnknown: []string{"compnaycity"},
		},
		{
			name:        "unpublished and other object aliases",
			form:        `{"Legacy": "companylegacy", "Email": "email"}`,
			wantMatched: map[string]string{},
			wantErrs:    []error{ErrNoFieldsMatched},
			wantMissing: []string{"companyname"},
			wantUnknown: []string{"companylegacy", "email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ev := runTo(t, newTestDeps(), KindCompanies)

			res, err := o.Validate(context.Background(), ev, mustForm(t, tt.form))
			require.NoError(t, err)
			assert.Same(t, res, ev.Validation())

			if diff := cmp.Diff(tt.wantMatched, res.MatchedFields); diff != "" {
				t.Errorf("MatchedFields mismatch (-want +got):\n%s", diff)
			}
			for _, want := range tt.wantErrs {
				assert.ErrorIs(t, res.Err(), want)
			}

			var unknown *UnknownFieldsError
			if tt.wantUnknown == nil {
				assert.False(t, errors.As(res.Err(), &unknown), "unexpected unknown fields error")
			} else {
				require.ErrorAs(t, res.Err(), &unknown)
				assert.Equal(t, tt.wantUnknown, unknown.Aliases)
			}

			var missing *MissingRequiredFieldsError
			if tt.wantMissing == nil {
				assert.False(t, errors.As(res.Err(), &missing), "unexpected missing fields error")
				return
			}
			require.ErrorAs(t, res.Err(), &missing)
			assert.Equal(t, tt.wantMissing, missing.Aliases())
		})
	}
}

func TestContactValidate_UnknownAlias(t *testing.T) {
	o, ev := runTo(t, newTestDeps(), KindContacts)
	ctx := context.Background()

	res, err := o.Validate(ctx, ev, mustForm(t, `{"Email":"emial"}`))
	require.NoError(t, err)

	assert.False(t, res.Valid())
	assert.Empty(t, res.MatchedFields)
	assert.ErrorIs(t, res.Err(), ErrNoFieldsMatched)
	assert.Equal(t, []string{
		"Unknown field: emial",
		"Import failed - please match at least one field.",
		"Required field missing: Email",
	}, res.Messages(nil))

	_, err = o.Process(ctx, ev, Row{"Email": "a@example.com"})
	assert.ErrorIs(t, err, ErrNotValidated)
}

func TestContactValidate_AcceptsMappedSections(t *testing.T) {
	o, ev := runTo(t, newTestDeps(), KindContacts)
	ctx := context.Background()

	_, err := o.MapFields(ctx, ev)
	require.NoError(t, err)

	res, err := o.Validate(ctx, ev, mustForm(t, `{"Email":"email","Company":"companyname","Added":"dateAdded"}`))
	require.NoError(t, err)
	assert.True(t, res.Valid(), "errors: %v", res.Err())
	assert.Len(t, res.MatchedFields, 3)
}

func TestValidate_ValidWhenRequiredMapped(t *testing.T) {
	o, ev := runTo(t, newTestDeps(), KindCompanies)

	res, err := o.Validate(context.Background(), ev, mustForm(t, `{"Name":"companyname"}`))
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.NoError(t, res.Err())
}

func TestValidate_Messages(t *testing.T) {
	o, ev := runTo(t, newTestDeps(), KindCompanies)

	res, err := o.Validate(context.Background(), ev, mustForm(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Import failed - please match at least one field.",
		"Required field missing: Company Name",
	}, res.Messages(nil))
}

func TestMissingRequired_ReportsOnlyUnmapped(t *testing.T) {
	required := []Field{{Alias: "a", Label: "A"}, {Alias: "b", Label: "B"}}
	missing := missingRequired(required, map[string]string{"Column A": "a"})

	err := &MissingRequiredFieldsError{Fields: missing}
	assert.Equal(t, []string{"b"}, err.Aliases())
	assert.Equal(t, "missing required fields: B", err.Error())
	assert.Equal(t, "Required fields missing: A, B",
		errorMessage(&MissingRequiredFieldsError{Fields: required}, DefaultMessages))
}

func TestValidate_Tags(t *testing.T) {
	tests := []struct {
		name string
		tags string
		want []string
	}{
		{name: "non-tag values", tags: `[null, true, {"foo": 1}, "", 0]`, want: []string{}},
		{name: "not a list", tags: `"vip"`, want: []string{}},
		{name: "null", tags: `null`, want: []string{}},
		{name: "names objects and ids", tags: `["VIP", {"tag": "vip"}, 7, 99, {"id": 7}, " Lead "]`, want: []string{"VIP", "Partner", "Lead"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ev := runTo(t, newTestDeps(), KindContacts)

			res, err := o.Validate(context.Background(), ev, mustForm(t, `{"E":"email","tags":`+tt.tags+`}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Tags)
			assert.NotContains(t, res.MatchedFields, FormKeyTags)
		})
	}
}

func TestValidate_OwnerAndList(t *testing.T) {
	tests := []struct {
		name      string
		form      string
		wantOwner *Owner
		wantList  *int64
	}{
		{name: "numeric ids", form: `{"owner": 5, "list": 3}`, wantOwner: &Owner{ID: 5, Username: "admin"}, wantList: ptr(int64(3))},
		{name: "string and object refs", form: `{"owner": {"id": "5"}, "list": "3"}`, wantOwner: &Owner{ID: 5, Username: "admin"}, wantList: ptr(int64(3))},
		{name: "unknown references", form: `{"owner": 6, "list": 4}`},
		{name: "garbage", form: `{"owner": "abc", "list": [1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ev := runTo(t, newTestDeps(), KindCompanies)

			res, err := o.Validate(context.Background(), ev, mustForm(t, tt.form))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, res.Owner)
			assert.Equal(t, tt.wantList, res.ListID)
		})
	}
}

func TestCompanyProcess_ReportsMerge(t *testing.T) {
	deps := newTestDeps()
	model := &fakeModel{mergeAlias: "companyname", existing: map[string]bool{"Acme": true}}
	deps.Companies = model
	o, ev := runTo(t, deps, KindCompanies)
	ctx := context.Background()

	_, err := o.Validate(ctx, ev, mustForm(t, `{"Name":"companyname","owner":5,"list":3,"tags":["vip"]}`))
	require.NoError(t, err)

	res, err := o.Process(ctx, ev, Row{"Name": "Acme"})
	require.NoError(t, err)
	assert.True(t, res.Merged)

	res, err = o.Process(ctx, ev, Row{"Name": "Newco"})
	require.NoError(t, err)
	assert.False(t, res.Merged)

	require.Len(t, model.requests, 2)
	req := model.requests[0]
	assert.Equal(t, ObjectCompany, req.Object)
	assert.Equal(t, map[string]string{"Name": "companyname"}, req.MatchedFields)
	assert.Equal(t, int64(5), req.Owner.ID)
	assert.Nil(t, req.ListID, "companies ignore the list")
	assert.Nil(t, req.Tags, "companies ignore tags")
}

func TestContactProcess_PassesListAndTags(t *testing.T) {
	deps := newTestDeps()
	model := &fakeModel{mergeAlias: "email"}
	deps.Contacts = model
	o, ev := runTo(t, deps, KindContacts)
	ctx := context.Background()

	_, err := o.Validate(ctx, ev, mustForm(t, `{"E-mail":"email","list":3,"tags":["vip"]}`))
	require.NoError(t, err)

	_, err = o.Process(ctx, ev, Row{"E-mail": "a@example.com"})
	require.NoError(t, err)

	require.Len(t, model.requests, 1)
	assert.Equal(t, ObjectLead, model.requests[0].Object)
	assert.Equal(t, ptr(int64(3)), model.requests[0].ListID)
	assert.Equal(t, []string{"vip"}, model.requests[0].Tags)
}

func TestProcess_ModelError(t *testing.T) {
	deps := newTestDeps()
	deps.Companies = &fakeModel{err: errBackend}
	o, ev := runTo(t, deps, KindCompanies)
	ctx := context.Background()

	_, err := o.Validate(ctx, ev, mustForm(t, `{"Name":"companyname"}`))
	require.NoError(t, err)

	_, err = o.Process(ctx, ev, Row{"Name": "Acme"})
	require.ErrorIs(t, err, errBackend)
}

func TestHandler_DeclinesOtherKinds(t *testing.T) {
	h := NewCompanyHandler(newTestDeps())
	ev := newEvent(KindContacts)
	ctx := context.Background()

	d, err := h.Initialize(ctx, ev)
	require.NoError(t, err)
	_, claimed := d.Claimed()
	assert.False(t, claimed)

	v, err := h.Validate(ctx, ev, mustForm(t, `{}`))
	require.NoError(t, err)
	_, claimed = v.Claimed()
	assert.False(t, claimed)
	assert.False(t, ev.Claimed())
	assert.Nil(t, ev.Validation())
}

func ptr[T any](v T) *T { return &v }
