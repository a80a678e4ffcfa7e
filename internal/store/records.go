package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/JonMunkholm/crmimport/internal/catalog"
	"github.com/JonMunkholm/crmimport/internal/importer"
)

// specialColumn stores a special import field in its own column.
type specialColumn struct {
	name    string
	convert func(string) (any, bool)
}

func timestampColumn(name string) specialColumn {
	return specialColumn{name: name, convert: func(s string) (any, bool) {
		ts := ToPgTimestamptz(s)
		return ts, ts.Valid
	}}
}

func textColumn(name string) specialColumn {
	return specialColumn{name: name, convert: func(s string) (any, bool) {
		t := ToPgText(s)
		return t, t.Valid
	}}
}

func boolColumn(name string) specialColumn {
	return specialColumn{name: name, convert: func(s string) (any, bool) {
		b := ToPgBool(s)
		return b, b.Valid
	}}
}

var commonSpecialColumns = map[string]specialColumn{
	"dateAdded":      timestampColumn("date_added"),
	"createdByUser":  textColumn("created_by_user"),
	"dateModified":   timestampColumn("date_modified"),
	"modifiedByUser": textColumn("modified_by_user"),
}

var specialColumns = map[string]map[string]specialColumn{
	importer.ObjectCompany: commonSpecialColumns,
	importer.ObjectLead: merge(commonSpecialColumns, map[string]specialColumn{
		"lastActive":     timestampColumn("last_active"),
		"dateIdentified": timestampColumn("date_identified"),
		"ip":             textColumn("ip_address"),
		"stage":          textColumn("stage"),
		"doNotEmail":     boolColumn("do_not_email"),
	}),
}

func merge(a, b map[string]specialColumn) map[string]specialColumn {
	out := make(map[string]specialColumn, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// insertOnlyColumns keep their first value when a record is merged.
var insertOnlyColumns = map[string]bool{
	"unique_key":      true,
	"fields":          true,
	"date_added":      true,
	"created_by_user": true,
}

const aliasOwnerUsername = "ownerusername"

// record is one row ready to be written.
type record struct {
	object        string
	fields        map[string]any
	columns       map[string]any
	uniqueKey     *string
	ownerUsername string
	company       *record
}

func newRecord(object string) *record {
	return &record{object: object, fields: make(map[string]any), columns: make(map[string]any)}
}

// buildRecord converts an import request into a record of object. Aliases
// unknown to the catalog are ignored. When withCompany is set, company field
// aliases are collected into a linked company record.
func buildRecord(c *catalog.Catalog, object string, req importer.ImportRequest, withCompany bool) (*record, error) {
	rec := newRecord(object)
	var company *record
	if withCompany {
		company = newRecord(importer.ObjectCompany)
	}

	headers := make([]string, 0, len(req.MatchedFields))
	for h := range req.MatchedFields {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	for _, header := range headers {
		alias := req.MatchedFields[header]
		raw := strings.TrimSpace(req.Row[header])
		if raw == "" {
			continue
		}

		if col, ok := specialColumns[object][alias]; ok {
			v, valid := col.convert(raw)
			if !valid {
				return nil, &FieldValueError{Alias: alias, Type: catalog.TypeText, Value: raw}
			}
			rec.columns[col.name] = v
			continue
		}
		if alias == aliasOwnerUsername && object == importer.ObjectLead {
			rec.ownerUsername = raw
			continue
		}

		target := rec
		def, ok := c.Definition(object, alias)
		if !ok && company != nil {
			def, ok = c.Definition(importer.ObjectCompany, alias)
			target = company
		}
		if !ok {
			continue
		}

		v, err := fieldValue(def, raw)
		if err != nil {
			return nil, err
		}
		target.fields[alias] = v
	}

	rec.uniqueKey = uniqueKey(c.UniqueAliases(object), rec.fields)
	if company != nil {
		company.uniqueKey = uniqueKey(c.UniqueAliases(importer.ObjectCompany), company.fields)
		if company.uniqueKey != nil {
			rec.company = company
		}
	}
	return rec, nil
}

// uniqueKey joins the lowercased values of aliases with "|". It is nil when
// any of them is missing.
func uniqueKey(aliases []string, fields map[string]any) *string {
	if len(aliases) == 0 {
		return nil
	}
	parts := make([]string, len(aliases))
	for i, a := range aliases {
		v, ok := fields[a]
		if !ok {
			return nil
		}
		parts[i] = strings.ToLower(fmt.Sprint(v))
	}
	key := strings.Join(parts, "|")
	return &key
}

// upsertSQL builds the insert-or-merge statement for table. Merged rows keep
// their existing field values unless the import provides a new one.
func upsertSQL(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	quoted := make([]string, len(columns))
	var updates []string
	hasModified := false

	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		quoted[i] = pq.QuoteIdentifier(col)
		if col == "date_modified" {
			hasModified = true
		}
		if !insertOnlyColumns[col] {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoted[i], quoted[i]))
		}
	}
	updates = append([]string{"fields = t.fields || EXCLUDED.fields"}, updates...)
	if !hasModified {
		updates = append(updates, "date_modified = now()")
	}

	return fmt.Sprintf(
		"INSERT INTO %s AS t (%s) VALUES (%s) ON CONFLICT (unique_key) DO UPDATE SET %s RETURNING id, (xmax <> 0) AS merged",
		pq.QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
}

// RecordModel imports rows into the table of one catalog object. It
// implements importer.Model.
type RecordModel struct {
	store   *Store
	catalog *catalog.Catalog
	object  string
}

// Companies returns the model importing company rows.
func (s *Store) Companies(c *catalog.Catalog) *RecordModel {
	return &RecordModel{store: s, catalog: c, object: importer.ObjectCompany}
}

// Contacts returns the model importing contact rows. Company fields in a
// contact row create or update the contact's company.
func (s *Store) Contacts(c *catalog.Catalog) *RecordModel {
	return &RecordModel{store: s, catalog: c, object: importer.ObjectLead}
}

// Import writes one row and reports whether it merged into an existing record.
func (m *RecordModel) Import(ctx context.Context, req importer.ImportRequest) (bool, error) {
	rec, err := buildRecord(m.catalog, m.object, req, m.object == importer.ObjectLead)
	if err != nil {
		return false, err
	}

	var ownerID *int64
	if req.Owner != nil {
		ownerID = &req.Owner.ID
	}
	if rec.ownerUsername != "" {
		owner, err := m.store.LookupOwnerByUsername(ctx, rec.ownerUsername)
		if err != nil {
			return false, err
		}
		if owner != nil {
			ownerID = &owner.ID
		}
	}

	var merged bool
	err = m.store.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		merged, err = m.write(ctx, tx, req, rec, ownerID)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("import %s: %w", m.object, err)
	}
	return merged, nil
}

// write stores rec and its linked company. The row owner applies to the
// record only; a linked company keeps the owner it already has.
func (m *RecordModel) write(ctx context.Context, db DBTX, req importer.ImportRequest, rec *record, ownerID *int64) (bool, error) {
	if rec.company != nil {
		companyID, _, err := m.upsert(ctx, db, rec.company, nil)
		if err != nil {
			return false, fmt.Errorf("import company: %w", err)
		}
		rec.columns["company_id"] = companyID
	}

	id, merged, err := m.upsert(ctx, db, rec, ownerID)
	if err != nil {
		return false, err
	}

	if m.object != importer.ObjectLead {
		return merged, nil
	}
	if req.ListID != nil {
		if err := addToList(ctx, db, *req.ListID, id); err != nil {
			return false, err
		}
	}
	return merged, addTags(ctx, db, id, req.Tags)
}

func (m *RecordModel) upsert(ctx context.Context, db DBTX, rec *record, ownerID *int64) (int64, bool, error) {
	table, ok := m.catalog.Table(rec.object)
	if !ok {
		return 0, false, fmt.Errorf("unknown object %q", rec.object)
	}

	columns := []string{"unique_key", "fields"}
	args := []any{rec.uniqueKey, rec.fields}
	if ownerID != nil {
		columns = append(columns, "owner_id")
		args = append(args, *ownerID)
	}

	names := make([]string, 0, len(rec.columns))
	for name := range rec.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		columns = append(columns, name)
		args = append(args, rec.columns[name])
	}

	var id int64
	var merged bool
	if err := db.QueryRow(ctx, upsertSQL(table, columns), args...).Scan(&id, &merged); err != nil {
		return 0, false, err
	}
	return id, merged, nil
}

func addToList(ctx context.Context, db DBTX, listID, leadID int64) error {
	_, err := db.Exec(ctx,
		`INSERT INTO lead_lists_leads (list_id, lead_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		listID, leadID)
	if err != nil {
		return fmt.Errorf("add to list %d: %w", listID, err)
	}
	return nil
}

func addTags(ctx context.Context, db DBTX, leadID int64, tags []string) error {
	if len(tags) == 0 {
		return nil
	}

	if _, err := db.Exec(ctx,
		`INSERT INTO lead_tags (tag) SELECT unnest($1::text[]) ON CONFLICT DO NOTHING`,
		tags); err != nil {
		return fmt.Errorf("create tags: %w", err)
	}

	lowered := make([]string, len(tags))
	for i, t := range tags {
		lowered[i] = strings.ToLower(t)
	}
	if _, err := db.Exec(ctx,
		`INSERT INTO lead_tags_xref (lead_id, tag_id)
		 SELECT $1, id FROM lead_tags WHERE lower(tag) = ANY($2::text[])
		 ON CONFLICT DO NOTHING`,
		leadID, lowered); err != nil {
		return fmt.Errorf("tag lead: %w", err)
	}
	return nil
}
