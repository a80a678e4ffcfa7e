package importer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Reserved form keys. Every other key is a CSV column header whose value is
// the alias of the field the column maps to.
const (
	FormKeyOwner = "owner"
	FormKeyList  = "list"
	FormKeyTags  = "tags"
)

// Form is the submitted field-mapping form, kept as raw JSON values so the
// validate stage can decide how to interpret each entry.
type Form struct {
	keys   []string
	values map[string]gjson.Result
}

// ParseForm parses a JSON object into a Form.
func ParseForm(data []byte) (*Form, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidForm)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidForm)
	}

	f := &Form{values: make(map[string]gjson.Result)}
	root.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if _, seen := f.values[key]; !seen {
			f.keys = append(f.keys, key)
		}
		f.values[key] = v
		return true
	})
	return f, nil
}

// Len returns the number of entries in the form.
func (f *Form) Len() int {
	return len(f.keys)
}

func (f *Form) clone() *Form {
	c := &Form{
		keys:   append([]string(nil), f.keys...),
		values: make(map[string]gjson.Result, len(f.values)),
	}
	for k, v := range f.values {
		c.values[k] = v
	}
	return c
}

// pick removes key from the form and returns its value.
func (f *Form) pick(key string) (gjson.Result, bool) {
	v, ok := f.values[key]
	if !ok {
		return gjson.Result{}, false
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// matchedFields returns the remaining entries as header -> alias with values
// trimmed. Empty, null, boolean and structured values are dropped.
func (f *Form) matchedFields() map[string]string {
	out := make(map[string]string, len(f.keys))
	for _, k := range f.keys {
		v := f.values[k]
		var s string
		switch v.Type {
		case gjson.String:
			s = v.Str
		case gjson.Number:
			s = v.Raw
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out[k] = s
		}
	}
	return out
}

// referenceID reads an entity id given as a number, a numeric string or an
// object with an "id" member.
func referenceID(v gjson.Result) (int64, bool) {
	switch {
	case v.IsObject():
		return referenceID(v.Get("id"))
	case v.Type == gjson.Number:
		id := v.Int()
		return id, id > 0
	case v.Type == gjson.String:
		id, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		return id, err == nil && id > 0
	default:
		return 0, false
	}
}

// tagRef is a tag given either by name or by id.
type tagRef struct {
	name string
	id   int64
}

// tagRefs extracts tag references from v. Anything that is not a tag name,
// a {"tag": name} object or a numeric id is ignored; a non-array value yields
// no references.
func tagRefs(v gjson.Result) []tagRef {
	if !v.IsArray() {
		return nil
	}
	var refs []tagRef
	for _, item := range v.Array() {
		switch {
		case item.Type == gjson.String:
			refs = append(refs, tagRef{name: item.Str})
		case item.Type == gjson.Number:
			if id := item.Int(); id > 0 {
				refs = append(refs, tagRef{id: id})
			}
		case item.IsObject():
			if t := item.Get("tag"); t.Type == gjson.String {
				refs = append(refs, tagRef{name: t.Str})
			} else if id, ok := referenceID(item); ok {
				refs = append(refs, tagRef{id: id})
			}
		}
	}
	return refs
}

// normalizeTags trims names, drops empty ones and removes case-insensitive
// duplicates, keeping the first spelling.
func normalizeTags(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}
