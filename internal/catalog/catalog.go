package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/crmimport/internal/importer"
)

// Catalog is the field catalog used by the import pipeline. It starts from
// the registered built-in objects and can be extended from YAML.
type Catalog struct {
	mu      sync.RWMutex
	objects map[string]*objectFields
}

type objectFields struct {
	table  string
	fields []FieldDefinition
	index  map[string]int
}

// New returns a Catalog seeded with every registered object.
func New() *Catalog {
	c := &Catalog{objects: make(map[string]*objectFields)}
	for _, def := range All() {
		of := &objectFields{table: def.Table, index: make(map[string]int, len(def.Fields))}
		for _, f := range def.Fields {
			of.add(f)
		}
		c.objects[def.Name] = of
	}
	return c
}

func (of *objectFields) add(f FieldDefinition) {
	if i, ok := of.index[f.Alias]; ok {
		of.fields[i] = f
		return
	}
	of.index[f.Alias] = len(of.fields)
	of.fields = append(of.fields, f)
}

// GetFields implements importer.FieldCatalog.
func (c *Catalog) GetFields(_ context.Context, q importer.FieldQuery) ([]importer.Field, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := []string{q.Object}
	if q.Object == "" {
		names = c.objectNames()
	} else if c.objects[q.Object] == nil {
		return nil, fmt.Errorf("unknown object %q", q.Object)
	}

	var out []importer.Field
	for _, name := range names {
		for _, f := range c.objects[name].fields {
			if q.PublishedOnly && !f.Published {
				continue
			}
			if q.RequiredOnly && !f.Required {
				continue
			}
			out = append(out, importer.Field{Alias: f.Alias, Label: f.Label})
		}
	}
	return out, nil
}

func (c *Catalog) objectNames() []string {
	names := make([]string, 0, len(c.objects))
	for name := range c.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definition returns the definition of one field.
func (c *Catalog) Definition(object, alias string) (FieldDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	of, ok := c.objects[object]
	if !ok {
		return FieldDefinition{}, false
	}
	i, ok := of.index[alias]
	if !ok {
		return FieldDefinition{}, false
	}
	return of.fields[i], true
}

// Definitions returns every field of object in catalog order.
func (c *Catalog) Definitions(object string) []FieldDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	of, ok := c.objects[object]
	if !ok {
		return nil
	}
	return append([]FieldDefinition(nil), of.fields...)
}

// UniqueAliases returns the aliases that identify an existing record.
func (c *Catalog) UniqueAliases(object string) []string {
	var out []string
	for _, f := range c.Definitions(object) {
		if f.Unique {
			out = append(out, f.Alias)
		}
	}
	return out
}

// Table returns the storage table of object.
func (c *Catalog) Table(object string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	of, ok := c.objects[object]
	if !ok {
		return "", false
	}
	return of.table, true
}

// fieldOverride is one entry of a custom fields file. Unset flags keep the
// value of the field being overridden.
type fieldOverride struct {
	Object    string    `yaml:"object"`
	Alias     string    `yaml:"alias"`
	Label     string    `yaml:"label"`
	Group     string    `yaml:"group"`
	Type      FieldType `yaml:"type"`
	Required  *bool     `yaml:"required"`
	Published *bool     `yaml:"published"`
	Unique    *bool     `yaml:"unique"`
	Options   []string  `yaml:"options"`
}

type fieldsFile struct {
	Fields []fieldOverride `yaml:"fields"`
}

// LoadFile merges custom field definitions from a YAML file.
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open fields file: %w", err)
	}
	defer f.Close()

	if err := c.Load(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load merges custom field definitions read from r. A field with an existing
// alias is overridden; a new alias is appended as a custom field. Nothing is
// applied if any entry is invalid.
func (c *Catalog) Load(r io.Reader) error {
	var file fieldsFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return fmt.Errorf("decode fields: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []string
	for i := range file.Fields {
		o := &file.Fields[i]
		o.Alias = strings.TrimSpace(o.Alias)
		switch {
		case o.Alias == "":
			errs = append(errs, fmt.Sprintf("fields[%d]: alias is required", i))
		case c.objects[o.Object] == nil:
			errs = append(errs, fmt.Sprintf("fields[%d]: unknown object %q", i, o.Object))
		case importer.IsSpecialField(o.Alias):
			errs = append(errs, fmt.Sprintf("fields[%d]: %q is reserved", i, o.Alias))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid fields:\n  - %s", strings.Join(errs, "\n  - "))
	}

	for _, o := range file.Fields {
		of := c.objects[o.Object]
		def := FieldDefinition{Alias: o.Alias, Object: o.Object, Type: TypeText, Published: true}
		if i, ok := of.index[o.Alias]; ok {
			def = of.fields[i]
		}
		applyOverride(&def, o)
		of.add(def)
	}
	return nil
}

func applyOverride(def *FieldDefinition, o fieldOverride) {
	if o.Label != "" {
		def.Label = o.Label
	}
	if def.Label == "" {
		def.Label = def.Alias
	}
	if o.Group != "" {
		def.Group = o.Group
	}
	if o.Type != "" {
		def.Type = o.Type
	}
	if o.Required != nil {
		def.Required = *o.Required
	}
	if o.Published != nil {
		def.Published = *o.Published
	}
	if o.Unique != nil {
		def.Unique = *o.Unique
	}
	if o.Options != nil {
		def.Options = o.Options
	}
}
