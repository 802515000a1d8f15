package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/brimdata/htsql"
	"github.com/goccy/go-yaml"
)

// File is the serialized form of a catalog.  It is read from YAML
// catalog files, produced by introspection and stored in snapshots.
type File struct {
	Backend string       `yaml:"backend,omitempty" msgpack:"backend,omitempty"`
	Schemas []SchemaFile `yaml:"schemas" msgpack:"schemas"`
}

type SchemaFile struct {
	Name   string      `yaml:"name,omitempty" msgpack:"name,omitempty"`
	Tables []TableFile `yaml:"tables" msgpack:"tables"`
}

type TableFile struct {
	Name        string           `yaml:"name" msgpack:"name"`
	Columns     []ColumnFile     `yaml:"columns" msgpack:"columns"`
	PrimaryKey  []string         `yaml:"primary-key,omitempty" msgpack:"primary-key,omitempty"`
	UniqueKeys  [][]string       `yaml:"unique-keys,omitempty" msgpack:"unique-keys,omitempty"`
	ForeignKeys []ForeignKeyFile `yaml:"foreign-keys,omitempty" msgpack:"foreign-keys,omitempty"`
}

type ColumnFile struct {
	Name string `yaml:"name" msgpack:"name"`
	Type string `yaml:"type" msgpack:"type"`
	// Columns are nullable unless NotNull is set or they belong to the
	// primary key.
	NotNull bool `yaml:"not-null,omitempty" msgpack:"not-null,omitempty"`
}

type ForeignKeyFile struct {
	Columns []string `yaml:"columns" msgpack:"columns"`
	// Target names the referenced table, optionally qualified by its
	// schema as "schema.table".
	Target string `yaml:"target" msgpack:"target"`
	// TargetColumns defaults to the primary key of the target.
	TargetColumns []string `yaml:"target-columns,omitempty" msgpack:"target-columns,omitempty"`
}

// ParseYAML decodes a YAML catalog description and builds the catalog.
func ParseYAML(b []byte) (*Catalog, error) {
	var f File
	if err := yaml.UnmarshalWithOptions(b, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}
	return Build(&f)
}

// YAML renders the catalog description as YAML.
func (f *File) YAML() ([]byte, error) {
	return yaml.Marshal(f)
}

// Build checks a catalog description and links its parts.
func Build(f *File) (*Catalog, error) {
	c := &Catalog{file: f, tables: make(map[string][]*Table)}
	backend := f.Backend
	if backend == "" {
		backend = "sqlite"
	}
	for _, sf := range f.Schemas {
		s := &Schema{Name: sf.Name}
		for _, tf := range sf.Tables {
			t, err := buildTable(s, tf, backend)
			if err != nil {
				return nil, err
			}
			s.Tables = append(s.Tables, t)
			key := Normalize(t.Name)
			c.tables[key] = append(c.tables[key], t)
		}
		c.Schemas = append(c.Schemas, s)
	}
	for k, sf := range f.Schemas {
		for j, tf := range sf.Tables {
			origin := c.Schemas[k].Tables[j]
			for _, fkf := range tf.ForeignKeys {
				fk, err := c.buildForeignKey(origin, fkf)
				if err != nil {
					return nil, err
				}
				origin.ForeignKeys = append(origin.ForeignKeys, fk)
				fk.Target.ReferringKeys = append(fk.Target.ReferringKeys, fk)
			}
		}
	}
	for _, t := range c.Tables() {
		t.buildLinks()
	}
	return c, nil
}

func buildTable(s *Schema, tf TableFile, backend string) (*Table, error) {
	if tf.Name == "" {
		return nil, errors.New("table without a name")
	}
	t := &Table{Schema: s, Name: tf.Name, columns: make(map[string]*Column)}
	for k, cf := range tf.Columns {
		key := Normalize(cf.Name)
		if _, ok := t.columns[key]; ok {
			return nil, fmt.Errorf("table %s: duplicate column %q", t, cf.Name)
		}
		col := &Column{
			Table:    t,
			Name:     cf.Name,
			Domain:   htsql.LookupDomain(backend, cf.Type),
			Nullable: !cf.NotNull,
			Index:    k,
		}
		t.Columns = append(t.Columns, col)
		t.columns[key] = col
	}
	if len(tf.PrimaryKey) > 0 {
		cols, err := t.resolveColumns(tf.PrimaryKey)
		if err != nil {
			return nil, err
		}
		for _, col := range cols {
			col.Nullable = false
		}
		t.PrimaryKey = &UniqueKey{Table: t, Columns: cols, IsPrimary: true}
	}
	for _, names := range tf.UniqueKeys {
		cols, err := t.resolveColumns(names)
		if err != nil {
			return nil, err
		}
		t.UniqueKeys = append(t.UniqueKeys, &UniqueKey{Table: t, Columns: cols})
	}
	return t, nil
}

func (t *Table) resolveColumns(names []string) ([]*Column, error) {
	cols := make([]*Column, 0, len(names))
	for _, name := range names {
		col := t.LookupColumn(name)
		if col == nil {
			return nil, fmt.Errorf("table %s: unknown column %q", t, name)
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func (c *Catalog) buildForeignKey(origin *Table, f ForeignKeyFile) (*ForeignKey, error) {
	target := c.LookupTable(f.Target)
	if target == nil {
		return nil, fmt.Errorf("table %s: foreign key references unknown table %q", origin, f.Target)
	}
	originCols, err := origin.resolveColumns(f.Columns)
	if err != nil {
		return nil, err
	}
	var targetCols []*Column
	if len(f.TargetColumns) > 0 {
		targetCols, err = target.resolveColumns(f.TargetColumns)
		if err != nil {
			return nil, err
		}
	} else if target.PrimaryKey != nil {
		targetCols = target.PrimaryKey.Columns
	}
	if len(originCols) == 0 || len(originCols) != len(targetCols) {
		return nil, fmt.Errorf("table %s: foreign key (%s) does not match the columns of %s", origin, strings.Join(f.Columns, ","), target)
	}
	return &ForeignKey{Origin: origin, OriginColumns: originCols, Target: target, TargetColumns: targetCols}, nil
}

// buildLinks names the joins of a table.  A direct join is named after
// its target table and a reverse join after its origin table.  When two
// direct joins share a target, each is named after its referring column
// instead, and reverse joins sharing an origin become "origin_via_column".
func (t *Table) buildLinks() {
	t.links = make(map[string][]*Join)
	targets := make(map[*Table]int)
	for _, fk := range t.ForeignKeys {
		targets[fk.Target]++
	}
	for _, fk := range t.ForeignKeys {
		name := fk.Target.Name
		if targets[fk.Target] > 1 {
			name = stripColumn(fk)
		}
		t.addLink(&Join{
			Name:          name,
			Origin:        t,
			Target:        fk.Target,
			OriginColumns: fk.OriginColumns,
			TargetColumns: fk.TargetColumns,
			IsDirect:      true,
			IsSingular:    true,
			ForeignKey:    fk,
		})
	}
	origins := make(map[*Table]int)
	for _, fk := range t.ReferringKeys {
		origins[fk.Origin]++
	}
	for _, fk := range t.ReferringKeys {
		name := fk.Origin.Name
		if origins[fk.Origin] > 1 {
			name += "_via_" + stripColumn(fk)
		}
		t.addLink(&Join{
			Name:          name,
			Origin:        t,
			Target:        fk.Origin,
			OriginColumns: fk.TargetColumns,
			TargetColumns: fk.OriginColumns,
			IsSingular:    fk.Origin.IsUnique(fk.OriginColumns),
			ForeignKey:    fk,
		})
	}
}

func (t *Table) addLink(j *Join) {
	key := Normalize(j.Name)
	t.links[key] = append(t.links[key], j)
	t.joins = append(t.joins, j)
}

// stripColumn derives a link name from the first referring column by
// removing a suffix naming the referenced column or "_id".
func stripColumn(fk *ForeignKey) string {
	name := fk.OriginColumns[0].Name
	for _, suffix := range []string{"_" + fk.TargetColumns[0].Name, "_id"} {
		if base, ok := strings.CutSuffix(name, suffix); ok && base != "" {
			return base
		}
	}
	return name
}
