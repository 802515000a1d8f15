// Package catalog describes the database the translator compiles against:
// schemas, tables, columns, unique keys and foreign keys, together with
// the joins (links) derived from the foreign keys.  A Catalog is built
// once from a File and never modified afterward, so it may be shared by
// concurrent translations.
package catalog

import (
	"fmt"
	"strings"

	"github.com/brimdata/htsql"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Catalog struct {
	Schemas []*Schema
	file    *File
	tables  map[string][]*Table
}

type Schema struct {
	Name   string
	Tables []*Table
}

type Table struct {
	Schema      *Schema
	Name        string
	Columns     []*Column
	PrimaryKey  *UniqueKey
	UniqueKeys  []*UniqueKey
	ForeignKeys []*ForeignKey
	// ReferringKeys are the foreign keys of other tables targeting this one.
	ReferringKeys []*ForeignKey

	columns map[string]*Column
	links   map[string][]*Join
	joins   []*Join
}

type Column struct {
	Table    *Table
	Name     string
	Domain   htsql.Domain
	Nullable bool
	Index    int
}

type UniqueKey struct {
	Table     *Table
	Columns   []*Column
	IsPrimary bool
}

type ForeignKey struct {
	Origin        *Table
	OriginColumns []*Column
	Target        *Table
	TargetColumns []*Column
}

// Join connects each row of Origin to the rows of Target whose
// TargetColumns equal the row's OriginColumns.  A direct join follows a
// foreign key from the referring table and is always singular.  A
// reverse join goes the other way and is plural unless the foreign key
// columns are unique.
type Join struct {
	Name          string
	Origin        *Table
	Target        *Table
	OriginColumns []*Column
	TargetColumns []*Column
	IsDirect      bool
	IsSingular    bool
	ForeignKey    *ForeignKey
}

// Normalize folds a name for case-insensitive, normalization-insensitive
// lookup.
func Normalize(name string) string {
	return cases.Fold().String(norm.NFC.String(name))
}

func (s *Schema) String() string { return s.Name }

func (t *Table) String() string {
	if t.Schema != nil && t.Schema.Name != "" {
		return t.Schema.Name + "." + t.Name
	}
	return t.Name
}

func (c *Column) String() string {
	return c.Table.String() + "." + c.Name
}

func (j *Join) String() string {
	return fmt.Sprintf("%s(%s)->%s(%s)", j.Origin, columnNames(j.OriginColumns), j.Target, columnNames(j.TargetColumns))
}

// Key identifies a join structurally.  Two joins with equal keys connect
// the same rows.
func (j *Join) Key() string {
	return j.String()
}

func columnNames(cols []*Column) string {
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.Name)
	}
	return strings.Join(names, ",")
}

// File returns the description the catalog was built from.
func (c *Catalog) File() *File {
	return c.file
}

// LookupTable finds a table by its normalized name.  When several schemas
// hold a table of that name, the table of the earliest schema wins.  A
// name of the form "schema.table" selects the schema explicitly.
func (c *Catalog) LookupTable(name string) *Table {
	if schema, table, ok := strings.Cut(name, "."); ok {
		for _, s := range c.Schemas {
			if Normalize(s.Name) == Normalize(schema) {
				for _, t := range s.Tables {
					if Normalize(t.Name) == Normalize(table) {
						return t
					}
				}
			}
		}
		return nil
	}
	if tables := c.tables[Normalize(name)]; len(tables) > 0 {
		return tables[0]
	}
	return nil
}

// Tables returns every table in schema order.
func (c *Catalog) Tables() []*Table {
	var out []*Table
	for _, s := range c.Schemas {
		out = append(out, s.Tables...)
	}
	return out
}

// TableNames returns the lookup names of all tables, for diagnostics.
func (c *Catalog) TableNames() []string {
	var names []string
	for _, t := range c.Tables() {
		names = append(names, t.Name)
	}
	return names
}

func (t *Table) LookupColumn(name string) *Column {
	return t.columns[Normalize(name)]
}

// LookupLink finds a link by name.  It returns an error when the name is
// shared by several links.
func (t *Table) LookupLink(name string) (*Join, error) {
	joins := t.links[Normalize(name)]
	switch len(joins) {
	case 0:
		return nil, nil
	case 1:
		return joins[0], nil
	}
	return nil, fmt.Errorf("ambiguous link %q of table %s", name, t)
}

// Links returns the direct and reverse joins of the table in declaration
// order.
func (t *Table) Links() []*Join {
	return t.joins
}

// Names returns the names of the columns and links of the table, for
// diagnostics.
func (t *Table) Names() []string {
	var names []string
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	for _, j := range t.joins {
		names = append(names, j.Name)
	}
	return names
}

// Identity returns the columns that identify a row: the primary key or,
// failing that, the first unique key with no nullable columns.
func (t *Table) Identity() []*Column {
	if t.PrimaryKey != nil {
		return t.PrimaryKey.Columns
	}
	for _, k := range t.UniqueKeys {
		if !anyNullable(k.Columns) {
			return k.Columns
		}
	}
	return nil
}

func anyNullable(cols []*Column) bool {
	for _, c := range cols {
		if c.Nullable {
			return true
		}
	}
	return false
}

// IsUnique reports whether the given columns include a unique key.
func (t *Table) IsUnique(cols []*Column) bool {
	set := make(map[*Column]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	keys := t.UniqueKeys
	if t.PrimaryKey != nil {
		keys = append([]*UniqueKey{t.PrimaryKey}, keys...)
	}
	for _, k := range keys {
		covered := true
		for _, c := range k.Columns {
			if !set[c] {
				covered = false
				break
			}
		}
		if covered {
			return true
		}
	}
	return false
}

// LinkColumn builds the join "column -> target" that matches a single
// column against the single-column identity of the target table.
func LinkColumn(column *Column, target *Table) (*Join, error) {
	identity := target.Identity()
	if len(identity) != 1 {
		return nil, fmt.Errorf("table %s does not have a single-column identity", target)
	}
	return &Join{
		Name:          target.Name,
		Origin:        column.Table,
		Target:        target,
		OriginColumns: []*Column{column},
		TargetColumns: identity,
		IsDirect:      true,
		IsSingular:    true,
	}, nil
}
