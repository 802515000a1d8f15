// Package introspect builds catalog descriptions from live databases.
package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/brimdata/htsql/catalog"
	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens a SQLite database with the go-sqlite3 driver.
func OpenSQLite(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path)
}

// SQLite describes the tables of the main schema of a SQLite database.
func SQLite(ctx context.Context, db *sql.DB) (*catalog.File, error) {
	names, err := queryStrings(ctx, db, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	schema := catalog.SchemaFile{}
	for _, name := range names {
		t, err := sqliteTable(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		schema.Tables = append(schema.Tables, *t)
	}
	return &catalog.File{Backend: "sqlite", Schemas: []catalog.SchemaFile{schema}}, nil
}

func quoteName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func sqliteTable(ctx context.Context, db *sql.DB, name string) (*catalog.TableFile, error) {
	t := &catalog.TableFile{Name: name}
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+quoteName(name)+")")
	if err != nil {
		return nil, err
	}
	type pkColumn struct {
		name  string
		index int
	}
	var pk []pkColumn
	for rows.Next() {
		var (
			cid     int
			column  string
			typ     string
			notNull bool
			dflt    sql.NullString
			pkIndex int
		)
		if err := rows.Scan(&cid, &column, &typ, &notNull, &dflt, &pkIndex); err != nil {
			rows.Close()
			return nil, err
		}
		t.Columns = append(t.Columns, catalog.ColumnFile{Name: column, Type: typ, NotNull: notNull})
		if pkIndex > 0 {
			pk = append(pk, pkColumn{column, pkIndex})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(pk, func(i, j int) bool { return pk[i].index < pk[j].index })
	for _, c := range pk {
		t.PrimaryKey = append(t.PrimaryKey, c.name)
	}
	if t.UniqueKeys, err = sqliteUniqueKeys(ctx, db, name); err != nil {
		return nil, err
	}
	if t.ForeignKeys, err = sqliteForeignKeys(ctx, db, name); err != nil {
		return nil, err
	}
	return t, nil
}

func sqliteUniqueKeys(ctx context.Context, db *sql.DB, table string) ([][]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA index_list("+quoteName(table)+")")
	if err != nil {
		return nil, err
	}
	var indexes []string
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  bool
			origin  string
			partial bool
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		// Primary keys come from table_info and partial indexes do not
		// make the whole column unique.
		if unique && origin != "pk" && !partial {
			indexes = append(indexes, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(indexes)
	var keys [][]string
	for _, index := range indexes {
		cols, err := sqliteIndexColumns(ctx, db, index)
		if err != nil {
			return nil, err
		}
		if len(cols) > 0 {
			keys = append(keys, cols)
		}
	}
	return keys, nil
}

func sqliteIndexColumns(ctx context.Context, db *sql.DB, index string) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA index_info("+quoteName(index)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var (
			seqno int
			cid   int
			name  sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if !name.Valid {
			// Expression indexes are not keys.
			return nil, nil
		}
		cols = append(cols, name.String)
	}
	return cols, rows.Err()
}

func sqliteForeignKeys(ctx context.Context, db *sql.DB, table string) ([]catalog.ForeignKeyFile, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteName(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []catalog.ForeignKeyFile
	byID := make(map[int]int)
	for rows.Next() {
		var (
			id, seq                    int
			target, from               string
			to                         sql.NullString
			onUpdate, onDelete, action string
		)
		if err := rows.Scan(&id, &seq, &target, &from, &to, &onUpdate, &onDelete, &action); err != nil {
			return nil, err
		}
		k, ok := byID[id]
		if !ok {
			k = len(keys)
			byID[id] = k
			keys = append(keys, catalog.ForeignKeyFile{Target: target})
		}
		keys[k].Columns = append(keys[k].Columns, from)
		if to.Valid {
			keys[k].TargetColumns = append(keys[k].TargetColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for k := range keys {
		if len(keys[k].TargetColumns) != len(keys[k].Columns) {
			keys[k].TargetColumns = nil
		}
	}
	// foreign_key_list reports keys in reverse declaration order.
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys, nil
}
