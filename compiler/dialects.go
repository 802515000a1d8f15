package compiler

import (
	"fmt"
	"sort"

	"github.com/brimdata/htsql/compiler/dump"
	"github.com/brimdata/htsql/dialect/mysql"
	"github.com/brimdata/htsql/dialect/oracle"
	"github.com/brimdata/htsql/dialect/pgsql"
	"github.com/brimdata/htsql/dialect/sqlite"
)

var dialects = map[string]func() dump.Dialect{
	"sqlite": func() dump.Dialect { return sqlite.New() },
	"pgsql":  func() dump.Dialect { return pgsql.New() },
	"mysql":  func() dump.Dialect { return mysql.New() },
	"oracle": func() dump.Dialect { return oracle.New() },
}

// LookupDialect returns the dialect of a backend.  An empty name selects
// sqlite.
func LookupDialect(name string) (dump.Dialect, error) {
	if name == "" {
		name = "sqlite"
	}
	if name == "postgresql" || name == "postgres" {
		name = "pgsql"
	}
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (expected one of %v)", name, Backends())
	}
	return d(), nil
}

func Backends() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
