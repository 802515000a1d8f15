// Package demo embeds a small university database used by examples and
// tests: a catalog description and the SQLite script that creates and
// populates the matching database.
package demo

import (
	_ "embed"

	"github.com/brimdata/htsql/catalog"
)

//go:embed school.yaml
var schoolYAML []byte

//go:embed school.sql
var SchoolSQL string

// Catalog returns a freshly built catalog of the demo database.
func Catalog() *catalog.Catalog {
	c, err := catalog.ParseYAML(schoolYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func YAML() []byte {
	return schoolYAML
}
