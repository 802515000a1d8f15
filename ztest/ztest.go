// Package ztest runs translation tests described in YAML files.
//
// A test file names a query and the SQL it is expected to translate to,
// or the error the translation is expected to fail with:
//
//	query: /school{code}
//	backend: pgsql
//	sql: |
//	  SELECT "school"."code"
//	  FROM "school"
//	  ORDER BY 1 ASC
//
// The backend defaults to sqlite and the catalog to the demo catalog.  A
// catalog field names a YAML catalog or a catalog snapshot relative to
// the directory of the test file.  Expected text is compared with a
// final newline added to the actual output, and differences are
// reported as a unified diff.
//
// Tests are usually run from a package test that points Run at a
// directory of YAML files:
//
//	func TestZTest(t *testing.T) {
//		ztest.Run(t, "testdata/ztest")
//	}
package ztest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler"
	"github.com/goccy/go-yaml"
	yamlparser "github.com/goccy/go-yaml/parser"
	"github.com/pmezard/go-difflib/difflib"
)

type Bundle struct {
	TestName string
	FileName string
	Test     *ZTest
	Error    error
}

// Load reads every .yaml file in dirname in name order.  A file that
// cannot be decoded yields a bundle carrying the error.
func Load(dirname string) ([]Bundle, error) {
	if _, err := os.Stat(dirname); err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(dirname, "*.yaml"))
	if err != nil {
		return nil, err
	}
	bundles := make([]Bundle, 0, len(paths))
	for _, path := range paths {
		z, err := FromYAMLFile(path)
		bundles = append(bundles, Bundle{
			TestName: strings.TrimSuffix(filepath.Base(path), ".yaml"),
			FileName: path,
			Test:     z,
			Error:    err,
		})
	}
	return bundles, nil
}

func Run(t *testing.T, dirname string) {
	bundles, err := Load(dirname)
	if err != nil {
		t.Fatal(err)
	}
	if len(bundles) == 0 {
		t.Fatalf("%s: no tests found", dirname)
	}
	for _, b := range bundles {
		b := b
		t.Run(b.TestName, func(t *testing.T) {
			t.Parallel()
			if b.Error != nil {
				t.Fatalf("%s: %s", b.FileName, b.Error)
			}
			b.Test.Run(t, b.FileName)
		})
	}
}

type ZTest struct {
	Skip string `yaml:"skip,omitempty"`
	Tag  string `yaml:"tag,omitempty"`

	Query   string `yaml:"query"`
	Backend string `yaml:"backend,omitempty"`
	Catalog string `yaml:"catalog,omitempty"`
	Limit   int64  `yaml:"limit,omitempty"`
	SQL     string `yaml:"sql,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

func (z *ZTest) check() error {
	if z.Query == "" {
		return errors.New("query field missing")
	}
	if z.SQL != "" && z.Error != "" {
		return errors.New("at most one of sql or error may be given")
	}
	return nil
}

func FromYAMLFile(filename string) (*ZTest, error) {
	f, err := yamlparser.ParseFile(filename, 0)
	if err != nil {
		return nil, err
	}
	if len(f.Docs) != 1 {
		return nil, errors.New("file must contain one YAML document")
	}
	var z ZTest
	if err := yaml.NodeToValue(f.Docs[0].Body, &z, yaml.DisallowUnknownField()); err != nil {
		return nil, err
	}
	return &z, nil
}

func (z *ZTest) ShouldSkip() string {
	switch {
	case z.Skip != "":
		return z.Skip
	case z.Tag != "" && z.Tag != os.Getenv("ZTEST_TAG"):
		return fmt.Sprintf("tag %q does not match ZTEST_TAG=%q", z.Tag, os.Getenv("ZTEST_TAG"))
	}
	return ""
}

// RunInternal translates the query and compares the result with the
// expected SQL or error.  Relative catalog paths are resolved against
// testDir.
func (z *ZTest) RunInternal(testDir string) error {
	if err := z.check(); err != nil {
		return fmt.Errorf("bad yaml format: %w", err)
	}
	cat, err := z.loadCatalog(testDir)
	if err != nil {
		return err
	}
	t, err := compiler.NewTranslator(cat, compiler.Config{Backend: z.Backend, Limit: z.Limit}, nil)
	if err != nil {
		return z.diffInternal("", err)
	}
	var out string
	result, err := t.Translate(z.Query)
	if err == nil {
		out = result.SQL + "\n"
	}
	return z.diffInternal(out, err)
}

func (z *ZTest) loadCatalog(testDir string) (*catalog.Catalog, error) {
	if z.Catalog == "" {
		return demo.Catalog(), nil
	}
	return catalog.Load(filepath.Join(testDir, z.Catalog))
}

func (z *ZTest) diffInternal(out string, err error) error {
	var outDiffErr, errDiffErr error
	if z.SQL != out {
		outDiffErr = diffErr("sql", z.SQL, out)
	}
	var errStr string
	if err != nil {
		errStr = strings.TrimSuffix(err.Error(), "\n") + "\n"
	}
	if z.Error != errStr {
		errDiffErr = diffErr("error", z.Error, errStr)
	}
	return errors.Join(outDiffErr, errDiffErr)
}

func (z *ZTest) Run(t *testing.T, filename string) {
	if msg := z.ShouldSkip(); msg != "" {
		t.Skip("skipping test:", msg)
	}
	if err := z.RunInternal(filepath.Dir(filename)); err != nil {
		t.Fatalf("%s: %s", filename, err)
	}
}

func diffErr(name, expected, actual string) error {
	if !utf8.ValidString(expected) {
		expected = hex.Dump([]byte(expected))
		actual = hex.Dump([]byte(actual))
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		FromFile: "expected",
		B:        difflib.SplitLines(actual),
		ToFile:   "actual",
		Context:  5,
	})
	if err != nil {
		panic("ztest: " + err.Error())
	}
	return fmt.Errorf("expected and actual %s differ:\n%s", name, diff)
}
