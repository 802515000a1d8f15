package ztest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromYAMLFileUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("query: /school\nspq: x\n"), 0o644))
	_, err := FromYAMLFile(path)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	z := &ZTest{Query: "/school", SQL: "SELECT 1\n", Error: "scan error\n"}
	assert.ErrorContains(t, z.RunInternal(""), "bad yaml format")
	z = &ZTest{}
	assert.ErrorContains(t, z.RunInternal(""), "query field missing")
}

func TestDiff(t *testing.T) {
	z := &ZTest{Query: "/{1+1}", SQL: "SELECT 3\n"}
	err := z.RunInternal("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected and actual sql differ")
	assert.Contains(t, err.Error(), "-SELECT 3")
}

func TestCatalogFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "schemas:\n  - tables:\n      - name: item\n        columns:\n          - {name: id, type: integer}\n        primary-key: [id]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "items.yaml"), []byte(yaml), 0o644))
	z := &ZTest{Query: "/item{id}", Catalog: "items.yaml", SQL: "SELECT \"item\".\"id\"\nFROM \"item\"\nORDER BY 1 ASC\n"}
	assert.NoError(t, z.RunInternal(dir))
}
