package catalogflags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) *Flags {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var f Flags
	f.SetFlags(fs)
	require.NoError(t, fs.Parse(args))
	return &f
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "htsql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: pgsql\nlimit: 100\ncache-size: 16\n"), 0o644))
	f := parse(t, "--config", path, "--limit", "5")
	conf, err := f.Config()
	require.NoError(t, err)
	assert.Equal(t, "pgsql", conf.Backend)
	assert.EqualValues(t, 5, conf.Limit)
	assert.Equal(t, 16, conf.CacheSize)
}

func TestDemoCatalog(t *testing.T) {
	tr, conf, err := parse(t).Open(nil)
	require.NoError(t, err)
	assert.Equal(t, "", conf.Catalog)
	result, err := tr.Translate("/school{code}")
	require.NoError(t, err)
	assert.Contains(t, result.SQL, `FROM "school"`)
}

func TestSnapshotCatalog(t *testing.T) {
	f := demo.Catalog().File()
	f.Backend = "mysql"
	b, err := catalog.EncodeSnapshot(f)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "school.cat")
	require.NoError(t, os.WriteFile(path, b, 0o644))

	tr, conf, err := parse(t, "--catalog", path).Open(nil)
	require.NoError(t, err)
	assert.Equal(t, "mysql", conf.Backend)
	assert.Equal(t, "mysql", tr.Dialect().Name())
}

func TestUnknownBackend(t *testing.T) {
	_, _, err := parse(t, "--backend", "db2").Open(nil)
	assert.ErrorContains(t, err, `unknown backend "db2"`)
}
