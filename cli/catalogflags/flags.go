// Package catalogflags holds the flags that select the catalog, the
// backend and the translator configuration.
package catalogflags

import (
	"errors"

	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/catalog/demo"
	"github.com/brimdata/htsql/compiler"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type Flags struct {
	ConfigPath  string
	CatalogPath string
	Backend     string
	Limit       int64
	CacheSize   int
	fs          *pflag.FlagSet
}

func (f *Flags) SetFlags(fs *pflag.FlagSet) {
	f.fs = fs
	fs.StringVar(&f.ConfigPath, "config", "", "path of a YAML configuration file")
	fs.StringVar(&f.CatalogPath, "catalog", "", "path of a YAML catalog or catalog snapshot (default is the demo catalog)")
	fs.StringVar(&f.Backend, "backend", "", "SQL backend (sqlite, pgsql, mysql or oracle)")
	fs.Int64Var(&f.Limit, "limit", 0, "maximum number of rows returned by a query (0 for no limit)")
	fs.IntVar(&f.CacheSize, "cache-size", 0, "capacity of the translation cache (0 disables it)")
}

// Config loads the configuration file, if any, and overrides its settings
// with the flags given on the command line.
func (f *Flags) Config() (compiler.Config, error) {
	var conf compiler.Config
	if f.ConfigPath != "" {
		var err error
		if conf, err = compiler.LoadConfig(f.ConfigPath); err != nil {
			return compiler.Config{}, err
		}
	}
	if f.changed("catalog") || conf.Catalog == "" {
		conf.Catalog = f.CatalogPath
	}
	if f.changed("backend") || conf.Backend == "" {
		conf.Backend = f.Backend
	}
	if f.changed("limit") || conf.Limit == 0 {
		conf.Limit = f.Limit
	}
	if f.changed("cache-size") || conf.CacheSize == 0 {
		conf.CacheSize = f.CacheSize
	}
	if conf.CacheSize < 0 {
		return compiler.Config{}, errors.New("cache size must not be negative")
	}
	return conf, nil
}

func (f *Flags) changed(name string) bool {
	return f.fs != nil && f.fs.Changed(name)
}

// Catalog loads the catalog named by conf.  A catalog that records its
// backend supplies the backend when conf names none.
func Catalog(conf *compiler.Config) (*catalog.Catalog, error) {
	cat := demo.Catalog()
	if conf.Catalog != "" {
		var err error
		if cat, err = catalog.Load(conf.Catalog); err != nil {
			return nil, err
		}
	}
	if conf.Backend == "" {
		conf.Backend = cat.File().Backend
	}
	return cat, nil
}

// Open builds a translator from the flags.
func (f *Flags) Open(logger *zap.Logger) (*compiler.Translator, compiler.Config, error) {
	conf, err := f.Config()
	if err != nil {
		return nil, compiler.Config{}, err
	}
	return NewTranslator(conf, logger)
}

// NewTranslator loads the catalog named by conf and builds a translator
// over it.  The returned configuration names the backend in use.
func NewTranslator(conf compiler.Config, logger *zap.Logger) (*compiler.Translator, compiler.Config, error) {
	cat, err := Catalog(&conf)
	if err != nil {
		return nil, compiler.Config{}, err
	}
	t, err := compiler.NewTranslator(cat, conf, logger)
	if err != nil {
		return nil, compiler.Config{}, err
	}
	return t, conf, nil
}
