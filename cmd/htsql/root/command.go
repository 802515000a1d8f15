package root

import (
	"github.com/brimdata/htsql/cli/catalogflags"
	"github.com/brimdata/htsql/cli/logflags"
	"github.com/brimdata/htsql/compiler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Htsql = New()

type Command struct {
	*cobra.Command
	LogFlags     logflags.Flags
	CatalogFlags catalogflags.Flags
}

func New() *Command {
	c := &Command{
		Command: &cobra.Command{
			Use:   "htsql",
			Short: "translate HTSQL queries into SQL",
			Long: `
The "htsql" command translates queries written in HTSQL, a navigational
query language for relational databases, into SQL for one of several
database backends.

A query such as

  /school{name, count(department)}

walks the links of the database catalog the way a URL walks a web site.
The catalog describes the tables, columns and keys of the database.  It
is read from a YAML file or a catalog snapshot given with --catalog,
which the "catalog" command produces from a live database.  Without
--catalog, queries are translated against a small demo database of
schools, departments, programs and courses.

Settings may also come from a YAML configuration file given with
--config.  Flags given on the command line take precedence.
`,
			SilenceUsage:  true,
			SilenceErrors: true,
		},
	}
	fs := c.PersistentFlags()
	c.LogFlags.SetFlags(fs)
	c.CatalogFlags.SetFlags(fs)
	return c
}

// Init builds the logger and the translator selected by the flags.  The
// returned cleanup function flushes the logger.
func (c *Command) Init() (*compiler.Translator, compiler.Config, func(), error) {
	conf, logger, err := c.open()
	if err != nil {
		return nil, compiler.Config{}, nil, err
	}
	cleanup := func() { logger.Sync() }
	t, conf, err := catalogflags.NewTranslator(conf, logger)
	if err != nil {
		cleanup()
		return nil, compiler.Config{}, nil, err
	}
	return t, conf, cleanup, nil
}

// InitLogger builds the logger alone for commands that do not translate.
func (c *Command) InitLogger() (*zap.Logger, func(), error) {
	_, logger, err := c.open()
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { logger.Sync() }, nil
}

func (c *Command) open() (compiler.Config, *zap.Logger, error) {
	conf, err := c.CatalogFlags.Config()
	if err != nil {
		return compiler.Config{}, nil, err
	}
	c.LogFlags.Apply(conf.Log)
	logger, err := c.LogFlags.Open()
	if err != nil {
		return compiler.Config{}, nil, err
	}
	return conf, logger, nil
}
