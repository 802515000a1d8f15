package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/catalog/introspect"
	"github.com/brimdata/htsql/cmd/htsql/root"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	root.Htsql.AddCommand(New(root.Htsql))
}

type Command struct {
	*root.Command
	sqlite   string
	output   string
	snapshot bool
}

func New(parent *root.Command) *cobra.Command {
	c := &Command{Command: parent}
	cmd := &cobra.Command{
		Use:   "catalog --sqlite db [flags]",
		Short: "describe a database as a catalog file",
		Long: `
This command reads the tables, columns and keys of a SQLite database
and writes the catalog description used by "htsql compile --catalog".
The description is written as YAML unless --snapshot is given, in which
case a compressed binary snapshot is written to the file named by -o.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.sqlite, "sqlite", "", "path of the SQLite database to describe")
	f.StringVarP(&c.output, "output", "o", "", "write the catalog to a file instead of stdout")
	f.BoolVar(&c.snapshot, "snapshot", false, "write a catalog snapshot instead of YAML")
	cmd.MarkFlagRequired("sqlite")
	return cmd
}

func (c *Command) Run(ctx context.Context, w io.Writer) error {
	if c.snapshot && c.output == "" {
		return errors.New("a snapshot must be written to a file given with -o")
	}
	logger, cleanup, err := c.InitLogger()
	if err != nil {
		return err
	}
	defer cleanup()
	if _, err := os.Stat(c.sqlite); err != nil {
		return err
	}
	db, err := introspect.OpenSQLite(c.sqlite)
	if err != nil {
		return err
	}
	defer db.Close()
	f, err := introspect.SQLite(ctx, db)
	if err != nil {
		return fmt.Errorf("%s: %w", c.sqlite, err)
	}
	cat, err := catalog.Build(f)
	if err != nil {
		return fmt.Errorf("%s: %w", c.sqlite, err)
	}
	logger.Info("introspected",
		zap.String("database", c.sqlite),
		zap.Int("tables", len(cat.Tables())))
	var b []byte
	if c.snapshot {
		b, err = catalog.EncodeSnapshot(f)
	} else {
		b, err = f.YAML()
	}
	if err != nil {
		return err
	}
	if c.output == "" {
		_, err = w.Write(b)
		return err
	}
	return os.WriteFile(c.output, b, 0o644)
}
