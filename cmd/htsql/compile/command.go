package compile

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/brimdata/htsql/cmd/htsql/root"
	"github.com/brimdata/htsql/compiler"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/parser"
	"github.com/brimdata/htsql/compiler/sfmt"
	"github.com/kr/pretty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	root.Htsql.AddCommand(New(root.Htsql))
}

type Command struct {
	*root.Command
	canon bool
	debug bool
}

func New(parent *root.Command) *cobra.Command {
	c := &Command{Command: parent}
	cmd := &cobra.Command{
		Use:   "compile [flags] query...",
		Short: "translate queries into SQL",
		Long: `
This command translates each query into SQL for the selected backend
and prints the result, one statement per query, terminated by a
semicolon.  Multiple queries are translated in parallel but printed in
the order they were given.

The "-C" option prints each query as canonical HTSQL instead of SQL,
which shows how the parser understood it.  The "--debug" option prints
the tree produced by each stage of the translation before the SQL.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&c.canon, "canon", "C", false, "print queries as canonical HTSQL instead of SQL")
	f.BoolVar(&c.debug, "debug", false, "print the tree produced by each stage")
	return cmd
}

func (c *Command) Run(ctx context.Context, w io.Writer, queries []string) error {
	if c.canon {
		for _, q := range queries {
			node, err := parser.ParseQuery(q)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, sfmt.Syntax(node))
		}
		return nil
	}
	t, conf, cleanup, err := c.Init()
	if err != nil {
		return err
	}
	defer cleanup()
	translate := t.Translate
	if conf.CacheSize > 0 && !c.debug {
		cache, err := compiler.NewCache(t, conf.CacheSize, nil)
		if err != nil {
			return err
		}
		translate = cache.Translate
	}
	outputs := make([]string, len(queries))
	g, ctx := errgroup.WithContext(ctx)
	for k, q := range queries {
		k, q := k, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var b strings.Builder
			var result *compiler.CompiledSQL
			var err error
			if c.debug {
				result, err = t.Trace(q, func(stage string, tree any) {
					writeTree(&b, stage, tree)
				})
			} else {
				result, err = translate(q)
			}
			if err != nil {
				return err
			}
			b.WriteString(result.SQL)
			b.WriteString(";\n")
			outputs[k] = b.String()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, out := range outputs {
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

func writeTree(b *strings.Builder, stage string, tree any) {
	fmt.Fprintf(b, "=== %s\n", stage)
	if node, ok := tree.(ast.Node); ok {
		b.WriteString(sfmt.Tree(node))
		b.WriteByte('\n')
		return
	}
	pretty.Fprintf(b, "%# v\n", tree)
}
