// Package compiler translates queries into SQL.  A Translator holds the
// catalog and the backend a query is compiled for and runs the pipeline
// stage by stage: parse, bind, encode, compile, assemble, reduce and
// serialize.  The stages themselves are pure; the Translator is where
// translations are logged.
package compiler

import (
	"fmt"
	"time"

	"github.com/brimdata/htsql"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/coerce"
	"github.com/brimdata/htsql/compiler/dagen"
	"github.com/brimdata/htsql/compiler/dump"
	"github.com/brimdata/htsql/compiler/frame"
	"github.com/brimdata/htsql/compiler/optimizer"
	"github.com/brimdata/htsql/compiler/parser"
	"github.com/brimdata/htsql/compiler/semantic"
	"github.com/brimdata/htsql/compiler/srcfiles"
	"github.com/brimdata/htsql/compiler/term"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// CompiledSQL is the result of a translation.
type CompiledSQL struct {
	SQL string `json:"sql"`
	// Parameters lists the placeholders of SQL in order.  Literals are
	// always inlined, so it is empty.
	Parameters []string `json:"parameters"`
	Shape      []Column `json:"shape"`
	// Format is the name of the format command ending the query, if any.
	Format string `json:"format,omitempty"`
}

// Column describes one output column of a query.
type Column struct {
	Title  string       `json:"title"`
	Domain htsql.Domain `json:"domain"`
}

type Translator struct {
	catalog *catalog.Catalog
	dialect dump.Dialect
	engine  *coerce.Engine
	limit   int64
	logger  *zap.Logger
}

// NewTranslator returns a translator for queries over cat.  A nil logger
// disables logging.
func NewTranslator(cat *catalog.Catalog, conf Config, logger *zap.Logger) (*Translator, error) {
	d, err := LookupDialect(conf.Backend)
	if err != nil {
		return nil, err
	}
	if conf.Limit < 0 {
		return nil, fmt.Errorf("negative row limit: %d", conf.Limit)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{
		catalog: cat,
		dialect: d,
		engine:  coerce.NewEngine(),
		limit:   conf.Limit,
		logger:  logger.Named("translator"),
	}, nil
}

func (t *Translator) Dialect() dump.Dialect {
	return t.dialect
}

// Translate compiles a query for the sqlite backend with no row limit.
func Translate(query string, cat *catalog.Catalog) (*CompiledSQL, error) {
	t, err := NewTranslator(cat, Config{}, nil)
	if err != nil {
		return nil, err
	}
	return t.Translate(query)
}

// Translate compiles a query.  Errors are *srcfiles.Error values whose
// kind names the stage that failed.
func (t *Translator) Translate(query string) (*CompiledSQL, error) {
	return t.Trace(query, nil)
}

// Trace is like Translate but also hands the tree produced by each stage
// to fn, labeled with the name of the stage.
func (t *Translator) Trace(query string, fn func(stage string, tree any)) (result *CompiledSQL, err error) {
	if fn == nil {
		fn = func(string, any) {}
	}
	logger := t.logger.With(zap.Stringer("id", ksuid.New()))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("translation panic", zap.Any("panic", r))
			result, err = nil, srcfiles.New(srcfiles.CompileError, srcfiles.Mark{}, "internal error: %v", r)
		}
		if err != nil {
			logger.Debug("translation failed", zap.Error(err))
		}
	}()
	logger.Debug("parse", zap.String("query", query))
	node, err := parser.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	fn("parse", node)
	seg, format := unwrapCommands(node)
	logger.Debug("bind", zap.String("format", format))
	bound, err := semantic.NewBinder(t.catalog, t.engine).Bind(seg)
	if err != nil {
		return nil, err
	}
	fn("bind", bound)
	logger.Debug("encode", zap.Int64("limit", t.limit))
	g, encoded, err := dagen.Encode(bound, t.limit)
	if err != nil {
		return nil, err
	}
	fn("encode", encoded)
	logger.Debug("compile", zap.Int("codes", len(encoded.Elems)))
	compiled, err := term.Compile(g, encoded)
	if err != nil {
		return nil, err
	}
	fn("compile", compiled)
	logger.Debug("assemble")
	paginator, _ := t.dialect.(frame.Paginator)
	assembled, err := frame.Assemble(g, compiled, paginator)
	if err != nil {
		return nil, err
	}
	fn("assemble", assembled)
	logger.Debug("reduce")
	reduced := optimizer.Reduce(assembled)
	fn("reduce", reduced)
	logger.Debug("dump", zap.String("backend", t.dialect.Name()))
	sql, err := dump.Serialize(reduced, t.dialect)
	if err != nil {
		return nil, err
	}
	shape := make([]Column, 0, len(bound.Elems))
	for k, elem := range bound.Elems {
		shape = append(shape, Column{Title: bound.Titles[k], Domain: elem.Domain()})
	}
	logger.Info("translated",
		zap.Int("sql_length", len(sql)),
		zap.Duration("elapsed", time.Since(start)))
	return &CompiledSQL{
		SQL:        sql,
		Parameters: []string{},
		Shape:      shape,
		Format:     format,
	}, nil
}

// unwrapCommands strips format commands from a query.  The outermost
// command names the format.
func unwrapCommands(node ast.Node) (*ast.Segment, string) {
	var format string
	for {
		switch n := node.(type) {
		case *ast.Command:
			if format == "" {
				format = n.Name
			}
			node = n.Base
		case *ast.Segment:
			return n, format
		default:
			return &ast.Segment{Branch: node}, format
		}
	}
}
