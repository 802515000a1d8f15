package sem

import (
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/ast"
)

// Recipe describes how to build the binding a name refers to.  The binder
// interprets recipes when it resolves a name in a scope.
type Recipe interface {
	recipeNode()
}

type (
	// BindingRecipe resolves to a binding built earlier, such as a
	// field of a selection.
	BindingRecipe struct {
		Binding Binding
	}
	ColumnRecipe struct {
		Column *catalog.Column
	}
	FreeTableRecipe struct {
		Table *catalog.Table
	}
	AttachedTableRecipe struct {
		Join *catalog.Join
	}
	ComplementRecipe struct {
		Quotient *Quotient
	}
	KernelRecipe struct {
		Quotient *Quotient
		Index    int
	}
	// SubstitutionRecipe binds Body wherever the name is used, with each
	// parameter defined as a reference to the corresponding argument.
	// Names in Body resolve in Scope, the scope the definition extends.
	SubstitutionRecipe struct {
		Name   string
		Params []string
		Body   ast.Node
		Scope  Binding
	}
	// AmbiguousRecipe is the result of a lookup that matched several
	// candidates.
	AmbiguousRecipe struct {
		Alternatives []string
	}
)

func (*BindingRecipe) recipeNode()       {}
func (*ColumnRecipe) recipeNode()        {}
func (*FreeTableRecipe) recipeNode()     {}
func (*AttachedTableRecipe) recipeNode() {}
func (*ComplementRecipe) recipeNode()    {}
func (*KernelRecipe) recipeNode()        {}
func (*SubstitutionRecipe) recipeNode()  {}
func (*AmbiguousRecipe) recipeNode()     {}
