package semantic

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/brimdata/htsql/catalog"
	"github.com/brimdata/htsql/compiler/ast"
	"github.com/brimdata/htsql/compiler/semantic/sem"
)

// lookup finds the recipe for a name in a scope.  Arity is the number of
// call arguments or -1 for a plain name.  It returns nil when the name is
// not defined.
func (b *Binder) lookup(scope sem.Binding, name string, arity int) sem.Recipe {
	key := catalog.Normalize(name)
	switch s := scope.(type) {
	case *sem.Root:
		if arity < 0 {
			if t := b.catalog.LookupTable(name); t != nil {
				return &sem.FreeTableRecipe{Table: t}
			}
		}
		return nil
	case *sem.Table, *sem.Attached, *sem.Moniker, *sem.Complement:
		if arity >= 0 {
			return nil
		}
		t := sem.TableOf(s)
		if c := t.LookupColumn(name); c != nil {
			return &sem.ColumnRecipe{Column: c}
		}
		j, err := t.LookupLink(name)
		if err != nil {
			return &sem.AmbiguousRecipe{Alternatives: ambiguousLinks(t, key)}
		}
		if j != nil {
			return &sem.AttachedTableRecipe{Join: j}
		}
		return nil
	case *sem.Selection:
		if arity < 0 {
			for k, title := range s.Titles {
				if catalog.Normalize(title) == key {
					return &sem.BindingRecipe{Binding: s.Elems[k]}
				}
			}
		}
		return b.lookup(s.Scope, name, arity)
	case *sem.Quotient:
		if arity >= 0 {
			return nil
		}
		for k, title := range s.Titles {
			if catalog.Normalize(title) == key {
				return &sem.KernelRecipe{Quotient: s, Index: k}
			}
		}
		if t := sem.TableOf(s.Seed); t != nil && catalog.Normalize(t.Name) == key {
			return &sem.ComplementRecipe{Quotient: s}
		}
		return nil
	case *sem.Definition:
		if !s.IsReference && catalog.Normalize(s.Name) == key && s.Arity == arity {
			return s.Recipe
		}
		return b.lookup(s.Scope, name, arity)
	case *sem.Sieve, *sem.Sort, *sem.Direction:
		return b.lookup(s.Base(), name, arity)
	}
	return nil
}

func ambiguousLinks(t *catalog.Table, key string) []string {
	var names []string
	for _, j := range t.Links() {
		if catalog.Normalize(j.Name) == key {
			names = append(names, j.String())
		}
	}
	return names
}

// names lists the names visible in a scope, for hints.
func (b *Binder) names(scope sem.Binding) []string {
	switch s := scope.(type) {
	case *sem.Root:
		return b.catalog.TableNames()
	case *sem.Table, *sem.Attached, *sem.Moniker, *sem.Complement:
		return sem.TableOf(s).Names()
	case *sem.Selection:
		return append(append([]string{}, s.Titles...), b.names(s.Scope)...)
	case *sem.Quotient:
		names := append([]string{}, s.Titles...)
		if t := sem.TableOf(s.Seed); t != nil {
			names = append(names, t.Name)
		}
		return names
	case *sem.Definition:
		names := b.names(s.Scope)
		if !s.IsReference {
			names = append(names, s.Name)
		}
		return names
	case *sem.Sieve, *sem.Sort, *sem.Direction:
		return b.names(s.Base())
	}
	return nil
}

// hint suggests the candidates closest to a misspelled name.
func hint(name string, candidates []string) string {
	key := catalog.Normalize(name)
	limit := max(2, len(key)/3)
	type scored struct {
		name string
		dist int
	}
	var matches []scored
	seen := make(map[string]bool)
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		if d := levenshtein.ComputeDistance(key, catalog.Normalize(c)); d <= limit {
			matches = append(matches, scored{c, d})
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })
	var names []string
	for _, m := range matches[:min(3, len(matches))] {
		names = append(names, m.name)
	}
	return "perhaps you had in mind: " + strings.Join(names, ", ")
}

func (b *Binder) bindName(n *ast.Identifier, scope sem.Binding) (sem.Binding, error) {
	recipe := b.lookup(scope, n.Name, -1)
	if recipe == nil {
		return nil, errorf(n, "unrecognized attribute '%s'", n.Name).WithHint(hint(n.Name, b.names(scope)))
	}
	return b.resolve(recipe, n, scope, nil)
}

func (b *Binder) bindReference(n *ast.Reference, scope sem.Binding) (sem.Binding, error) {
	key := catalog.Normalize(n.Name)
	var names []string
	for s := scope; s != nil; s = s.Base() {
		if d, ok := s.(*sem.Definition); ok && d.IsReference {
			if catalog.Normalize(d.Name) == key {
				return b.resolve(d.Recipe, n, scope, nil)
			}
			names = append(names, d.Name)
		}
	}
	return nil, errorf(n, "unrecognized reference '$%s'", n.Name).WithHint(hint(n.Name, names))
}

// resolve builds the binding described by a recipe.  Args holds the
// bound arguments of a call.
func (b *Binder) resolve(recipe sem.Recipe, node ast.Node, scope sem.Binding, args []sem.Binding) (sem.Binding, error) {
	loc := sem.Loc{Scope: scope, AST: node}
	switch r := recipe.(type) {
	case *sem.BindingRecipe:
		return r.Binding, nil
	case *sem.ColumnRecipe:
		return &sem.Column{Loc: loc, Column: r.Column}, nil
	case *sem.FreeTableRecipe:
		return &sem.Table{Loc: loc, Table: r.Table}, nil
	case *sem.AttachedTableRecipe:
		return &sem.Attached{Loc: loc, Join: r.Join}, nil
	case *sem.ComplementRecipe:
		return &sem.Complement{Loc: loc, Quotient: r.Quotient}, nil
	case *sem.KernelRecipe:
		return &sem.Kernel{Loc: loc, Quotient: r.Quotient, Index: r.Index}, nil
	case *sem.SubstitutionRecipe:
		if len(args) != len(r.Params) {
			return nil, errorf(node, "'%s' expects %d arguments; got %d", r.Name, len(r.Params), len(args))
		}
		s := r.Scope
		if s == nil {
			s = scope
		}
		for k, param := range r.Params {
			s = &sem.Definition{
				Loc:         sem.Loc{Scope: s},
				Name:        param,
				Arity:       -1,
				IsReference: true,
				Recipe:      &sem.BindingRecipe{Binding: args[k]},
			}
		}
		return b.bind(r.Body, s)
	case *sem.AmbiguousRecipe:
		return nil, errorf(node, "ambiguous name; candidates are: %s", strings.Join(r.Alternatives, ", "))
	}
	return nil, errorf(node, "unexpected recipe %T", recipe)
}
