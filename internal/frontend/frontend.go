// Package frontend turns tree-sitter parse trees into syntax trees whose
// nodes carry bindings. Binding is best effort: it uses the unit's own
// declarations, its imports and the implicit packages of the language.
// Names it cannot bind are left with a nil binding.
package frontend

import (
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/parser"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

// Frontend builds the resolved syntax tree of a unit.
type Frontend interface {
	Build(unit *syntax.Unit) (*syntax.Node, error)
}

// For returns the front end of a language.
func For(l lang.Language) (Frontend, error) {
	switch l {
	case lang.Java:
		return javaFrontend{}, nil
	case lang.Python:
		return pythonFrontend{}, nil
	}
	return nil, fmt.Errorf("no front end for language %q", l)
}

// parse runs the pooled parser and records the syntax errors on unit.
// The caller must close the tree.
func parse(unit *syntax.Unit) (*tree_sitter.Tree, error) {
	tree, err := parser.Parse(unit.Language, unit.Source)
	if err != nil {
		return nil, err
	}
	unit.SyntaxErrors = nil
	for _, n := range parser.ErrorNodes(tree.RootNode()) {
		unit.SyntaxErrors = append(unit.SyntaxErrors, rangeOf(n))
	}
	return tree, nil
}

func rangeOf(n *tree_sitter.Node) model.Range {
	start, end := n.StartPosition(), n.EndPosition()
	return model.Range{
		StartLine:   int(start.Row) + 1,
		StartCol:    int(start.Column) + 1,
		EndLine:     int(end.Row) + 1,
		EndCol:      int(end.Column) + 1,
		StartOffset: int(n.StartByte()),
		EndOffset:   int(n.EndByte()),
	}
}

func text(n *tree_sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return parser.NodeText(n, source)
}

func newNode(kind syntax.Kind, n *tree_sitter.Node, name string, b syntax.Binding) *syntax.Node {
	return &syntax.Node{Kind: kind, Range: rangeOf(n), Name: name, Binding: b}
}

// add appends the non-nil children with the given role.
func add(parent *syntax.Node, role syntax.Role, children ...*syntax.Node) {
	for _, c := range children {
		if c == nil {
			continue
		}
		if role != syntax.RoleNone {
			c.Role = role
		}
		parent.Children = append(parent.Children, c)
	}
}

// container wraps children in a node of kind, or returns nil when there
// are none.
func container(kind syntax.Kind, n *tree_sitter.Node, children []*syntax.Node) *syntax.Node {
	var kept []*syntax.Node
	for _, c := range children {
		if c != nil {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	out := newNode(kind, n, "", nil)
	out.Children = kept
	return out
}

// typeVar, prim and objectType build the common leaf bindings.
func prim(name string) *syntax.TypeBinding {
	return &syntax.TypeBinding{QualifiedName: name, Name: name, IsPrimitive: true}
}

func typeVar(name string) *syntax.TypeBinding {
	return &syntax.TypeBinding{QualifiedName: name, Name: name, IsTypeVar: true}
}

func arrayOf(elem *syntax.TypeBinding, dims int) *syntax.TypeBinding {
	t := elem
	for i := 0; i < dims; i++ {
		t = &syntax.TypeBinding{QualifiedName: t.QualifiedName, Name: t.Name, IsArray: true, Elem: t}
	}
	return t
}

// subst replaces type variables of params by args.
func subst(t *syntax.TypeBinding, params []string, args []*syntax.TypeBinding) *syntax.TypeBinding {
	if t == nil || len(args) == 0 {
		return t
	}
	if t.IsTypeVar {
		for i, p := range params {
			if p == t.Name && i < len(args) {
				return args[i]
			}
		}
		return t
	}
	if t.IsArray && t.Elem != nil {
		e := subst(t.Elem, params, args)
		if e == t.Elem {
			return t
		}
		return arrayOf(e, 1)
	}
	if len(t.TypeArgs) == 0 {
		return t
	}
	c := *t
	c.TypeArgs = make([]*syntax.TypeBinding, len(t.TypeArgs))
	for i, a := range t.TypeArgs {
		c.TypeArgs[i] = subst(a, params, args)
	}
	return &c
}

// instantiate specializes a declared method for a receiver with type
// arguments.
func instantiate(decl *syntax.MethodBinding, recv *syntax.TypeBinding) *syntax.MethodBinding {
	if recv == nil || len(recv.TypeArgs) == 0 || decl.DeclaringType == nil {
		return decl
	}
	params := decl.DeclaringType.TypeParams
	m := &syntax.MethodBinding{
		Name:          decl.Name,
		DeclaringType: recv,
		ReturnType:    subst(decl.ReturnType, params, recv.TypeArgs),
		Modifiers:     decl.Modifiers,
		IsConstructor: decl.IsConstructor,
		TypeParams:    decl.TypeParams,
		Declaration:   decl,
	}
	m.ParamTypes = make([]*syntax.TypeBinding, len(decl.ParamTypes))
	for i, p := range decl.ParamTypes {
		m.ParamTypes[i] = subst(p, params, recv.TypeArgs)
	}
	return m
}
