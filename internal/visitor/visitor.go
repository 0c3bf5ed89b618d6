// Package visitor walks a resolved syntax tree once and records its
// entities and occurrences through an engine.Context.
package visitor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/DeusData/symbol-indexer/internal/engine"
	"github.com/DeusData/symbol-indexer/internal/fqn"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/scope"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

type handler func(v *Visitor, n, parent *syntax.Node, access model.AstType) error

var dispatch map[syntax.Kind]handler

func init() {
	dispatch = map[syntax.Kind]handler{
		syntax.KindPackage:          (*Visitor).visitPackage,
		syntax.KindImport:           (*Visitor).visitImport,
		syntax.KindTypeDecl:         (*Visitor).visitTypeDecl,
		syntax.KindAnonymousClass:   (*Visitor).visitAnonymousClass,
		syntax.KindEnumConstantDecl: (*Visitor).visitEnumConstant,
		syntax.KindMethodDecl:       (*Visitor).visitMethodDecl,
		syntax.KindParam:            (*Visitor).visitParam,
		syntax.KindVarDecl:          (*Visitor).visitVarDecl,
		syntax.KindFieldDecl:        (*Visitor).visitFieldDecl,
		syntax.KindBlock:            (*Visitor).visitBlock,
		syntax.KindLambda:           (*Visitor).visitBlock,
		syntax.KindName:             (*Visitor).visitName,
		syntax.KindFieldAccess:      (*Visitor).visitName,
		syntax.KindTypeRef:          (*Visitor).visitTypeRef,
		syntax.KindCall:             (*Visitor).visitCall,
		syntax.KindNew:              (*Visitor).visitCall,
	}
}

// Visitor carries the walk state of one unit.
type Visitor struct {
	ctx *engine.Context
}

// Visit walks root. Unresolved bindings, malformed names and panics inside
// a construct become problems and skip only that construct. Any other error
// aborts the walk.
func Visit(ctx *engine.Context, root *syntax.Node) error {
	v := &Visitor{ctx: ctx}
	return v.visit(root, nil, model.AstRead)
}

func (v *Visitor) visit(n, parent *syntax.Node, access model.AstType) (err error) {
	if n == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("visitor.panic", "path", v.ctx.File.Path, "kind", n.Kind.String(), "line", n.Range.StartLine, "err", r)
			v.ctx.Problems.Addf(model.SeverityError, n.Range, "internal error in %s: %v", n.Kind, r)
			err = nil
		}
	}()

	h, ok := dispatch[n.Kind]
	if !ok {
		h = (*Visitor).visitChildren
	}
	err = h(v, n, parent, access)
	if err != nil && recoverable(err) {
		v.report(n, err)
		return nil
	}
	return err
}

func (v *Visitor) visitChildren(n, _ *syntax.Node, access model.AstType) error {
	for _, c := range n.Children {
		if err := v.visit(c, n, Classify(access, c.Role)); err != nil {
			return err
		}
	}
	return nil
}

// push enters a frame and returns the function restoring the current one.
func (v *Visitor) push(name scope.Name, typ, fn *model.Entity, override bool) func() {
	prev := v.ctx.Frame
	v.ctx.Frame = prev.Push(name, typ, fn, override)
	return func() { v.ctx.Frame = prev }
}

func recoverable(err error) bool {
	return errors.Is(err, engine.ErrUnresolved) || errors.Is(err, fqn.ErrMalformedName)
}

func (v *Visitor) report(n *syntax.Node, err error) {
	what := n.Kind.String()
	if n.Name != "" {
		what = fmt.Sprintf("%s %q", what, n.Name)
	}
	msg := fmt.Sprintf("cannot resolve %s: %v", what, err)
	if errors.Is(err, fqn.ErrMalformedName) {
		msg = fmt.Sprintf("skipped %s: %v", what, err)
	}
	v.ctx.Problems.Add(model.SeverityError, n.Range, msg)
}

func unresolved(n *syntax.Node) error {
	return fmt.Errorf("%w: no binding for %s", engine.ErrUnresolved, n.Kind)
}

// typeUse resolves a referenced type and notes it for implicit imports.
// Type variables have no entity and yield nil.
func (v *Visitor) typeUse(b *syntax.TypeBinding) (*model.Entity, error) {
	if b != nil && elem(b).IsTypeVar {
		return nil, nil
	}
	e, err := v.ctx.ResolveType(b, engine.ResolveOptions{})
	if err != nil {
		return nil, err
	}
	if !elem(b).IsPrimitive {
		if err := v.ctx.NoteTypeUse(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func elem(b *syntax.TypeBinding) *syntax.TypeBinding {
	for b.IsArray && b.Elem != nil {
		b = b.Elem
	}
	return b
}

// typeHash resolves an optional type reference of a declaration.
// Unresolvable references are reported and yield 0.
func (v *Visitor) typeHash(n *syntax.Node, b *syntax.TypeBinding) (int64, error) {
	if b == nil {
		return 0, nil
	}
	e, err := v.typeUse(b)
	if err != nil {
		if recoverable(err) {
			v.report(n, err)
			return 0, nil
		}
		return 0, err
	}
	if e == nil {
		return 0, nil
	}
	return e.Hash, nil
}
