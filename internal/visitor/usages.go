package visitor

import (
	"github.com/DeusData/symbol-indexer/internal/engine"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

func (v *Visitor) visitName(n, parent *syntax.Node, access model.AstType) error {
	switch b := n.Binding.(type) {
	case *syntax.VariableBinding:
		if b == nil {
			return unresolved(n)
		}
		return v.variableUse(n, b, access)
	case *syntax.TypeBinding:
		// A type used as a qualifier, e.g. Math in Math.max(a, b).
		return v.visitTypeRef(n, parent, access)
	case *syntax.MethodBinding:
		return v.visitCall(n, parent, access)
	}
	return unresolved(n)
}

func (v *Visitor) variableUse(n *syntax.Node, b *syntax.VariableBinding, access model.AstType) error {
	var (
		e   *model.Entity
		err error
	)
	st := model.SymVariable
	switch {
	case b.IsEnumConstant:
		e, err = v.ctx.ResolveEnumConstant(b)
		st = model.SymEnumConstant
	case b.IsField:
		e, err = v.ctx.ResolveVariable(b, engine.ResolveOptions{})
	default:
		e, _, err = v.ctx.ResolveLocal(b.Name)
	}
	if err != nil {
		return err
	}
	if access != model.AstWrite {
		access = model.AstRead
	}
	if _, err := v.ctx.CreateNode(n.Range, b.Name, access, st, e.MangledName, 0); err != nil {
		return err
	}
	return v.visitChildren(n, nil, access)
}

func (v *Visitor) visitTypeRef(n, parent *syntax.Node, access model.AstType) error {
	b, _ := n.Binding.(*syntax.TypeBinding)
	if b == nil {
		return unresolved(n)
	}
	e, err := v.typeUse(b)
	if err != nil {
		return err
	}
	if e != nil && !elem(b).IsPrimitive {
		st := model.SymType
		if e.IsEnum {
			st = model.SymEnum
		}
		if _, err := v.ctx.CreateNode(n.Range, e.Name, typeLocation(n, parent), st, e.MangledName, 0); err != nil {
			return err
		}
	}
	return v.visitChildren(n, nil, access)
}

// visitCall records a method call or an object creation.
func (v *Visitor) visitCall(n, _ *syntax.Node, access model.AstType) error {
	b, _ := n.Binding.(*syntax.MethodBinding)
	if b == nil {
		return unresolved(n)
	}
	e, err := v.ctx.ResolveFunction(b, engine.ResolveOptions{})
	if err != nil {
		return err
	}
	if n.Kind == syntax.KindCall && b.DeclaringType != nil && !b.DeclaringType.IsAnonymous {
		owner, err := v.ctx.ResolveType(b.DeclaringType, engine.ResolveOptions{})
		if err != nil {
			return err
		}
		if err := v.ctx.NoteTypeUse(owner); err != nil {
			return err
		}
	}
	if _, err := v.ctx.CreateNode(n.Range, b.Name, callType(b), model.SymFunction, e.MangledName, 0); err != nil {
		return err
	}
	return v.visitChildren(n, nil, access)
}
