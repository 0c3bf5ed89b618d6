package visitor

import (
	"fmt"

	"github.com/DeusData/symbol-indexer/internal/engine"
	"github.com/DeusData/symbol-indexer/internal/fqn"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/scope"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

var declaration = engine.ResolveOptions{Erase: true, Declaration: true}

func (v *Visitor) visitPackage(n, _ *syntax.Node, _ model.AstType) error {
	v.ctx.EnterPackage(n.Name)
	return nil
}

func (v *Visitor) visitImport(n, _ *syntax.Node, _ model.AstType) error {
	if n.Name == "" {
		return unresolved(n)
	}
	node, err := v.ctx.CreateNode(n.Range, n.Name, model.AstUsage, model.SymImport, n.Name, 0)
	if err != nil {
		return err
	}
	return v.ctx.RecordImport(n.Name, n.Has(syntax.FlagStaticImport), n.Has(syntax.FlagWildcard), node.ID)
}

func (v *Visitor) visitTypeDecl(n, _ *syntax.Node, access model.AstType) error {
	b, _ := n.Binding.(*syntax.TypeBinding)
	if b == nil {
		return unresolved(n)
	}
	e, err := v.ctx.ResolveType(b, declaration)
	if err != nil {
		return err
	}
	if err := v.declareType(n, b, e); err != nil {
		return err
	}
	if v.ctx.TopLevelType == "" {
		v.ctx.TopLevelType = e.QualifiedName
	}

	// Local classes carry their own qualified name.
	name, override := scope.Named(e.Name), false
	if fqn.JoinQN(v.ctx.Frame.QualifiedName(), e.Name) != e.QualifiedName {
		name, override = scope.Named(e.QualifiedName), true
	}
	defer v.push(name, e, nil, override)()
	return v.visitChildren(n, nil, access)
}

func (v *Visitor) visitAnonymousClass(n, _ *syntax.Node, access model.AstType) error {
	b, _ := n.Binding.(*syntax.TypeBinding)
	if b == nil {
		return unresolved(n)
	}
	outer := v.ctx.Frame.Type()
	if outer == nil {
		return fmt.Errorf("%w: anonymous class outside a type", engine.ErrUnresolved)
	}
	qn := v.ctx.NextAnonymousName(outer)
	anon := *b
	if anon.QualifiedName == "" {
		anon.QualifiedName = qn
	}
	anon.Name = ""
	e, err := v.ctx.ResolveType(&anon, declaration)
	if err != nil {
		return err
	}
	if err := v.declareType(n, &anon, e); err != nil {
		return err
	}
	defer v.push(scope.Named(e.QualifiedName), e, nil, true)()
	return v.visitChildren(n, nil, access)
}

// declareType records the definition of a named or anonymous type.
func (v *Visitor) declareType(n *syntax.Node, b *syntax.TypeBinding, e *model.Entity) error {
	decl := &model.Entity{
		Modifiers:   n.Modifiers | b.Modifiers,
		TypeParams:  b.TypeParams,
		IsEnum:      b.IsEnum || n.Has(syntax.FlagEnum),
		IsInterface: b.IsInterface || n.Has(syntax.FlagInterface),
		Interfaces:  []int64{},
		// The body rebuilds these as it is visited.
		Members: []int64{},
		Fields:  []int64{},
	}
	var err error
	if decl.SuperType, err = v.typeHash(n, b.Superclass); err != nil {
		return err
	}
	for _, i := range b.Interfaces {
		h, err := v.typeHash(n, i)
		if err != nil {
			return err
		}
		model.AddUnique(&decl.Interfaces, h)
	}

	st := model.SymType
	if decl.IsEnum {
		st = model.SymEnum
	}
	node, err := v.ctx.CreateNode(n.Range, e.Name, model.AstDefinition, st, e.MangledName,
		engine.StartAdjustment(n, v.ctx.Source))
	if err != nil {
		return err
	}
	decl.AstNodeID = node.ID
	if err := v.ctx.ApplyDeclaration(e, decl); err != nil {
		return err
	}
	if err := v.ctx.AddRelation(v.ctx.Frame.Type(), model.RelMember, e.Hash); err != nil {
		return err
	}
	return v.ctx.RecordDoc(e, n.Doc)
}

func (v *Visitor) visitMethodDecl(n, _ *syntax.Node, access model.AstType) error {
	b, _ := n.Binding.(*syntax.MethodBinding)
	if b == nil {
		return unresolved(n)
	}
	e, err := v.ctx.ResolveFunction(b, declaration)
	if err != nil {
		return err
	}
	parts, err := fqn.Parse(e.MangledName, true)
	if err != nil {
		return err
	}

	decl := &model.Entity{
		Modifiers:     n.Modifiers | b.Modifiers,
		TypeParams:    b.TypeParams,
		Signature:     parts.Suffix,
		IsConstructor: b.IsConstructor,
		Params:        []int64{},
		Locals:        []int64{},
	}
	if decl.ReturnType, err = v.typeHash(n, b.ReturnType); err != nil {
		return err
	}

	at := model.AstDefinition
	if n.Has(syntax.FlagNoBody) {
		at = model.AstDeclaration
	}
	node, err := v.ctx.CreateNode(n.Range, b.Name, at, model.SymFunction, e.MangledName,
		engine.StartAdjustment(n, v.ctx.Source))
	if err != nil {
		return err
	}
	decl.AstNodeID = node.ID
	if err := v.ctx.ApplyDeclaration(e, decl); err != nil {
		return err
	}
	if err := v.ctx.AddRelation(v.ctx.Frame.Type(), model.RelMember, e.Hash); err != nil {
		return err
	}
	if err := v.ctx.RecordDoc(e, n.Doc); err != nil {
		return err
	}

	defer v.push(scope.Named(parts.Name+parts.Suffix), nil, e, false)()
	return v.visitChildren(n, nil, access)
}

func (v *Visitor) visitParam(n, parent *syntax.Node, access model.AstType) error {
	lambdaParam := parent != nil && parent.Kind == syntax.KindLambda
	return v.declareVariable(n, access, func(fn, decl *model.Entity) string {
		if lambdaParam {
			decl.LocalOf = fn.Hash
			return model.RelLocal
		}
		decl.ParamOf = fn.Hash
		return model.RelParam
	})
}

func (v *Visitor) visitVarDecl(n, _ *syntax.Node, access model.AstType) error {
	return v.declareVariable(n, access, func(fn, decl *model.Entity) string {
		decl.LocalOf = fn.Hash
		return model.RelLocal
	})
}

// declareVariable records a parameter or local, declares it in the current
// frame and then visits its type and initializer.
func (v *Visitor) declareVariable(n *syntax.Node, access model.AstType, own func(fn, decl *model.Entity) string) error {
	b, _ := n.Binding.(*syntax.VariableBinding)
	if b == nil {
		return unresolved(n)
	}
	e, err := v.ctx.ResolveVariable(b, declaration)
	if err != nil {
		return err
	}
	decl := &model.Entity{Modifiers: n.Modifiers | b.Modifiers}
	if decl.DeclType, err = v.typeHash(n, b.Type); err != nil {
		return err
	}
	fn := v.ctx.Frame.Function()
	rel := ""
	if fn != nil {
		rel = own(fn, decl)
	}

	node, err := v.ctx.CreateNode(n.Range, b.Name, model.AstDefinition, model.SymVariable, e.MangledName,
		engine.StartAdjustment(n, v.ctx.Source))
	if err != nil {
		return err
	}
	decl.AstNodeID = node.ID
	if err := v.ctx.ApplyDeclaration(e, decl); err != nil {
		return err
	}
	if rel != "" {
		if err := v.ctx.AddRelation(fn, rel, e.Hash); err != nil {
			return err
		}
	}
	v.ctx.Frame.Declare(b.Name, node.ID)
	return v.visitChildren(n, nil, access)
}

func (v *Visitor) visitFieldDecl(n, _ *syntax.Node, access model.AstType) error {
	b, _ := n.Binding.(*syntax.VariableBinding)
	if b == nil {
		return unresolved(n)
	}
	e, err := v.ctx.ResolveVariable(b, declaration)
	if err != nil {
		return err
	}
	owner := v.ctx.Frame.Type()
	decl := &model.Entity{Modifiers: n.Modifiers | b.Modifiers}
	if owner != nil {
		decl.FieldOf = owner.Hash
	}
	if decl.DeclType, err = v.typeHash(n, b.Type); err != nil {
		return err
	}

	node, err := v.ctx.CreateNode(n.Range, b.Name, model.AstDefinition, model.SymVariable, e.MangledName,
		engine.StartAdjustment(n, v.ctx.Source))
	if err != nil {
		return err
	}
	decl.AstNodeID = node.ID
	if err := v.ctx.ApplyDeclaration(e, decl); err != nil {
		return err
	}
	if err := v.ctx.AddRelation(owner, model.RelField, e.Hash); err != nil {
		return err
	}
	if err := v.ctx.RecordDoc(e, n.Doc); err != nil {
		return err
	}
	return v.visitChildren(n, nil, access)
}

func (v *Visitor) visitEnumConstant(n, _ *syntax.Node, access model.AstType) error {
	b, _ := n.Binding.(*syntax.VariableBinding)
	if b == nil {
		return unresolved(n)
	}
	e, err := v.ctx.ResolveEnumConstant(b)
	if err != nil {
		return err
	}
	node, err := v.ctx.CreateNode(n.Range, b.Name, model.AstDefinition, model.SymEnumConstant, e.MangledName,
		engine.StartAdjustment(n, v.ctx.Source))
	if err != nil {
		return err
	}
	decl := &model.Entity{
		AstNodeID: node.ID,
		Modifiers: model.ModPublic | model.ModStatic | model.ModFinal,
		EnumType:  e.EnumType,
		Ordinal:   b.Ordinal,
	}
	if err := v.ctx.ApplyDeclaration(e, decl); err != nil {
		return err
	}
	if err := v.ctx.AddRelation(v.ctx.Frame.Type(), model.RelField, e.Hash); err != nil {
		return err
	}
	if err := v.ctx.RecordDoc(e, n.Doc); err != nil {
		return err
	}
	return v.visitChildren(n, nil, access)
}

func (v *Visitor) visitBlock(n, _ *syntax.Node, access model.AstType) error {
	defer v.push(scope.Generated(), nil, nil, false)()
	return v.visitChildren(n, nil, access)
}
