package engine

import (
	"errors"
	"fmt"

	"github.com/DeusData/symbol-indexer/internal/fqn"
	"github.com/DeusData/symbol-indexer/internal/identity"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

// ErrUnresolved is returned for a nil binding or a local that is not in
// scope.
var ErrUnresolved = errors.New("unresolved binding")

// ResolveOptions controls Resolve.
type ResolveOptions struct {
	// Erase resolves straight to the generic-erased entity. Declarations
	// use it.
	Erase bool
	// Declaration marks calls from a declaration site.
	Declaration bool
}

// Resolve maps a binding to its entity, creating it on first sight.
func (c *Context) Resolve(b syntax.Binding, opts ResolveOptions) (*model.Entity, error) {
	switch b := b.(type) {
	case *syntax.TypeBinding:
		return c.ResolveType(b, opts)
	case *syntax.MethodBinding:
		return c.ResolveFunction(b, opts)
	case *syntax.VariableBinding:
		if b != nil && b.IsEnumConstant {
			return c.ResolveEnumConstant(b)
		}
		return c.ResolveVariable(b, opts)
	}
	return nil, ErrUnresolved
}

// ResolveType resolves a type. Arrays resolve to their element type.
func (c *Context) ResolveType(b *syntax.TypeBinding, opts ResolveOptions) (*model.Entity, error) {
	if b == nil {
		return nil, ErrUnresolved
	}
	for b.IsArray && b.Elem != nil {
		b = b.Elem
	}
	if b.QualifiedName == "" {
		return nil, fmt.Errorf("%w: type %q has no qualified name", ErrUnresolved, b.Name)
	}
	genQualName := b.GenericName()
	qualName, err := fqn.StripGenericArgs(b.Decl().GenericName())
	if err != nil {
		return nil, err
	}
	name := b.Name
	if name == "" {
		name = lastSegment(qualName)
	}

	fill := func(e *model.Entity) {
		e.Name = name
		e.QualifiedName = qualName
		if opts.Declaration {
			return
		}
		// Facts known from any reference.
		e.IsEnum = b.IsEnum
		e.IsInterface = b.IsInterface
	}
	e, err := c.resolveGeneric(model.KindType, genQualName, qualName, opts, fill)
	if err != nil {
		return nil, err
	}
	if b.IsPrimitive && e.AstNodeID == 0 {
		fake, err := c.CreateFakeNode(e)
		if err != nil {
			return nil, err
		}
		e.AstNodeID = fake.ID
		if err := c.save(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ResolveFunction resolves a method or constructor.
func (c *Context) ResolveFunction(b *syntax.MethodBinding, opts ResolveOptions) (*model.Entity, error) {
	if b == nil || b.DeclaringType == nil {
		return nil, ErrUnresolved
	}
	genQualName := fqn.Mangle(b.DeclaringType.GenericName(), b.Name, b.ParamTypeNames())
	decl := b.Decl()
	if decl.DeclaringType == nil {
		return nil, ErrUnresolved
	}
	qualName, err := fqn.StripGenericArgs(fqn.Mangle(decl.DeclaringType.GenericName(), decl.Name, decl.ParamTypeNames()))
	if err != nil {
		return nil, err
	}
	parts, err := fqn.Parse(qualName, true)
	if err != nil {
		return nil, err
	}

	fill := func(e *model.Entity) {
		e.Name = b.Name
		e.QualifiedName = fqn.RebuildQualified(parts)
		e.Signature = parts.Suffix
		e.IsConstructor = b.IsConstructor
		if !opts.Declaration {
			e.Modifiers = b.Modifiers
		}
	}
	return c.resolveGeneric(model.KindFunction, genQualName, qualName, opts, fill)
}

// ResolveVariable resolves a field, parameter or local. Parameters and
// locals are qualified by the current frame, so this must be called while
// the declaring frame is active; later references go through ResolveLocal.
func (c *Context) ResolveVariable(b *syntax.VariableBinding, opts ResolveOptions) (*model.Entity, error) {
	if b == nil {
		return nil, ErrUnresolved
	}
	var genQualName, qualName string
	if b.IsField {
		if b.DeclaringType == nil {
			return nil, ErrUnresolved
		}
		owner, err := fqn.StripGenericArgs(b.DeclaringType.Decl().GenericName())
		if err != nil {
			return nil, err
		}
		genQualName = b.DeclaringType.GenericName() + "." + b.Name
		qualName = owner + "." + b.Name
	} else {
		genQualName = fqn.JoinQN(c.Frame.QualifiedName(), b.Name)
		qualName = genQualName
		opts.Erase = true
	}

	fill := func(e *model.Entity) {
		e.Name = b.Name
		e.QualifiedName = qualName
		if !opts.Declaration {
			e.Modifiers = b.Modifiers
		}
	}
	return c.resolveGeneric(model.KindVariable, genQualName, qualName, opts, fill)
}

// ResolveLocal finds the entity of a parameter or local visible in the
// current frame, together with its declaration node.
func (c *Context) ResolveLocal(name string) (*model.Entity, *model.AstNode, error) {
	declID, ok := c.Frame.Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s is not in scope", ErrUnresolved, name)
	}
	decl, err := c.Store.FindNode(c.BuildID, declID)
	if err != nil {
		return nil, nil, err
	}
	if decl == nil {
		return nil, nil, fmt.Errorf("%w: declaration of %s is missing", ErrUnresolved, name)
	}
	if e, ok := c.variables[decl.MangledName]; ok {
		return e, decl, nil
	}
	e, err := c.Store.FindEntity(c.BuildID, model.KindVariable, decl.MangledNameHash)
	if err != nil {
		return nil, nil, err
	}
	if e == nil {
		return nil, nil, fmt.Errorf("%w: variable %s has no entity", ErrUnresolved, decl.MangledName)
	}
	c.variables[decl.MangledName] = e
	return e, decl, nil
}

// ResolveEnumConstant resolves an enum constant. Enum constants are never
// generic.
func (c *Context) ResolveEnumConstant(b *syntax.VariableBinding) (*model.Entity, error) {
	if b == nil || b.DeclaringType == nil {
		return nil, ErrUnresolved
	}
	enumType, err := c.ResolveType(b.DeclaringType, ResolveOptions{Erase: true})
	if err != nil {
		return nil, err
	}
	mangled := enumType.QualifiedName + "." + b.Name
	return c.findOrCreate(model.KindEnumConstant, mangled, func(e *model.Entity) {
		e.Name = b.Name
		e.QualifiedName = mangled
		e.EnumType = enumType.Hash
		e.Ordinal = b.Ordinal
	})
}

// resolveGeneric finds or creates the template and, for a usage with type
// arguments, the instantiation linked to it.
func (c *Context) resolveGeneric(kind model.EntityKind, genQualName, qualName string, opts ResolveOptions, fill func(*model.Entity)) (*model.Entity, error) {
	if opts.Erase || genQualName == qualName {
		return c.findOrCreate(kind, qualName, fill)
	}
	tmpl, err := c.findOrCreate(kind, qualName, fill)
	if err != nil {
		return nil, err
	}
	inst, err := c.findOrCreate(kind, genQualName, fill)
	if err != nil {
		return nil, err
	}

	if !tmpl.IsGeneric {
		tmpl.IsGeneric = true
		if err := c.save(tmpl); err != nil {
			return nil, err
		}
	}
	changed := false
	if inst.GenericImpl != tmpl.Hash {
		inst.GenericImpl = tmpl.Hash
		changed = true
	}
	if inst.AstNodeID == 0 {
		declID := tmpl.AstNodeID
		if declID == 0 {
			fake, err := c.CreateFakeNode(tmpl)
			if err != nil {
				return nil, err
			}
			declID = fake.ID
		}
		inst.AstNodeID = declID
		changed = true
	}
	if changed {
		if err := c.save(inst); err != nil {
			return nil, err
		}
	}

	key := kindHash{kind, tmpl.Hash}
	if c.instantiations[key] == nil {
		c.instantiations[key] = map[int64]bool{}
	}
	c.instantiations[key][inst.Hash] = true

	// The template may have been declared after some instantiations were
	// first seen in this unit.
	if tmpl.AstNodeID != 0 {
		for _, e := range c.cache(kind) {
			if !c.instantiations[key][e.Hash] || e.AstNodeID == tmpl.AstNodeID {
				continue
			}
			e.AstNodeID = tmpl.AstNodeID
			if err := c.save(e); err != nil {
				return nil, err
			}
		}
	}
	return inst, nil
}

// propagateDeclaration points every stored instantiation of tmpl at the
// template's declaration node. Placeholder nodes are never propagated.
func (c *Context) propagateDeclaration(tmpl *model.Entity) error {
	if tmpl.AstNodeID == 0 {
		return nil
	}
	decl, err := c.Store.FindNode(c.BuildID, tmpl.AstNodeID)
	if err != nil {
		return err
	}
	if decl == nil || !decl.InFile() {
		return nil
	}
	insts, err := c.Store.FindInstantiations(c.BuildID, tmpl.Kind, tmpl.Hash)
	if err != nil {
		return err
	}
	for _, inst := range insts {
		if inst.AstNodeID == tmpl.AstNodeID {
			continue
		}
		cached := c.cache(tmpl.Kind)[inst.MangledName]
		if cached != nil {
			inst = cached
		}
		inst.AstNodeID = tmpl.AstNodeID
		if err := c.save(inst); err != nil {
			return err
		}
	}
	return nil
}

// findOrCreate returns the entity keyed by Hash(mangled). A new entity gets
// the fields fill sets; an existing one only has its zero fields filled.
func (c *Context) findOrCreate(kind model.EntityKind, mangled string, fill func(*model.Entity)) (*model.Entity, error) {
	cache := c.cache(kind)
	candidate := &model.Entity{
		BuildID:     c.BuildID,
		Kind:        kind,
		Hash:        identity.ID(mangled),
		MangledName: mangled,
	}
	fill(candidate)

	if e, ok := cache[mangled]; ok {
		if e.Fill(candidate) {
			if err := c.save(e); err != nil {
				return nil, err
			}
		}
		return e, nil
	}

	e, err := c.Store.FindEntity(c.BuildID, kind, candidate.Hash)
	if err != nil {
		return nil, err
	}
	if e == nil {
		var created bool
		e, created, err = c.Store.CreateEntity(candidate)
		if err != nil {
			return nil, err
		}
		if created {
			c.EntitiesCreated++
		}
	}
	if e.Fill(candidate) {
		if err := c.save(e); err != nil {
			return nil, err
		}
	}
	cache[mangled] = e
	return e, nil
}

// ApplyDeclaration overwrites the declaration-only fields of e with the
// non-zero fields of decl and persists e.
func (c *Context) ApplyDeclaration(e, decl *model.Entity) error {
	nodeChanged := decl.AstNodeID != 0 && decl.AstNodeID != e.AstNodeID
	if decl.AstNodeID != 0 {
		e.AstNodeID = decl.AstNodeID
	}
	e.Modifiers = decl.Modifiers
	if decl.Name != "" {
		e.Name = decl.Name
	}
	if len(decl.TypeParams) > 0 {
		e.TypeParams = decl.TypeParams
		e.IsGeneric = true
	}
	switch e.Kind {
	case model.KindType:
		e.SuperType = decl.SuperType
		if decl.Interfaces != nil {
			e.Interfaces = decl.Interfaces
		}
		if decl.Members != nil {
			e.Members = decl.Members
		}
		if decl.Fields != nil {
			e.Fields = decl.Fields
		}
		e.IsEnum = decl.IsEnum
		e.IsInterface = decl.IsInterface
	case model.KindFunction:
		e.ReturnType = decl.ReturnType
		if decl.Signature != "" {
			e.Signature = decl.Signature
		}
		e.IsConstructor = decl.IsConstructor
		if decl.Params != nil {
			e.Params = decl.Params
		}
		if decl.Locals != nil {
			e.Locals = decl.Locals
		}
	case model.KindVariable:
		if decl.DeclType != 0 {
			e.DeclType = decl.DeclType
		}
		if decl.ParamOf != 0 || decl.LocalOf != 0 || decl.FieldOf != 0 {
			e.SetOwner(decl.ParamOf, decl.LocalOf, decl.FieldOf)
		}
	case model.KindEnumConstant:
		if decl.EnumType != 0 {
			e.EnumType = decl.EnumType
		}
		e.Ordinal = decl.Ordinal
	}
	if err := c.save(e); err != nil {
		return err
	}
	if nodeChanged && e.IsGeneric {
		return c.propagateDeclaration(e)
	}
	return nil
}

// AddRelation appends target to one of owner's set-valued relations.
func (c *Context) AddRelation(owner *model.Entity, rel string, target int64) error {
	if owner == nil {
		return nil
	}
	list := owner.Relations()[rel]
	if !model.AddUnique(&list, target) {
		return nil
	}
	owner.SetRelation(rel, list)
	return c.save(owner)
}

func (c *Context) save(e *model.Entity) error {
	if err := c.Store.UpdateEntity(e); err != nil {
		return fmt.Errorf("save %s %s: %w", e.Kind, e.MangledName, err)
	}
	return nil
}

func lastSegment(qn string) string {
	p, err := fqn.Parse(qn, false)
	if err != nil {
		return qn
	}
	return p.Name
}
