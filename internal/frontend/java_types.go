package frontend

import (
	"strings"
	"unicode"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

// javaLangTypes are the java.lang types bound without an import.
var javaLangTypes = map[string]bool{
	"Object": true, "String": true, "StringBuilder": true, "StringBuffer": true,
	"CharSequence": true, "Number": true, "Integer": true, "Long": true,
	"Short": true, "Byte": true, "Double": true, "Float": true,
	"Character": true, "Boolean": true, "Void": true, "Math": true,
	"StrictMath": true, "System": true, "Thread": true, "Runnable": true,
	"Iterable": true, "Comparable": true, "Cloneable": true, "AutoCloseable": true,
	"Class": true, "Enum": true, "Record": true, "Process": true,
	"Throwable": true, "Exception": true, "Error": true, "RuntimeException": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"NullPointerException": true, "UnsupportedOperationException": true,
	"IndexOutOfBoundsException": true, "ArrayIndexOutOfBoundsException": true,
	"ClassCastException": true, "ArithmeticException": true,
	"InterruptedException": true, "CloneNotSupportedException": true,
	"NumberFormatException": true, "Override": true, "Deprecated": true,
	"FunctionalInterface": true, "SuppressWarnings": true, "SafeVarargs": true,
}

// javaLangInterfaces are the java.lang types an anonymous class implements
// rather than extends.
var javaLangInterfaces = map[string]bool{
	"java.lang.Runnable": true, "java.lang.Comparable": true, "java.lang.Iterable": true,
	"java.lang.CharSequence": true, "java.lang.AutoCloseable": true, "java.lang.Cloneable": true,
}

// objectMethods are inherited by every class.
var objectMethods = map[string]bool{
	"equals": true, "hashCode": true, "toString": true, "getClass": true,
	"notify": true, "notifyAll": true, "wait": true, "clone": true, "finalize": true,
}

func javaLang(name string) *syntax.TypeBinding {
	return &syntax.TypeBinding{QualifiedName: "java.lang." + name, Name: name}
}

func objectType() *syntax.TypeBinding { return javaLang("Object") }

func stringType() *syntax.TypeBinding { return javaLang("String") }

// typeOf binds a type node.
func (b *javaBinder) typeOf(n *tree_sitter.Node) *syntax.TypeBinding {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return prim(text(n, b.src))
	case "type_identifier", "identifier":
		name := text(n, b.src)
		if name == "var" {
			return nil
		}
		return b.resolveSimple(name)
	case "scoped_type_identifier", "scoped_identifier":
		return b.scopedType(text(n, b.src))
	case "generic_type":
		base := b.typeOf(n.NamedChild(0))
		if base == nil {
			return nil
		}
		var args []*syntax.TypeBinding
		for _, a := range namedChildren(firstNamed(n, "type_arguments")) {
			if t := b.typeArg(a); t != nil {
				args = append(args, t)
			}
		}
		if len(args) == 0 {
			return base
		}
		g := *base.Decl()
		g.TypeArgs = args
		g.Declaration = base.Decl()
		return &g
	case "array_type":
		elem := b.typeOf(n.ChildByFieldName("element"))
		if elem == nil {
			return nil
		}
		return arrayOf(elem, strings.Count(text(n.ChildByFieldName("dimensions"), b.src), "["))
	case "annotated_type":
		return b.typeOf(lastNamed(n))
	}
	return nil
}

// typeArg binds a type argument. Wildcards bind to their bound or Object.
func (b *javaBinder) typeArg(n *tree_sitter.Node) *syntax.TypeBinding {
	if n.Kind() != "wildcard" {
		return b.typeOf(n)
	}
	if bound := lastNamed(n); bound != nil && bound.Kind() != "annotation" && bound.Kind() != "marker_annotation" {
		return b.typeOf(bound)
	}
	return objectType()
}

// resolveSimple binds a simple type name. Names nobody declares fall back
// to the unit's package.
func (b *javaBinder) resolveSimple(name string) *syntax.TypeBinding {
	if t, ok := b.lookupType(name); ok {
		return t
	}
	if len(b.wildcards) > 0 {
		return &syntax.TypeBinding{QualifiedName: b.wildcards[0] + "." + name, Name: name}
	}
	qn := name
	if b.pkg != "" {
		qn = b.pkg + "." + name
	}
	return &syntax.TypeBinding{QualifiedName: qn, Name: name}
}

// lookupType finds a type name in lexical scope order: type variables and
// local classes, member types of the enclosing types, unit types, single
// imports, then java.lang.
func (b *javaBinder) lookupType(name string) (*syntax.TypeBinding, bool) {
	if b.spec.IsPrimitive(name) {
		return prim(name), true
	}
	for s := b.scope; s != nil; s = s.parent {
		if s.tvars[name] {
			return typeVar(name), true
		}
		if t := s.types[name]; t != nil {
			return t.b, true
		}
	}
	for t := b.cur; t != nil; t = t.outer {
		for _, p := range t.b.TypeParams {
			if p == name {
				return typeVar(name), true
			}
		}
		if t.b.Name == name {
			return t.b, true
		}
		if m := b.memberType(t, name, 0); m != nil {
			return m.b, true
		}
	}
	if t := b.top[name]; t != nil {
		return t.b, true
	}
	if qn, ok := b.imports[name]; ok {
		return b.known(qn), true
	}
	if javaLangTypes[name] {
		return javaLang(name), true
	}
	return nil, false
}

// memberType finds a member type declared in t or inherited from a unit
// superclass.
func (b *javaBinder) memberType(t *jtype, name string, depth int) *jtype {
	if m := t.nested[name]; m != nil {
		return m
	}
	if depth > 8 || t.b.Superclass == nil {
		return nil
	}
	if sup := b.types[t.b.Superclass.Decl().QualifiedName]; sup != nil && sup != t {
		return b.memberType(sup, name, depth+1)
	}
	return nil
}

// scopedType binds a dotted type name such as Outer.Inner or
// java.util.Map.Entry.
func (b *javaBinder) scopedType(dotted string) *syntax.TypeBinding {
	segs := strings.Split(stripTypeArgs(dotted), ".")
	if head, ok := b.lookupType(segs[0]); ok && !head.IsPrimitive && !head.IsTypeVar {
		qn := head.QualifiedName + "." + strings.Join(segs[1:], ".")
		return b.known(qn)
	}
	return b.known(strings.Join(segs, "."))
}

// known returns the binding of a unit type or a fresh external reference.
func (b *javaBinder) known(qn string) *syntax.TypeBinding {
	if t := b.types[qn]; t != nil {
		return t.b
	}
	return &syntax.TypeBinding{QualifiedName: qn, Name: qn[strings.LastIndexByte(qn, '.')+1:]}
}

func stripTypeArgs(s string) string {
	var out strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0 && !unicode.IsSpace(r):
			out.WriteRune(r)
		}
	}
	return out.String()
}

// receiver normalizes the static type of a member access.
func receiver(t *syntax.TypeBinding) *syntax.TypeBinding {
	if t == nil {
		return nil
	}
	if t.IsArray || t.IsTypeVar {
		return objectType()
	}
	return t
}

// supertypes returns the direct supertypes of t as seen through the
// receiver recv, substituting recv's type arguments.
func supertypes(jt *jtype, recv *syntax.TypeBinding) []*syntax.TypeBinding {
	var out []*syntax.TypeBinding
	if jt.b.Superclass != nil {
		out = append(out, subst(jt.b.Superclass, jt.b.TypeParams, recv.TypeArgs))
	}
	for _, i := range jt.b.Interfaces {
		out = append(out, subst(i, jt.b.TypeParams, recv.TypeArgs))
	}
	return out
}

// findMethod looks name up in the hierarchy of recv. A method declared in
// the unit is returned specialized for the receiver. Otherwise external is
// the first supertype outside the unit, nil when the whole hierarchy is
// declared here.
func (b *javaBinder) findMethod(recv *syntax.TypeBinding, name string, args []*syntax.TypeBinding) (m *syntax.MethodBinding, external *syntax.TypeBinding) {
	queue := []*syntax.TypeBinding{receiver(recv)}
	seen := map[string]bool{}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		qn := t.Decl().QualifiedName
		if seen[qn] {
			continue
		}
		seen[qn] = true
		jt := b.types[qn]
		if jt == nil {
			if external == nil {
				external = t
			}
			continue
		}
		if pick := choose(jt.methods[name], args); pick != nil {
			return instantiate(pick, t), nil
		}
		queue = append(queue, supertypes(jt, t)...)
	}
	return nil, external
}

// findField looks a field or enum constant up in the hierarchy of recv.
func (b *javaBinder) findField(recv *syntax.TypeBinding, name string) (v *syntax.VariableBinding, external *syntax.TypeBinding) {
	queue := []*syntax.TypeBinding{receiver(recv)}
	seen := map[string]bool{}
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		qn := t.Decl().QualifiedName
		if seen[qn] {
			continue
		}
		seen[qn] = true
		jt := b.types[qn]
		if jt == nil {
			if external == nil {
				external = t
			}
			continue
		}
		if c := jt.consts[name]; c != nil {
			return c, nil
		}
		if f := jt.fields[name]; f != nil {
			if len(t.TypeArgs) == 0 {
				return f, nil
			}
			spec := *f
			spec.DeclaringType = t
			spec.Type = subst(f.Type, jt.b.TypeParams, t.TypeArgs)
			return &spec, nil
		}
		queue = append(queue, supertypes(jt, t)...)
	}
	return nil, external
}

// choose picks the overload matching the argument count, preferring exact
// erased type matches.
func choose(ms []*syntax.MethodBinding, args []*syntax.TypeBinding) *syntax.MethodBinding {
	var best *syntax.MethodBinding
	bestScore := -1
	for _, m := range ms {
		if !arityMatches(m, len(args)) {
			continue
		}
		score := 0
		for i, a := range args {
			if a == nil || i >= len(m.ParamTypes) || m.ParamTypes[i] == nil {
				continue
			}
			if a.ErasedName() == m.ParamTypes[i].ErasedName() {
				score += 2
			} else if m.ParamTypes[i].IsTypeVar || m.ParamTypes[i].QualifiedName == "java.lang.Object" {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = m, score
		}
	}
	return best
}

func arityMatches(m *syntax.MethodBinding, n int) bool {
	p := len(m.ParamTypes)
	if p == n {
		return true
	}
	varargs := p > 0 && m.ParamTypes[p-1] != nil && m.ParamTypes[p-1].IsArray
	return varargs && n >= p-1
}

// externalMethod binds a method of a type declared outside the unit.
// Unknown argument types become java.lang.Object.
func externalMethod(owner *syntax.TypeBinding, name string, args []*syntax.TypeBinding, static, ctor bool) *syntax.MethodBinding {
	m := &syntax.MethodBinding{Name: name, DeclaringType: owner, IsConstructor: ctor}
	for _, a := range args {
		if a == nil {
			a = objectType()
		}
		m.ParamTypes = append(m.ParamTypes, a)
	}
	if static {
		m.Modifiers = model.ModStatic
	}
	return m
}

// memberCall binds recv.name(args).
func (b *javaBinder) memberCall(recv *syntax.TypeBinding, name string, args []*syntax.TypeBinding, static bool) *syntax.MethodBinding {
	m, ext := b.findMethod(recv, name, args)
	switch {
	case m != nil:
		return m
	case ext != nil:
		return externalMethod(ext, name, args, static, false)
	case objectMethods[name]:
		return externalMethod(objectType(), name, args, false, false)
	}
	return nil
}

// constructor binds new t(args).
func (b *javaBinder) constructor(t *syntax.TypeBinding, args []*syntax.TypeBinding) *syntax.MethodBinding {
	if t == nil {
		return nil
	}
	jt := b.types[t.Decl().QualifiedName]
	if jt == nil {
		return externalMethod(t, t.Name, args, false, true)
	}
	if jt.b.IsInterface {
		return externalMethod(objectType(), "Object", nil, false, true)
	}
	if m := choose(jt.methods[jt.b.Name], args); m != nil {
		return instantiate(m, t)
	}
	return nil
}

// unqualifiedCall binds name(args) from the current position.
func (b *javaBinder) unqualifiedCall(name string, args []*syntax.TypeBinding) *syntax.MethodBinding {
	var ext *syntax.TypeBinding
	for t := b.cur; t != nil; t = t.outer {
		m, e := b.findMethod(t.b, name, args)
		if m != nil {
			return m
		}
		if ext == nil {
			ext = e
		}
	}
	if owner, ok := b.staticImports[name]; ok {
		return b.staticMember(owner, name, args)
	}
	if len(b.staticWildcards) > 0 {
		return b.staticMember(b.staticWildcards[0], name, args)
	}
	switch {
	case ext != nil:
		return externalMethod(ext, name, args, false, false)
	case objectMethods[name]:
		return externalMethod(objectType(), name, args, false, false)
	}
	return nil
}

func (b *javaBinder) staticMember(owner, name string, args []*syntax.TypeBinding) *syntax.MethodBinding {
	t := b.known(owner)
	if m, _ := b.findMethod(t, name, args); m != nil {
		return m
	}
	return externalMethod(t, name, args, true, false)
}

// resolveName binds an identifier in expression position: locals, fields
// of the enclosing types, the enum of the current switch, static imports,
// then type names.
func (b *javaBinder) resolveName(name string) syntax.Binding {
	for s := b.scope; s != nil; s = s.parent {
		if v := s.vars[name]; v != nil {
			return v
		}
	}
	var ext *syntax.TypeBinding
	for t := b.cur; t != nil; t = t.outer {
		v, e := b.findField(t.b, name)
		if v != nil {
			return v
		}
		if ext == nil {
			ext = e
		}
	}
	if b.switchEnum != nil {
		if c := b.switchEnum.consts[name]; c != nil {
			return c
		}
	}
	if owner, ok := b.staticImports[name]; ok {
		if v, _ := b.findField(b.known(owner), name); v != nil {
			return v
		}
		return &syntax.VariableBinding{Name: name, IsField: true, DeclaringType: b.known(owner), Modifiers: model.ModStatic}
	}
	if t, ok := b.lookupType(name); ok {
		return t
	}
	if startsUpper(name) {
		return b.resolveSimple(name)
	}
	if ext != nil && ext.QualifiedName != "java.lang.Object" {
		return &syntax.VariableBinding{Name: name, IsField: true, DeclaringType: ext}
	}
	return nil
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
