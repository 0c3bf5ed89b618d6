package frontend

import (
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

// val is the static view of an expression: its type, and whether the
// expression names a type rather than a value.
type val struct {
	t      *syntax.TypeBinding
	isType bool
}

func (b *javaBinder) unit(root *tree_sitter.Node) *syntax.Node {
	cu := newNode(syntax.KindCompilationUnit, root, "", nil)
	for _, c := range namedChildren(root) {
		switch c.Kind() {
		case "package_declaration":
			add(cu, syntax.RoleNone, newNode(syntax.KindPackage, c, b.pkg, nil))
		case "import_declaration":
			qn, static, wildcard := b.importParts(c)
			imp := newNode(syntax.KindImport, c, qn, nil)
			if static {
				imp.Flags |= syntax.FlagStaticImport
			}
			if wildcard {
				imp.Flags |= syntax.FlagWildcard
			}
			add(cu, syntax.RoleNone, imp)
		default:
			if isJavaTypeDecl(c.Kind()) {
				add(cu, syntax.RoleNone, b.typeDecl(c))
			}
		}
	}
	return cu
}

func (b *javaBinder) pushScope() func() {
	prev := b.scope
	b.scope = &jscope{parent: prev, vars: map[string]*syntax.VariableBinding{}, types: map[string]*jtype{}}
	return func() { b.scope = prev }
}

func (b *javaBinder) declare(v *syntax.VariableBinding) {
	if b.scope != nil && v != nil && v.Name != "" {
		b.scope.vars[v.Name] = v
	}
}

// typeDecl builds a named type declaration. The type must have been
// collected.
func (b *javaBinder) typeDecl(n *tree_sitter.Node) *syntax.Node {
	t := b.byNode[n.Id()]
	if t == nil {
		return nil
	}
	prevCur, prevMethod := b.cur, b.method
	b.cur, b.method = t, nil
	defer func() { b.cur, b.method = prevCur, prevMethod }()

	out := newNode(syntax.KindTypeDecl, n, t.b.Name, t.b)
	b.decorate(out, n)
	switch {
	case t.b.IsInterface:
		out.Flags |= syntax.FlagInterface
	case t.b.IsEnum:
		out.Flags |= syntax.FlagEnum
	}
	if t.local {
		out.Flags |= syntax.FlagLocalClass
	}
	b.supertypeRefs(out, n)
	b.members(out, t)
	return out
}

func (b *javaBinder) supertypeRefs(out *syntax.Node, n *tree_sitter.Node) {
	if sc := n.ChildByFieldName("superclass"); sc != nil {
		add(out, syntax.RoleSuper, b.typeRef(lastNamed(sc)))
	}
	lists := []*tree_sitter.Node{n.ChildByFieldName("interfaces"), firstNamed(n, "extends_interfaces")}
	for _, l := range lists {
		if l == nil {
			continue
		}
		if tl := firstNamed(l, "type_list"); tl != nil {
			l = tl
		}
		for _, c := range namedChildren(l) {
			add(out, syntax.RoleInterface, b.typeRef(c))
		}
	}
}

// members builds the body of t.
func (b *javaBinder) members(out *syntax.Node, t *jtype) {
	if params := t.ts.ChildByFieldName("parameters"); params != nil && t.ts.Kind() == "record_declaration" {
		for _, p := range namedChildren(params) {
			v := b.fieldsByNode[p.Id()]
			if v == nil {
				continue
			}
			f := newNode(syntax.KindFieldDecl, p, v.Name, v)
			add(f, syntax.RoleType, b.typeRef(p.ChildByFieldName("type")))
			add(out, syntax.RoleNone, f)
		}
	}
	for _, m := range b.bodyMembers(t.ts) {
		switch m.Kind() {
		case "field_declaration", "constant_declaration":
			add(out, syntax.RoleNone, b.fieldDecls(m)...)
		case "method_declaration", "constructor_declaration", "compact_constructor_declaration",
			"annotation_type_element_declaration":
			add(out, syntax.RoleNone, b.methodDecl(m))
		case "enum_constant":
			add(out, syntax.RoleNone, b.enumConstant(m))
		case "static_initializer":
			add(out, syntax.RoleNone, b.block(firstNamed(m, "block")))
		case "block":
			add(out, syntax.RoleNone, b.block(m))
		default:
			if isJavaTypeDecl(m.Kind()) {
				add(out, syntax.RoleNone, b.typeDecl(m))
			}
		}
	}
}

func (b *javaBinder) fieldDecls(n *tree_sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for i, d := range declarators(n) {
		v := b.fieldsByNode[d.Id()]
		if v == nil {
			continue
		}
		at := n
		if i > 0 {
			at = d
		}
		f := newNode(syntax.KindFieldDecl, at, v.Name, v)
		if i == 0 {
			b.decorate(f, n)
		} else {
			f.Modifiers = b.modifiers(n)
		}
		add(f, syntax.RoleType, b.typeRef(n.ChildByFieldName("type")))
		if init := d.ChildByFieldName("value"); init != nil {
			e, _ := b.expr(init)
			add(f, syntax.RoleInitializer, e)
		}
		out = append(out, f)
	}
	return out
}

func (b *javaBinder) enumConstant(n *tree_sitter.Node) *syntax.Node {
	v := b.fieldsByNode[n.Id()]
	if v == nil {
		return nil
	}
	out := newNode(syntax.KindEnumConstantDecl, n, v.Name, v)
	b.decorate(out, n)
	args, _ := b.arguments(n.ChildByFieldName("arguments"))
	add(out, syntax.RoleArgument, args...)
	if body := n.ChildByFieldName("body"); body != nil {
		add(out, syntax.RoleNone, b.anonymousClass(body, b.cur.b))
	}
	return out
}

func (b *javaBinder) methodDecl(n *tree_sitter.Node) *syntax.Node {
	m := b.methodsByNode[n.Id()]
	if m == nil {
		return nil
	}
	prevMethod := b.method
	b.method = m
	defer func() { b.method = prevMethod }()
	defer b.pushScope()()
	b.scope.tvars = b.typeParams(n)

	out := newNode(syntax.KindMethodDecl, n, m.Name, m)
	b.decorate(out, n)
	body := n.ChildByFieldName("body")
	if body == nil {
		out.Flags |= syntax.FlagNoBody
	}
	if !m.IsConstructor {
		add(out, syntax.RoleReturnType, b.typeRef(n.ChildByFieldName("type")))
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range namedChildren(params) {
			add(out, syntax.RoleNone, b.paramDecl(p))
		}
	}
	if n.Kind() == "compact_constructor_declaration" {
		for _, f := range b.cur.fields {
			b.declare(&syntax.VariableBinding{Name: f.Name, Type: f.Type, IsParameter: true, DeclaringMethod: m})
		}
	}
	if body != nil {
		add(out, syntax.RoleBody, b.block(body))
	}
	return out
}

func (b *javaBinder) paramDecl(p *tree_sitter.Node) *syntax.Node {
	name, typ, ok := b.param(p)
	if !ok || name == "" {
		return nil
	}
	v := &syntax.VariableBinding{Name: name, Type: typ, IsParameter: true, DeclaringMethod: b.method}
	out := newNode(syntax.KindParam, p, name, v)
	b.decorate(out, p)
	v.Modifiers = out.Modifiers
	if p.Kind() == "spread_parameter" {
		out.Flags |= syntax.FlagVarargs
		for _, c := range namedChildren(p) {
			if c.Kind() != "modifiers" && c.Kind() != "variable_declarator" {
				add(out, syntax.RoleType, b.typeRef(c))
				break
			}
		}
	} else {
		add(out, syntax.RoleType, b.typeRef(p.ChildByFieldName("type")))
	}
	b.declare(v)
	return out
}

// typeRef builds a type reference with its type arguments as children.
func (b *javaBinder) typeRef(n *tree_sitter.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	t := b.typeOf(n)
	if t == nil {
		if n.Kind() == "type_identifier" && text(n, b.src) == "var" {
			return nil
		}
		return newNode(syntax.KindTypeRef, n, text(n, b.src), nil)
	}
	out := newNode(syntax.KindTypeRef, n, t.Name, t)
	switch n.Kind() {
	case "generic_type":
		for _, a := range namedChildren(firstNamed(n, "type_arguments")) {
			if a.Kind() == "wildcard" {
				a = lastNamed(a)
			}
			add(out, syntax.RoleNone, b.typeRef(a))
		}
	case "array_type":
		if e := n.ChildByFieldName("element"); e != nil && e.Kind() == "generic_type" {
			out.Children = b.typeRef(e).Children
		}
	}
	return out
}

func (b *javaBinder) block(n *tree_sitter.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	defer b.pushScope()()
	out := newNode(syntax.KindBlock, n, "", nil)
	for _, c := range namedChildren(n) {
		add(out, syntax.RoleNone, b.statement(c))
	}
	return out
}

// localVars builds the declarators of a local variable declaration.
func (b *javaBinder) localVars(n *tree_sitter.Node) []*syntax.Node {
	typeNode := n.ChildByFieldName("type")
	declared := b.typeOf(typeNode)
	var out []*syntax.Node
	for i, d := range declarators(n) {
		var init *syntax.Node
		var initType val
		if value := d.ChildByFieldName("value"); value != nil {
			init, initType = b.expr(value)
		}
		typ := withDims(declared, d, b.src)
		if typ == nil && text(typeNode, b.src) == "var" {
			typ = initType.t
		}
		v := &syntax.VariableBinding{Name: text(d.ChildByFieldName("name"), b.src), Type: typ, DeclaringMethod: b.method}
		at := n
		if i > 0 {
			at = d
		}
		decl := newNode(syntax.KindVarDecl, at, v.Name, v)
		b.decorate(decl, n)
		v.Modifiers = decl.Modifiers
		add(decl, syntax.RoleType, b.typeRef(typeNode))
		add(decl, syntax.RoleInitializer, init)
		b.declare(v)
		out = append(out, decl)
	}
	return out
}

func (b *javaBinder) statement(n *tree_sitter.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "block":
		return b.block(n)
	case "local_variable_declaration":
		return container(syntax.KindStatement, n, b.localVars(n))
	case "expression_statement", "throw_statement":
		e, _ := b.expr(n.NamedChild(0))
		return container(syntax.KindStatement, n, []*syntax.Node{e})
	case "return_statement", "yield_statement":
		out := newNode(syntax.KindReturn, n, "", nil)
		if c := n.NamedChild(0); c != nil {
			e, _ := b.expr(c)
			add(out, syntax.RoleNone, e)
		}
		return out
	case "if_statement", "while_statement", "do_statement":
		out := newNode(syntax.KindStatement, n, "", nil)
		cond, _ := b.expr(n.ChildByFieldName("condition"))
		add(out, syntax.RoleCondition, cond)
		for _, f := range []string{"consequence", "alternative", "body"} {
			add(out, syntax.RoleNone, b.statement(n.ChildByFieldName(f)))
		}
		return out
	case "for_statement":
		return b.forStatement(n)
	case "enhanced_for_statement":
		return b.enhancedFor(n)
	case "try_statement", "try_with_resources_statement":
		return b.tryStatement(n)
	case "labeled_statement":
		return b.statement(lastNamed(n))
	case "local_class_declaration", "class_declaration", "interface_declaration",
		"enum_declaration", "record_declaration":
		return b.localType(n)
	}
	e, _ := b.expr(n)
	return e
}

func (b *javaBinder) forStatement(n *tree_sitter.Node) *syntax.Node {
	defer b.pushScope()()
	out := newNode(syntax.KindBlock, n, "", nil)
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch n.FieldNameForChild(uint32(i)) {
		case "init":
			if c.Kind() == "local_variable_declaration" {
				add(out, syntax.RoleNone, b.localVars(c)...)
				continue
			}
			e, _ := b.expr(c)
			add(out, syntax.RoleNone, e)
		case "condition":
			e, _ := b.expr(c)
			add(out, syntax.RoleCondition, e)
		case "update":
			e, _ := b.expr(c)
			add(out, syntax.RoleNone, e)
		case "body":
			add(out, syntax.RoleNone, b.statement(c))
		}
	}
	return out
}

func (b *javaBinder) enhancedFor(n *tree_sitter.Node) *syntax.Node {
	value, vt := b.expr(n.ChildByFieldName("value"))
	defer b.pushScope()()
	out := newNode(syntax.KindBlock, n, "", nil)
	add(out, syntax.RoleNone, value)

	typeNode := n.ChildByFieldName("type")
	typ := b.typeOf(typeNode)
	if typ == nil {
		typ = elementOf(vt.t)
	}
	name := n.ChildByFieldName("name")
	v := &syntax.VariableBinding{Name: text(name, b.src), Type: typ, DeclaringMethod: b.method}
	decl := newNode(syntax.KindVarDecl, name, v.Name, v)
	add(decl, syntax.RoleType, b.typeRef(typeNode))
	b.declare(v)
	add(out, syntax.RoleNone, decl)
	add(out, syntax.RoleNone, b.statement(n.ChildByFieldName("body")))
	return out
}

// elementOf is the element type of an array or single-argument generic.
func elementOf(t *syntax.TypeBinding) *syntax.TypeBinding {
	switch {
	case t == nil:
		return nil
	case t.IsArray:
		return t.Elem
	case len(t.TypeArgs) == 1:
		return t.TypeArgs[0]
	}
	return objectType()
}

func (b *javaBinder) tryStatement(n *tree_sitter.Node) *syntax.Node {
	defer b.pushScope()()
	out := newNode(syntax.KindBlock, n, "", nil)
	if res := n.ChildByFieldName("resources"); res != nil {
		for _, r := range namedChildren(res) {
			add(out, syntax.RoleNone, b.resource(r))
		}
	}
	add(out, syntax.RoleNone, b.block(n.ChildByFieldName("body")))
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "catch_clause":
			add(out, syntax.RoleNone, b.catchClause(c))
		case "finally_clause":
			add(out, syntax.RoleNone, b.block(firstNamed(c, "block")))
		}
	}
	return out
}

func (b *javaBinder) resource(r *tree_sitter.Node) *syntax.Node {
	name := r.ChildByFieldName("name")
	if name == nil {
		e, _ := b.expr(r.NamedChild(0))
		return e
	}
	init, it := b.expr(r.ChildByFieldName("value"))
	typeNode := r.ChildByFieldName("type")
	typ := b.typeOf(typeNode)
	if typ == nil {
		typ = it.t
	}
	v := &syntax.VariableBinding{Name: text(name, b.src), Type: typ, DeclaringMethod: b.method}
	decl := newNode(syntax.KindVarDecl, r, v.Name, v)
	add(decl, syntax.RoleType, b.typeRef(typeNode))
	add(decl, syntax.RoleInitializer, init)
	b.declare(v)
	return decl
}

func (b *javaBinder) catchClause(c *tree_sitter.Node) *syntax.Node {
	defer b.pushScope()()
	out := newNode(syntax.KindBlock, c, "", nil)
	if p := firstNamed(c, "catch_formal_parameter"); p != nil {
		catchType := firstNamed(p, "catch_type")
		var refs []*syntax.Node
		var first *syntax.TypeBinding
		for _, t := range namedChildren(catchType) {
			ref := b.typeRef(t)
			if first == nil && ref != nil {
				first, _ = ref.Binding.(*syntax.TypeBinding)
			}
			refs = append(refs, ref)
		}
		name := p.ChildByFieldName("name")
		v := &syntax.VariableBinding{Name: text(name, b.src), Type: first, DeclaringMethod: b.method}
		decl := newNode(syntax.KindVarDecl, p, v.Name, v)
		add(decl, syntax.RoleType, refs...)
		b.declare(v)
		add(out, syntax.RoleNone, decl)
	}
	add(out, syntax.RoleNone, b.block(c.ChildByFieldName("body")))
	return out
}

// localType builds a class declared inside a method body. Its qualified
// name is Outer$Name.
func (b *javaBinder) localType(n *tree_sitter.Node) *syntax.Node {
	if b.cur == nil || b.scope == nil {
		return nil
	}
	name := text(n.ChildByFieldName("name"), b.src)
	t := b.collectType(n, b.cur, b.cur.b.QualifiedName+"$"+name)
	delete(b.cur.nested, name)
	t.local = true
	b.scope.types[name] = t
	b.declareNested(t)
	return b.typeDecl(n)
}

// declareNested declares the members of t and of its member types.
func (b *javaBinder) declareNested(t *jtype) {
	b.declareMembers(t)
	for _, m := range t.nested {
		b.declareNested(m)
	}
}

// anonymousClass builds the body of new T() { ... } or of an enum
// constant with a body.
func (b *javaBinder) anonymousClass(body *tree_sitter.Node, super *syntax.TypeBinding) *syntax.Node {
	if b.cur == nil {
		return nil
	}
	b.cur.anon++
	qn := b.cur.b.QualifiedName + "$" + strconv.Itoa(b.cur.anon)
	tb := &syntax.TypeBinding{QualifiedName: qn, Name: "", IsAnonymous: true}
	if super != nil {
		if st := b.types[super.Decl().QualifiedName]; (st != nil && st.b.IsInterface) || javaLangInterfaces[super.Decl().QualifiedName] {
			tb.Interfaces = []*syntax.TypeBinding{super}
		} else {
			tb.Superclass = super
		}
	}
	t := &jtype{
		b:       tb,
		ts:      body,
		outer:   b.cur,
		nested:  map[string]*jtype{},
		fields:  map[string]*syntax.VariableBinding{},
		consts:  map[string]*syntax.VariableBinding{},
		methods: map[string][]*syntax.MethodBinding{},
	}
	b.types[qn] = t
	for _, m := range namedChildren(body) {
		if isJavaTypeDecl(m.Kind()) {
			b.collectType(m, t, qn+"."+text(m.ChildByFieldName("name"), b.src))
		}
	}
	b.declareAnonymous(t, body)
	for _, m := range t.nested {
		b.declareNested(m)
	}

	prevCur, prevMethod := b.cur, b.method
	b.cur, b.method = t, nil
	defer func() { b.cur, b.method = prevCur, prevMethod }()
	out := newNode(syntax.KindAnonymousClass, body, "", tb)
	for _, m := range namedChildren(body) {
		switch m.Kind() {
		case "field_declaration":
			add(out, syntax.RoleNone, b.fieldDecls(m)...)
		case "method_declaration", "constructor_declaration":
			add(out, syntax.RoleNone, b.methodDecl(m))
		case "block":
			add(out, syntax.RoleNone, b.block(m))
		default:
			if isJavaTypeDecl(m.Kind()) {
				add(out, syntax.RoleNone, b.typeDecl(m))
			}
		}
	}
	return out
}

// declareAnonymous binds the fields and methods of an anonymous class
// body.
func (b *javaBinder) declareAnonymous(t *jtype, body *tree_sitter.Node) {
	savedCur, savedScope := b.cur, b.scope
	b.cur = t
	defer func() { b.cur, b.scope = savedCur, savedScope }()
	for _, m := range namedChildren(body) {
		b.scope = savedScope
		switch m.Kind() {
		case "field_declaration":
			typ := b.typeOf(m.ChildByFieldName("type"))
			for _, d := range declarators(m) {
				v := &syntax.VariableBinding{
					Name:          text(d.ChildByFieldName("name"), b.src),
					Type:          withDims(typ, d, b.src),
					IsField:       true,
					DeclaringType: t.b,
					Modifiers:     b.modifiers(m),
				}
				t.fields[v.Name] = v
				b.fieldsByNode[d.Id()] = v
			}
		case "method_declaration":
			b.declareMethod(t, m, false)
		}
	}
}

// arguments builds an argument list and returns the argument types.
func (b *javaBinder) arguments(n *tree_sitter.Node) ([]*syntax.Node, []*syntax.TypeBinding) {
	var nodes []*syntax.Node
	var types []*syntax.TypeBinding
	for _, a := range namedChildren(n) {
		e, v := b.expr(a)
		nodes = append(nodes, e)
		types = append(types, v.t)
	}
	return nodes, types
}

// isPackagePath reports whether n is a dotted run of lower-case
// identifiers whose head binds to nothing, such as java.util.
func (b *javaBinder) isPackagePath(n *tree_sitter.Node) bool {
	switch n.Kind() {
	case "identifier":
		name := text(n, b.src)
		return !startsUpper(name) && b.resolveName(name) == nil
	case "field_access":
		field := text(n.ChildByFieldName("field"), b.src)
		return !startsUpper(field) && b.isPackagePath(n.ChildByFieldName("object"))
	}
	return false
}

func (b *javaBinder) expr(n *tree_sitter.Node) (*syntax.Node, val) {
	if n == nil {
		return nil, val{}
	}
	switch n.Kind() {
	case "identifier":
		return b.identifier(n)
	case "this":
		if b.cur == nil {
			return nil, val{}
		}
		return nil, val{t: b.cur.b}
	case "super":
		return nil, val{t: b.superOf()}
	case "field_access":
		return b.fieldAccess(n)
	case "method_invocation":
		return b.invocation(n)
	case "object_creation_expression":
		return b.creation(n)
	case "explicit_constructor_invocation":
		return b.explicitConstructor(n)
	case "assignment_expression":
		out := newNode(syntax.KindAssign, n, "", nil)
		left, lv := b.expr(n.ChildByFieldName("left"))
		right, _ := b.expr(n.ChildByFieldName("right"))
		add(out, syntax.RoleLHS, left)
		add(out, syntax.RoleRHS, right)
		return out, lv
	case "update_expression":
		out := newNode(syntax.KindIncDec, n, "", nil)
		operand, ov := b.expr(n.NamedChild(0))
		add(out, syntax.RoleOperand, operand)
		return out, ov
	case "array_access":
		out := newNode(syntax.KindIndex, n, "", nil)
		arr, av := b.expr(n.ChildByFieldName("array"))
		idx, _ := b.expr(n.ChildByFieldName("index"))
		add(out, syntax.RoleArray, arr)
		add(out, syntax.RoleIndexExpr, idx)
		if av.t != nil && av.t.IsArray {
			return out, val{t: av.t.Elem}
		}
		return out, val{}
	case "lambda_expression":
		return b.lambda(n), val{}
	case "cast_expression":
		out := newNode(syntax.KindExpr, n, "", nil)
		typeNode := n.ChildByFieldName("type")
		add(out, syntax.RoleType, b.typeRef(typeNode))
		e, _ := b.expr(n.ChildByFieldName("value"))
		add(out, syntax.RoleNone, e)
		return out, val{t: b.typeOf(typeNode)}
	case "instanceof_expression":
		return b.instanceOf(n)
	case "binary_expression":
		return b.binary(n)
	case "unary_expression":
		e, v := b.expr(n.ChildByFieldName("operand"))
		if text(n.ChildByFieldName("operator"), b.src) == "!" {
			v = val{t: prim("boolean")}
		}
		return container(syntax.KindExpr, n, []*syntax.Node{e}), v
	case "parenthesized_expression":
		return b.expr(n.NamedChild(0))
	case "ternary_expression":
		out := newNode(syntax.KindExpr, n, "", nil)
		cond, _ := b.expr(n.ChildByFieldName("condition"))
		then, tv := b.expr(n.ChildByFieldName("consequence"))
		alt, av := b.expr(n.ChildByFieldName("alternative"))
		add(out, syntax.RoleCondition, cond)
		add(out, syntax.RoleNone, then, alt)
		if tv.t == nil {
			tv = av
		}
		return out, val{t: tv.t}
	case "array_creation_expression":
		return b.arrayCreation(n)
	case "class_literal":
		out := newNode(syntax.KindExpr, n, "", nil)
		add(out, syntax.RoleNone, b.typeRef(n.NamedChild(0)))
		return out, val{t: javaLang("Class")}
	case "switch_expression":
		return b.switchExpr(n), val{}
	case "method_reference":
		out := newNode(syntax.KindExpr, n, "", nil)
		if first := n.NamedChild(0); first != nil {
			if t := b.typeOf(first); t != nil && first.Kind() != "identifier" {
				add(out, syntax.RoleNone, b.typeRef(first))
			} else {
				e, _ := b.expr(first)
				add(out, syntax.RoleReceiver, e)
			}
		}
		return out, val{}
	}
	if t := literalType(n.Kind(), text(n, b.src)); t != nil || isLiteral(n.Kind()) {
		return newNode(syntax.KindLiteral, n, "", nil), val{t: t}
	}
	var children []*syntax.Node
	for _, c := range namedChildren(n) {
		children = append(children, b.statement(c))
	}
	return container(syntax.KindExpr, n, children), val{}
}

func (b *javaBinder) superOf() *syntax.TypeBinding {
	if b.cur == nil || b.cur.b.Superclass == nil {
		return objectType()
	}
	return b.cur.b.Superclass
}

func (b *javaBinder) identifier(n *tree_sitter.Node) (*syntax.Node, val) {
	name := text(n, b.src)
	switch r := b.resolveName(name).(type) {
	case *syntax.VariableBinding:
		return newNode(syntax.KindName, n, name, r), val{t: r.Type}
	case *syntax.TypeBinding:
		return newNode(syntax.KindName, n, name, r), val{t: r, isType: true}
	}
	return newNode(syntax.KindName, n, name, nil), val{}
}

func (b *javaBinder) fieldAccess(n *tree_sitter.Node) (*syntax.Node, val) {
	obj := n.ChildByFieldName("object")
	fieldNode := n.ChildByFieldName("field")
	field := text(fieldNode, b.src)
	if b.isPackagePath(obj) {
		if !startsUpper(field) {
			// A value cannot live in a package: the head did not bind.
			return newNode(syntax.KindName, n, text(n, b.src), nil), val{}
		}
		t := b.known(text(n, b.src))
		return newNode(syntax.KindName, n, t.Name, t), val{t: t, isType: true}
	}

	recv, rv := b.expr(obj)
	if rv.t == nil {
		return container(syntax.KindExpr, n, []*syntax.Node{recv}), val{}
	}
	if field == "length" && rv.t.IsArray {
		return container(syntax.KindExpr, n, []*syntax.Node{recv}), val{t: prim("int")}
	}
	if rv.isType {
		if nested := b.known(rv.t.QualifiedName + "." + field); b.types[nested.QualifiedName] != nil {
			return newNode(syntax.KindName, n, nested.Name, nested), val{t: nested, isType: true}
		}
	}
	v, ext := b.findField(rv.t, field)
	if v == nil && ext != nil {
		v = &syntax.VariableBinding{Name: field, IsField: true, DeclaringType: ext}
		if rv.isType {
			v.Modifiers = model.ModStatic
		}
	}
	var out *syntax.Node
	if v == nil {
		out = newNode(syntax.KindFieldAccess, fieldNode, field, nil)
	} else {
		out = newNode(syntax.KindFieldAccess, fieldNode, field, v)
	}
	add(out, syntax.RoleReceiver, recv)
	if v == nil {
		return out, val{}
	}
	return out, val{t: v.Type}
}

func (b *javaBinder) invocation(n *tree_sitter.Node) (*syntax.Node, val) {
	nameNode := n.ChildByFieldName("name")
	name := text(nameNode, b.src)
	obj := n.ChildByFieldName("object")
	args, argTypes := b.arguments(n.ChildByFieldName("arguments"))

	var recv *syntax.Node
	var m *syntax.MethodBinding
	switch {
	case obj == nil:
		m = b.unqualifiedCall(name, argTypes)
	case obj.Kind() == "super":
		m = b.memberCall(b.superOf(), name, argTypes, false)
		if m != nil && m.Modifiers&model.ModAbstract == 0 {
			// super.f() never dispatches.
			c := *m
			c.Modifiers |= model.ModFinal
			m = &c
		}
	default:
		var rv val
		recv, rv = b.expr(obj)
		if rv.t == nil {
			return container(syntax.KindExpr, n, append([]*syntax.Node{recv}, args...)), val{}
		}
		m = b.memberCall(rv.t, name, argTypes, rv.isType)
	}

	var out *syntax.Node
	if m == nil {
		out = newNode(syntax.KindCall, nameNode, name, nil)
	} else {
		out = newNode(syntax.KindCall, nameNode, name, m)
	}
	add(out, syntax.RoleReceiver, recv)
	add(out, syntax.RoleArgument, args...)
	if m == nil {
		return out, val{}
	}
	return out, val{t: m.ReturnType}
}

func (b *javaBinder) creation(n *tree_sitter.Node) (*syntax.Node, val) {
	typeNode := n.ChildByFieldName("type")
	t := b.typeOf(typeNode)
	args, argTypes := b.arguments(n.ChildByFieldName("arguments"))

	var ctor *syntax.MethodBinding
	body := firstNamed(n, "class_body")
	if body != nil && t != nil {
		ctor = b.constructor(t, argTypes)
		if ctor == nil {
			ctor = externalMethod(t, t.Name, argTypes, false, true)
		}
	} else {
		ctor = b.constructor(t, argTypes)
	}

	var out *syntax.Node
	if ctor == nil {
		out = newNode(syntax.KindNew, n, text(typeNode, b.src), nil)
	} else {
		out = newNode(syntax.KindNew, n, ctor.Name, ctor)
	}
	if first := n.NamedChild(0); first != nil && typeNode != nil &&
		first.Kind() != "type_arguments" && first.EndByte() <= typeNode.StartByte() {
		e, _ := b.expr(first)
		add(out, syntax.RoleReceiver, e)
	}
	add(out, syntax.RoleType, b.typeRef(typeNode))
	add(out, syntax.RoleArgument, args...)
	if body != nil {
		add(out, syntax.RoleNone, b.anonymousClass(body, t))
	}
	return out, val{t: t}
}

func (b *javaBinder) explicitConstructor(n *tree_sitter.Node) (*syntax.Node, val) {
	args, argTypes := b.arguments(n.ChildByFieldName("arguments"))
	target := n.ChildByFieldName("constructor")
	var m *syntax.MethodBinding
	if b.cur != nil {
		if target != nil && target.Kind() == "super" {
			m = b.constructor(b.superOf(), argTypes)
		} else {
			m = b.constructor(b.cur.b, argTypes)
		}
	}
	at := n
	if target != nil {
		at = target
	}
	var out *syntax.Node
	if m == nil {
		out = newNode(syntax.KindCall, at, text(target, b.src), nil)
	} else {
		out = newNode(syntax.KindCall, at, m.Name, m)
	}
	add(out, syntax.RoleArgument, args...)
	return out, val{}
}

func (b *javaBinder) lambda(n *tree_sitter.Node) *syntax.Node {
	defer b.pushScope()()
	out := newNode(syntax.KindLambda, n, "", nil)
	params := n.ChildByFieldName("parameters")
	var list []*tree_sitter.Node
	switch {
	case params == nil:
	case params.Kind() == "identifier":
		list = []*tree_sitter.Node{params}
	default:
		list = namedChildren(params)
	}
	for _, p := range list {
		if p.Kind() == "identifier" {
			v := &syntax.VariableBinding{Name: text(p, b.src), IsParameter: true, DeclaringMethod: b.method}
			b.declare(v)
			add(out, syntax.RoleNone, newNode(syntax.KindParam, p, v.Name, v))
			continue
		}
		add(out, syntax.RoleNone, b.paramDecl(p))
	}
	body := n.ChildByFieldName("body")
	if body != nil && body.Kind() == "block" {
		add(out, syntax.RoleBody, b.block(body))
	} else {
		e, _ := b.expr(body)
		add(out, syntax.RoleBody, e)
	}
	return out
}

func (b *javaBinder) instanceOf(n *tree_sitter.Node) (*syntax.Node, val) {
	out := newNode(syntax.KindExpr, n, "", nil)
	left, _ := b.expr(n.ChildByFieldName("left"))
	add(out, syntax.RoleNone, left)
	right := n.ChildByFieldName("right")
	add(out, syntax.RoleType, b.typeRef(right))
	if name := n.ChildByFieldName("name"); name != nil {
		v := &syntax.VariableBinding{Name: text(name, b.src), Type: b.typeOf(right), DeclaringMethod: b.method}
		b.declare(v)
		add(out, syntax.RoleNone, newNode(syntax.KindVarDecl, name, v.Name, v))
	}
	return out, val{t: prim("boolean")}
}

var booleanOps = map[string]bool{
	"==": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true, "&&": true, "||": true,
}

func (b *javaBinder) binary(n *tree_sitter.Node) (*syntax.Node, val) {
	left, lv := b.expr(n.ChildByFieldName("left"))
	right, rv := b.expr(n.ChildByFieldName("right"))
	out := container(syntax.KindExpr, n, []*syntax.Node{left, right})
	op := text(n.ChildByFieldName("operator"), b.src)
	switch {
	case booleanOps[op]:
		return out, val{t: prim("boolean")}
	case op == "+" && (isString(lv.t) || isString(rv.t)):
		return out, val{t: stringType()}
	case lv.t != nil:
		return out, val{t: lv.t}
	}
	return out, val{t: rv.t}
}

func isString(t *syntax.TypeBinding) bool {
	return t != nil && t.QualifiedName == "java.lang.String"
}

func (b *javaBinder) arrayCreation(n *tree_sitter.Node) (*syntax.Node, val) {
	out := newNode(syntax.KindExpr, n, "", nil)
	typeNode := n.ChildByFieldName("type")
	elem := b.typeOf(typeNode)
	add(out, syntax.RoleType, b.typeRef(typeNode))
	dims := 0
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "dimensions_expr":
			dims++
			e, _ := b.expr(c.NamedChild(0))
			add(out, syntax.RoleIndexExpr, e)
		case "dimensions":
			dims += strings.Count(text(c, b.src), "[")
		case "array_initializer":
			e, _ := b.expr(c)
			add(out, syntax.RoleNone, e)
		}
	}
	if elem == nil {
		return out, val{}
	}
	return out, val{t: arrayOf(elem, dims)}
}

// switchExpr binds a switch; bare enum constant labels resolve against
// the enum of the condition.
func (b *javaBinder) switchExpr(n *tree_sitter.Node) *syntax.Node {
	out := newNode(syntax.KindStatement, n, "", nil)
	cond, cv := b.expr(n.ChildByFieldName("condition"))
	add(out, syntax.RoleCondition, cond)

	prev := b.switchEnum
	b.switchEnum = nil
	if cv.t != nil {
		if jt := b.types[cv.t.Decl().QualifiedName]; jt != nil && jt.b.IsEnum {
			b.switchEnum = jt
		}
	}
	defer func() { b.switchEnum = prev }()
	defer b.pushScope()()
	for _, c := range namedChildren(n.ChildByFieldName("body")) {
		for _, s := range namedChildren(c) {
			add(out, syntax.RoleNone, b.statement(s))
		}
	}
	return out
}

func isLiteral(kind string) bool {
	switch kind {
	case "null_literal", "true", "false", "string_literal", "text_block", "character_literal":
		return true
	}
	return strings.HasSuffix(kind, "_literal")
}

func literalType(kind, lit string) *syntax.TypeBinding {
	switch kind {
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(lit, "L") || strings.HasSuffix(lit, "l") {
			return prim("long")
		}
		return prim("int")
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		if strings.HasSuffix(lit, "f") || strings.HasSuffix(lit, "F") {
			return prim("float")
		}
		return prim("double")
	case "true", "false":
		return prim("boolean")
	case "character_literal":
		return prim("char")
	case "string_literal", "text_block":
		return stringType()
	}
	return nil
}
