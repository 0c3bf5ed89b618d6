package frontend

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

// pyval is the static view of a Python expression.
type pyval struct {
	t      *syntax.TypeBinding
	isType bool
	// module is set when the expression names an imported module.
	module string
}

var pyBuiltinResults = map[string]string{
	"str": "str", "repr": "str", "format": "str", "chr": "str", "input": "str",
	"int": "int", "len": "int", "ord": "int", "hash": "int", "id": "int",
	"float": "float", "bool": "bool", "isinstance": "bool", "issubclass": "bool",
	"hasattr": "bool", "callable": "bool", "bytes": "bytes",
}

func (b *pythonBinder) unit(root *tree_sitter.Node) *syntax.Node {
	for _, c := range b.classes {
		b.bindBases(c)
	}
	cu := newNode(syntax.KindCompilationUnit, root, "", nil)
	add(cu, syntax.RoleNone, newNode(syntax.KindPackage, root, b.module, nil))
	for _, stmt := range namedChildren(root) {
		add(cu, syntax.RoleNone, b.statement(stmt))
	}
	return cu
}

func (b *pythonBinder) suite(n *tree_sitter.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	if n.Kind() != "block" {
		return b.statement(n)
	}
	var out []*syntax.Node
	for _, s := range namedChildren(n) {
		out = append(out, b.statement(s))
	}
	return container(syntax.KindStatement, n, out)
}

func (b *pythonBinder) statement(n *tree_sitter.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "decorated_definition":
		def := n.ChildByFieldName("definition")
		out := b.statement(def)
		if out == nil {
			return nil
		}
		for _, d := range decorators(def) {
			switch text(d.NamedChild(0), b.src) {
			case "staticmethod", "classmethod", "property":
				continue
			}
			e, _ := b.expr(d.NamedChild(0))
			out.Children = append([]*syntax.Node{e}, out.Children...)
		}
		kept := out.Children[:0]
		for _, c := range out.Children {
			if c != nil {
				kept = append(kept, c)
			}
		}
		out.Children = kept
		return out
	case "class_definition":
		return b.classDecl(n)
	case "function_definition":
		return b.funcDecl(n)
	case "import_statement", "import_from_statement":
		var out []*syntax.Node
		for _, imp := range b.importsOf(n) {
			node := newNode(syntax.KindImport, imp.node, imp.qualified, nil)
			if imp.wildcard {
				node.Flags |= syntax.FlagWildcard
			}
			out = append(out, node)
			if b.method != nil && !imp.wildcard {
				b.imports[imp.local] = imp.bound
			}
		}
		return container(syntax.KindStatement, n, out)
	case "expression_statement":
		var out []*syntax.Node
		for _, c := range namedChildren(n) {
			out = append(out, b.exprStatement(c))
		}
		return container(syntax.KindStatement, n, out)
	case "return_statement":
		out := newNode(syntax.KindReturn, n, "", nil)
		if c := n.NamedChild(0); c != nil {
			e, _ := b.expr(c)
			add(out, syntax.RoleNone, e)
		}
		return out
	case "if_statement", "elif_clause", "while_statement":
		out := newNode(syntax.KindStatement, n, "", nil)
		cond, _ := b.expr(n.ChildByFieldName("condition"))
		add(out, syntax.RoleCondition, cond)
		add(out, syntax.RoleNone, b.suite(n.ChildByFieldName("consequence")), b.suite(n.ChildByFieldName("body")))
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "elif_clause":
				add(out, syntax.RoleNone, b.statement(c))
			case "else_clause":
				add(out, syntax.RoleNone, b.suite(c.ChildByFieldName("body")))
			}
		}
		return out
	case "for_statement":
		out := newNode(syntax.KindStatement, n, "", nil)
		right, rv := b.expr(n.ChildByFieldName("right"))
		add(out, syntax.RoleNone, right)
		add(out, syntax.RoleNone, b.bindTargets(n.ChildByFieldName("left"), pyElement(rv.t))...)
		add(out, syntax.RoleNone, b.suite(n.ChildByFieldName("body")))
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			add(out, syntax.RoleNone, b.suite(alt.ChildByFieldName("body")))
		}
		return out
	case "with_statement":
		return b.withStatement(n)
	case "try_statement":
		return b.tryStatement(n)
	case "global_statement", "nonlocal_statement":
		if b.scope != nil {
			for _, id := range namedChildren(n) {
				b.scope.globals[text(id, b.src)] = true
			}
		}
		return nil
	case "pass_statement", "break_statement", "continue_statement", "comment":
		return nil
	case "block":
		return b.suite(n)
	}
	e, _ := b.expr(n)
	return e
}

func (b *pythonBinder) exprStatement(n *tree_sitter.Node) *syntax.Node {
	switch n.Kind() {
	case "assignment":
		return b.assignment(n)
	case "augmented_assignment":
		out := newNode(syntax.KindAssign, n, "", nil)
		left, _ := b.expr(n.ChildByFieldName("left"))
		right, _ := b.expr(n.ChildByFieldName("right"))
		add(out, syntax.RoleLHS, left)
		add(out, syntax.RoleRHS, right)
		return out
	}
	e, _ := b.expr(n)
	return e
}

// pushScope enters a function scope.
func (b *pythonBinder) pushScope() func() {
	prev := b.scope
	b.scope = &pyscope{parent: prev, vars: map[string]*syntax.VariableBinding{}, funcs: map[string]*syntax.MethodBinding{}, globals: map[string]bool{}}
	return func() { b.scope = prev }
}

func (b *pythonBinder) docstring(body *tree_sitter.Node) *syntax.Doc {
	if body == nil {
		return nil
	}
	first := body.NamedChild(0)
	if first == nil || first.Kind() != "expression_statement" {
		return nil
	}
	s := first.NamedChild(0)
	if s == nil || s.Kind() != "string" {
		return nil
	}
	return &syntax.Doc{Range: rangeOf(s), Text: text(s, b.src)}
}

func (b *pythonBinder) classDecl(n *tree_sitter.Node) *syntax.Node {
	c := b.byNode[n.Id()]
	if c == nil {
		// A class declared inside a function body.
		b.collectClass(n, b.cur)
		c = b.byNode[n.Id()]
		b.bindBases(c)
	}
	prevCur, prevMethod := b.cur, b.method
	b.cur, b.method = c, nil
	defer func() { b.cur, b.method = prevCur, prevMethod }()

	out := newNode(syntax.KindTypeDecl, n, c.b.Name, c.b)
	out.Modifiers = c.b.Modifiers
	body := n.ChildByFieldName("body")
	out.Doc = b.docstring(body)
	for i, a := range b.baseNodes(n) {
		role := syntax.RoleInterface
		if i == 0 {
			role = syntax.RoleSuper
		}
		add(out, role, b.typeRef(a))
	}
	for _, s := range namedChildren(body) {
		add(out, syntax.RoleNone, b.statement(s))
	}
	return out
}

func (b *pythonBinder) baseNodes(n *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for _, a := range namedChildren(n.ChildByFieldName("superclasses")) {
		if a.Kind() != "keyword_argument" && text(a, b.src) != "object" {
			out = append(out, a)
		}
	}
	return out
}

// typeRef builds a reference to the class named by n.
func (b *pythonBinder) typeRef(n *tree_sitter.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	t := b.typeExpr(n)
	if t == nil {
		return newNode(syntax.KindTypeRef, n, text(n, b.src), nil)
	}
	return newNode(syntax.KindTypeRef, n, t.Name, t)
}

func (b *pythonBinder) funcDecl(n *tree_sitter.Node) *syntax.Node {
	m := b.methodsByNode[n.Id()]
	if m == nil {
		// A function nested in another function.
		m = b.declareFunction(n, nil)
		if b.scope != nil {
			b.scope.funcs[m.Name] = m
		} else {
			b.functions[m.Name] = m
		}
	}
	prevMethod := b.method
	b.method = m
	defer func() { b.method = prevMethod }()
	defer b.pushScope()()

	out := newNode(syntax.KindMethodDecl, n, m.Name, m)
	out.Modifiers = m.Modifiers
	body := n.ChildByFieldName("body")
	out.Doc = b.docstring(body)

	add(out, syntax.RoleReturnType, b.annotation(n.ChildByFieldName("return_type")))
	for i, p := range b.params(n.ChildByFieldName("parameters")) {
		var self *syntax.TypeBinding
		if i == 0 && b.hasReceiver(m) {
			self = b.cur.b
		}
		add(out, syntax.RoleNone, b.paramDecl(p, self))
	}
	if body != nil {
		block := newNode(syntax.KindBlock, body, "", nil)
		for _, s := range namedChildren(body) {
			add(block, syntax.RoleNone, b.statement(s))
		}
		add(out, syntax.RoleBody, block)
	}
	return out
}

func (b *pythonBinder) annotation(n *tree_sitter.Node) *syntax.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == "type" && n.NamedChild(0) != nil {
		n = n.NamedChild(0)
	}
	if n.Kind() == "string" {
		return nil
	}
	return b.typeRef(n)
}

// paramDecl declares a parameter. self is the class of a self or cls
// receiver.
func (b *pythonBinder) paramDecl(p *tree_sitter.Node, self *syntax.TypeBinding) *syntax.Node {
	nameNode := b.paramName(p)
	v := &syntax.VariableBinding{Name: text(nameNode, b.src), Type: pyObject(), IsParameter: true, DeclaringMethod: b.method}
	out := newNode(syntax.KindParam, p, v.Name, v)
	if self != nil {
		v.Type = self
	}
	if ann := p.ChildByFieldName("type"); ann != nil {
		ref := b.annotation(ann)
		if ref != nil {
			if t, ok := ref.Binding.(*syntax.TypeBinding); ok && t != nil {
				v.Type = t
			}
		}
		add(out, syntax.RoleType, ref)
	}
	if def := p.ChildByFieldName("value"); def != nil {
		e, _ := b.expr(def)
		add(out, syntax.RoleInitializer, e)
	}
	if b.scope != nil {
		b.scope.vars[v.Name] = v
	}
	return out
}

// assignment declares the names a plain assignment introduces: module
// variables, class attributes or function locals.
func (b *pythonBinder) assignment(n *tree_sitter.Node) *syntax.Node {
	right := n.ChildByFieldName("right")
	rhs, rv := b.expr(right)
	left := n.ChildByFieldName("left")
	ann := b.annotation(n.ChildByFieldName("type"))
	if ann != nil {
		if t, ok := ann.Binding.(*syntax.TypeBinding); ok && t != nil {
			rv.t = t
		}
	}

	if left != nil && left.Kind() == "identifier" {
		if decl := b.declareName(n, left, rv.t); decl != nil {
			add(decl, syntax.RoleType, ann)
			add(decl, syntax.RoleInitializer, rhs)
			return decl
		}
	}
	out := newNode(syntax.KindAssign, n, "", nil)
	add(out, syntax.RoleNone, ann)
	for _, t := range flattenTargets(left) {
		if t.Kind() == "identifier" {
			if decl := b.declareName(t, t, nil); decl != nil {
				add(out, syntax.RoleNone, decl)
				continue
			}
		}
		e, _ := b.expr(t)
		add(out, syntax.RoleLHS, e)
	}
	add(out, syntax.RoleRHS, rhs)
	return out
}

// declareName returns the declaration node when assigning to name
// introduces it, nil when it is an existing variable.
func (b *pythonBinder) declareName(at, name *tree_sitter.Node, typ *syntax.TypeBinding) *syntax.Node {
	id := text(name, b.src)
	switch {
	case b.method == nil && b.cur == nil:
		g := b.globals[id]
		if g == nil || b.emitted[g] {
			return nil
		}
		b.emitted[g] = true
		if g.Type == nil {
			g.Type = typ
		}
		return newNode(syntax.KindFieldDecl, at, id, g)
	case b.method == nil:
		f := b.cur.fields[id]
		if f == nil || b.emitted[f] {
			return nil
		}
		b.emitted[f] = true
		if f.Type == nil {
			f.Type = typ
		}
		return newNode(syntax.KindFieldDecl, at, id, f)
	}
	if b.scope == nil || b.scope.globals[id] {
		return nil
	}
	if _, ok := b.scope.vars[id]; ok {
		return nil
	}
	v := &syntax.VariableBinding{Name: id, Type: typ, DeclaringMethod: b.method}
	b.scope.vars[id] = v
	return newNode(syntax.KindVarDecl, at, id, v)
}

// bindTargets declares or writes the targets of a for loop, with clause or
// comprehension.
func (b *pythonBinder) bindTargets(left *tree_sitter.Node, typ *syntax.TypeBinding) []*syntax.Node {
	var out []*syntax.Node
	for _, t := range flattenTargets(left) {
		if t.Kind() == "identifier" {
			if decl := b.declareName(t, t, typ); decl != nil {
				out = append(out, decl)
				continue
			}
		}
		e, _ := b.expr(t)
		if e != nil {
			e.Role = syntax.RoleLHS
		}
		out = append(out, e)
	}
	return out
}

func (b *pythonBinder) withStatement(n *tree_sitter.Node) *syntax.Node {
	out := newNode(syntax.KindStatement, n, "", nil)
	walkPy(n, func(c *tree_sitter.Node) bool {
		if c.Kind() != "with_item" {
			return c.Kind() == "with_statement" || c.Kind() == "with_clause"
		}
		value := c.ChildByFieldName("value")
		if value != nil && value.Kind() == "as_pattern" {
			e, v := b.expr(value.NamedChild(0))
			add(out, syntax.RoleNone, e)
			if alias := value.ChildByFieldName("alias"); alias != nil {
				add(out, syntax.RoleNone, b.bindTargets(aliasTarget(alias), v.t)...)
			}
			return false
		}
		e, _ := b.expr(value)
		add(out, syntax.RoleNone, e)
		return false
	})
	add(out, syntax.RoleNone, b.suite(n.ChildByFieldName("body")))
	return out
}

func (b *pythonBinder) tryStatement(n *tree_sitter.Node) *syntax.Node {
	out := newNode(syntax.KindStatement, n, "", nil)
	add(out, syntax.RoleNone, b.suite(n.ChildByFieldName("body")))
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "except_clause", "except_group_clause":
			var exc *syntax.TypeBinding
			for _, part := range namedChildren(c) {
				switch {
				case part.Kind() == "block":
					add(out, syntax.RoleNone, b.suite(part))
				case part.Kind() == "as_pattern":
					add(out, syntax.RoleNone, b.typeRef(part.NamedChild(0)))
					exc = b.typeExpr(part.NamedChild(0))
					if alias := part.ChildByFieldName("alias"); alias != nil {
						add(out, syntax.RoleNone, b.bindTargets(aliasTarget(alias), exc)...)
					}
				case part.Kind() == "identifier" && exc != nil:
					add(out, syntax.RoleNone, b.bindTargets(part, exc)...)
				default:
					exc = b.typeExpr(part)
					add(out, syntax.RoleNone, b.typeRef(part))
				}
			}
		case "else_clause", "finally_clause":
			add(out, syntax.RoleNone, b.suite(c.ChildByFieldName("body")))
			if body := firstNamed(c, "block"); body != nil && c.ChildByFieldName("body") == nil {
				add(out, syntax.RoleNone, b.suite(body))
			}
		}
	}
	return out
}

func (b *pythonBinder) lookupFunc(name string) *syntax.MethodBinding {
	for s := b.scope; s != nil; s = s.parent {
		if m := s.funcs[name]; m != nil {
			return m
		}
	}
	return nil
}

// pyElement is the element type of a parameterized container annotation.
func pyElement(t *syntax.TypeBinding) *syntax.TypeBinding {
	if t != nil && len(t.TypeArgs) == 1 {
		return t.TypeArgs[0]
	}
	return nil
}

// aliasTarget unwraps the target of an as clause.
func aliasTarget(n *tree_sitter.Node) *tree_sitter.Node {
	if n != nil && n.Kind() == "as_pattern_target" {
		return n.NamedChild(0)
	}
	return n
}

func (b *pythonBinder) lookupLocal(name string) *syntax.VariableBinding {
	for s := b.scope; s != nil; s = s.parent {
		if v := s.vars[name]; v != nil {
			return v
		}
		if s.globals[name] {
			break
		}
	}
	return nil
}

func (b *pythonBinder) expr(n *tree_sitter.Node) (*syntax.Node, pyval) {
	if n == nil {
		return nil, pyval{}
	}
	switch n.Kind() {
	case "identifier":
		return b.identifier(n)
	case "attribute":
		return b.attribute(n)
	case "call":
		return b.call(n)
	case "subscript":
		out := newNode(syntax.KindIndex, n, "", nil)
		value, vv := b.expr(n.ChildByFieldName("value"))
		add(out, syntax.RoleArray, value)
		for i, s := range namedChildren(n) {
			if i == 0 {
				continue
			}
			e, _ := b.expr(s)
			add(out, syntax.RoleIndexExpr, e)
		}
		return out, pyval{t: pyElement(vv.t)}
	case "lambda":
		return b.lambda(n), pyval{}
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		return b.comprehension(n), pyval{t: &syntax.TypeBinding{QualifiedName: "builtins.list", Name: "list"}}
	case "parenthesized_expression":
		return b.expr(n.NamedChild(0))
	case "keyword_argument":
		return b.expr(n.ChildByFieldName("value"))
	case "list_splat", "dictionary_splat", "await":
		return b.expr(n.NamedChild(0))
	case "string", "concatenated_string":
		var parts []*syntax.Node
		walkPy(n, func(c *tree_sitter.Node) bool {
			if c.Kind() == "interpolation" {
				e, _ := b.expr(c.NamedChild(0))
				parts = append(parts, e)
				return false
			}
			return true
		})
		if len(parts) == 0 {
			return newNode(syntax.KindLiteral, n, "", nil), pyval{t: prim("str")}
		}
		return container(syntax.KindExpr, n, parts), pyval{t: prim("str")}
	case "integer":
		return newNode(syntax.KindLiteral, n, "", nil), pyval{t: prim("int")}
	case "float":
		return newNode(syntax.KindLiteral, n, "", nil), pyval{t: prim("float")}
	case "true", "false":
		return newNode(syntax.KindLiteral, n, "", nil), pyval{t: prim("bool")}
	case "none", "ellipsis":
		return newNode(syntax.KindLiteral, n, "", nil), pyval{}
	case "comparison_operator", "boolean_operator", "not_operator":
		return b.children(n), pyval{t: prim("bool")}
	case "binary_operator":
		out := b.children(n)
		_, lv := b.exprType(n.ChildByFieldName("left"))
		return out, lv
	case "conditional_expression":
		cs := namedChildren(n)
		out := newNode(syntax.KindExpr, n, "", nil)
		var v pyval
		for i, c := range cs {
			e, ev := b.expr(c)
			if i == 1 {
				add(out, syntax.RoleCondition, e)
				continue
			}
			if v.t == nil {
				v = ev
			}
			add(out, syntax.RoleNone, e)
		}
		return out, pyval{t: v.t}
	case "named_expression":
		out := newNode(syntax.KindAssign, n, "", nil)
		value, vv := b.expr(n.ChildByFieldName("value"))
		add(out, syntax.RoleNone, b.bindTargets(n.ChildByFieldName("name"), vv.t)...)
		add(out, syntax.RoleRHS, value)
		return out, vv
	}
	return b.children(n), pyval{}
}

// exprType is the type of an expression already built elsewhere.
func (b *pythonBinder) exprType(n *tree_sitter.Node) (*syntax.Node, pyval) {
	if n == nil {
		return nil, pyval{}
	}
	switch n.Kind() {
	case "string", "concatenated_string":
		return nil, pyval{t: prim("str")}
	case "integer":
		return nil, pyval{t: prim("int")}
	case "float":
		return nil, pyval{t: prim("float")}
	case "identifier":
		if v := b.lookupLocal(text(n, b.src)); v != nil {
			return nil, pyval{t: v.Type}
		}
	}
	return nil, pyval{}
}

func (b *pythonBinder) children(n *tree_sitter.Node) *syntax.Node {
	var out []*syntax.Node
	for _, c := range namedChildren(n) {
		e, _ := b.expr(c)
		out = append(out, e)
	}
	return container(syntax.KindExpr, n, out)
}

func (b *pythonBinder) identifier(n *tree_sitter.Node) (*syntax.Node, pyval) {
	name := text(n, b.src)
	if v := b.lookupLocal(name); v != nil {
		return newNode(syntax.KindName, n, name, v), pyval{t: v.Type}
	}
	if m := b.lookupFunc(name); m != nil {
		return newNode(syntax.KindName, n, name, m), pyval{}
	}
	if g := b.globals[name]; g != nil {
		return newNode(syntax.KindName, n, name, g), pyval{t: g.Type}
	}
	if m := b.functions[name]; m != nil {
		return newNode(syntax.KindName, n, name, m), pyval{}
	}
	if t := b.typeName(name); t != nil && !t.IsPrimitive {
		return newNode(syntax.KindName, n, name, t), pyval{t: t, isType: true}
	}
	if qn, ok := b.imports[name]; ok {
		return nil, pyval{module: qn}
	}
	if pyBuiltins[name] || name == "self" || name == "cls" {
		return nil, pyval{}
	}
	return newNode(syntax.KindName, n, name, nil), pyval{}
}

// attribute binds obj.attr as a field access.
func (b *pythonBinder) attribute(n *tree_sitter.Node) (*syntax.Node, pyval) {
	attrNode := n.ChildByFieldName("attribute")
	attr := text(attrNode, b.src)
	recv, ov := b.expr(n.ChildByFieldName("object"))

	var v *syntax.VariableBinding
	switch {
	case ov.module != "":
		qn := ov.module + "." + attr
		if c := b.classes[qn]; c != nil {
			return newNode(syntax.KindName, attrNode, attr, c.b), pyval{t: c.b, isType: true}
		}
		if startsUpper(attr) {
			t := &syntax.TypeBinding{QualifiedName: qn, Name: attr}
			return newNode(syntax.KindName, attrNode, attr, t), pyval{t: t, isType: true}
		}
		v = &syntax.VariableBinding{Name: attr, IsField: true, DeclaringType: moduleRef(ov.module), Modifiers: model.ModStatic}
		out := newNode(syntax.KindFieldAccess, attrNode, attr, v)
		return out, pyval{module: qn}
	case ov.t == nil:
		v = &syntax.VariableBinding{Name: attr, IsField: true, DeclaringType: pyObject()}
	default:
		if c := b.classes[ov.t.QualifiedName]; c != nil && ov.isType {
			if nested := c.nested[attr]; nested != nil {
				return newNode(syntax.KindName, attrNode, attr, nested.b), pyval{t: nested.b, isType: true}
			}
		}
		v = b.findField(ov.t, attr)
	}
	out := newNode(syntax.KindFieldAccess, attrNode, attr, v)
	add(out, syntax.RoleReceiver, recv)
	return out, pyval{t: v.Type}
}

// classChain walks t and its unit base classes. It returns the first base
// declared outside the unit, if any.
func (b *pythonBinder) classChain(t *syntax.TypeBinding, visit func(*pyclass) bool) *syntax.TypeBinding {
	queue := []*syntax.TypeBinding{t}
	seen := map[string]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur.QualifiedName] {
			continue
		}
		seen[cur.QualifiedName] = true
		c := b.classes[cur.QualifiedName]
		if c == nil {
			return cur
		}
		if visit(c) {
			return nil
		}
		if c.b.Superclass != nil {
			queue = append(queue, c.b.Superclass)
		}
		queue = append(queue, c.b.Interfaces...)
	}
	return nil
}

func (b *pythonBinder) findField(t *syntax.TypeBinding, name string) *syntax.VariableBinding {
	var found *syntax.VariableBinding
	ext := b.classChain(t, func(c *pyclass) bool {
		found = c.fields[name]
		return found != nil
	})
	switch {
	case found != nil:
		return found
	case ext != nil:
		return &syntax.VariableBinding{Name: name, IsField: true, DeclaringType: ext}
	}
	return &syntax.VariableBinding{Name: name, IsField: true, DeclaringType: t}
}

func (b *pythonBinder) findMethod(t *syntax.TypeBinding, name string, args int) (*syntax.MethodBinding, bool) {
	var found *syntax.MethodBinding
	dynamic := false
	ext := b.classChain(t, func(c *pyclass) bool {
		found = c.methods[name]
		if found == nil && c.fields[name] != nil {
			dynamic = true
			return true
		}
		return found != nil
	})
	switch {
	case found != nil:
		return found, true
	case dynamic:
		return nil, false
	case ext != nil:
		return b.external(ext, name, args, false), true
	}
	return nil, true
}

// external binds a callable declared outside the unit. Every argument
// has type object.
func (b *pythonBinder) external(owner *syntax.TypeBinding, name string, args int, static bool) *syntax.MethodBinding {
	m := &syntax.MethodBinding{Name: name, DeclaringType: owner, IsConstructor: name == "__init__"}
	for i := 0; i < args; i++ {
		m.ParamTypes = append(m.ParamTypes, pyObject())
	}
	if static {
		m.Modifiers = model.ModStatic
	}
	return m
}

func (b *pythonBinder) arguments(n *tree_sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for _, a := range namedChildren(n) {
		e, _ := b.expr(a)
		out = append(out, e)
	}
	return out
}

// constructorOf binds C(...) for a unit or external class.
func (b *pythonBinder) constructorOf(t *syntax.TypeBinding, args int) *syntax.MethodBinding {
	if c := b.classes[t.QualifiedName]; c != nil {
		var init *syntax.MethodBinding
		ext := b.classChain(t, func(c *pyclass) bool {
			init = c.methods["__init__"]
			return init != nil
		})
		if init != nil {
			return init
		}
		owner := c.b
		if ext != nil {
			owner = ext
		}
		return b.external(owner, "__init__", args, false)
	}
	return b.external(t, "__init__", args, false)
}

func (b *pythonBinder) call(n *tree_sitter.Node) (*syntax.Node, pyval) {
	fn := n.ChildByFieldName("function")
	argsNode := n.ChildByFieldName("arguments")
	args := b.arguments(argsNode)
	argc := len(namedChildren(argsNode))

	var (
		m       *syntax.MethodBinding
		recv    *syntax.Node
		at      = fn
		ok      = true
		result  pyval
		newExpr bool
	)
	switch fn.Kind() {
	case "identifier":
		name := text(fn, b.src)
		switch {
		case b.lookupLocal(name) != nil:
			// Calling a variable holding a callable.
			e, _ := b.expr(fn)
			return container(syntax.KindExpr, n, append([]*syntax.Node{e}, args...)), pyval{}
		case b.lookupFunc(name) != nil:
			m = b.lookupFunc(name)
		case b.functions[name] != nil:
			m = b.functions[name]
		default:
			if t := b.typeName(name); t != nil && !t.IsPrimitive {
				m, newExpr, result = b.constructorOf(t, argc), true, pyval{t: t}
				break
			}
			if qn, found := b.imports[name]; found {
				owner := builtinsModule
				if i := strings.LastIndexByte(qn, '.'); i > 0 {
					owner = moduleRef(qn[:i])
				}
				m = b.external(owner, qn[strings.LastIndexByte(qn, '.')+1:], argc, true)
				break
			}
			if pyBuiltins[name] {
				m = b.external(builtinsModule, name, argc, true)
				if r, found := pyBuiltinResults[name]; found {
					result = pyval{t: prim(r)}
				}
				break
			}
		}
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attrNode := fn.ChildByFieldName("attribute")
		name := text(attrNode, b.src)
		at = attrNode
		if obj.Kind() == "call" && text(obj.ChildByFieldName("function"), b.src) == "super" {
			sup := pyObject()
			if b.cur != nil && b.cur.b.Superclass != nil {
				sup = b.cur.b.Superclass
			}
			m, ok = b.findMethod(sup, name, argc)
			if m == nil && ok {
				m = b.external(sup, name, argc, false)
			}
			if m != nil {
				c := *m
				c.Modifiers |= model.ModFinal
				m = &c
			}
			break
		}
		var ov pyval
		recv, ov = b.expr(obj)
		switch {
		case ov.module != "":
			qn := ov.module + "." + name
			if c := b.classes[qn]; c != nil {
				m, newExpr, result = b.constructorOf(c.b, argc), true, pyval{t: c.b}
			} else if startsUpper(name) {
				t := &syntax.TypeBinding{QualifiedName: qn, Name: name}
				m, newExpr, result = b.constructorOf(t, argc), true, pyval{t: t}
			} else {
				m = b.external(moduleRef(ov.module), name, argc, true)
			}
		case ov.t == nil:
			m = b.external(pyObject(), name, argc, false)
		default:
			m, ok = b.findMethod(ov.t, name, argc)
			if m == nil && ok && b.classes[ov.t.QualifiedName] == nil {
				m = b.external(ov.t, name, argc, false)
			}
		}
	default:
		e, _ := b.expr(fn)
		return container(syntax.KindExpr, n, append([]*syntax.Node{e}, args...)), pyval{}
	}
	if !ok {
		// An attribute holding a callable.
		return container(syntax.KindExpr, n, append([]*syntax.Node{recv}, args...)), pyval{}
	}

	var out *syntax.Node
	switch {
	case newExpr:
		out = newNode(syntax.KindNew, n, m.Name, m)
	case m == nil:
		out = newNode(syntax.KindCall, at, text(at, b.src), nil)
	default:
		out = newNode(syntax.KindCall, at, m.Name, m)
		if result.t == nil {
			result = pyval{t: m.ReturnType}
		}
	}
	add(out, syntax.RoleReceiver, recv)
	add(out, syntax.RoleArgument, args...)
	return out, result
}

func (b *pythonBinder) lambda(n *tree_sitter.Node) *syntax.Node {
	out := newNode(syntax.KindLambda, n, "", nil)
	defer b.pushScope()()
	for _, p := range b.params(n.ChildByFieldName("parameters")) {
		add(out, syntax.RoleNone, b.paramDecl(p, nil))
	}
	body, _ := b.expr(n.ChildByFieldName("body"))
	add(out, syntax.RoleBody, body)
	return out
}

// comprehension gives the loop variables of a comprehension their own
// block.
func (b *pythonBinder) comprehension(n *tree_sitter.Node) *syntax.Node {
	out := newNode(syntax.KindBlock, n, "", nil)
	prevMethod := b.method
	if b.method == nil {
		b.method = &syntax.MethodBinding{Name: "<comprehension>", DeclaringType: b.moduleType}
	}
	defer func() { b.method = prevMethod }()
	defer b.pushScope()()
	var body *tree_sitter.Node
	for _, c := range namedChildren(n) {
		switch c.Kind() {
		case "for_in_clause":
			right, rv := b.expr(c.ChildByFieldName("right"))
			add(out, syntax.RoleNone, right)
			add(out, syntax.RoleNone, b.bindTargets(c.ChildByFieldName("left"), pyElement(rv.t))...)
		case "if_clause":
			cond, _ := b.expr(c.NamedChild(0))
			add(out, syntax.RoleCondition, cond)
		default:
			if body == nil {
				body = c
			}
		}
	}
	e, _ := b.expr(body)
	add(out, syntax.RoleNone, e)
	return out
}
