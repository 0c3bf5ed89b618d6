package frontend

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/fqn"
	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

type javaFrontend struct{}

// Build binds a Java unit in three passes: declared types, their members,
// then the tree with lexical scopes.
func (javaFrontend) Build(unit *syntax.Unit) (*syntax.Node, error) {
	tree, err := parse(unit)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	b := &javaBinder{
		src:           unit.Source,
		spec:          lang.ForLanguage(lang.Java),
		types:         map[string]*jtype{},
		top:           map[string]*jtype{},
		byNode:        map[uintptr]*jtype{},
		methodsByNode: map[uintptr]*syntax.MethodBinding{},
		fieldsByNode:  map[uintptr]*syntax.VariableBinding{},
		imports:       map[string]string{},
		staticImports: map[string]string{},
	}
	root := tree.RootNode()
	b.header(root)
	for _, c := range namedChildren(root) {
		if isJavaTypeDecl(c.Kind()) {
			b.collectType(c, nil, fqn.JoinQN(b.pkg, text(c.ChildByFieldName("name"), b.src)))
		}
	}
	for _, t := range b.order {
		b.declareMembers(t)
	}
	out := b.unit(root)
	unit.Root = out
	return out, nil
}

// jtype is a type declared in the unit.
type jtype struct {
	b       *syntax.TypeBinding
	ts      *tree_sitter.Node
	outer   *jtype
	nested  map[string]*jtype
	fields  map[string]*syntax.VariableBinding
	consts  map[string]*syntax.VariableBinding
	methods map[string][]*syntax.MethodBinding
	anon    int
	local   bool
}

// jscope is a lexical scope of locals, local classes and method type
// parameters.
type jscope struct {
	parent *jscope
	vars   map[string]*syntax.VariableBinding
	types  map[string]*jtype
	tvars  map[string]bool
}

type javaBinder struct {
	src  []byte
	spec *lang.LanguageSpec
	pkg  string

	types         map[string]*jtype
	top           map[string]*jtype
	order         []*jtype
	byNode        map[uintptr]*jtype
	methodsByNode map[uintptr]*syntax.MethodBinding
	fieldsByNode  map[uintptr]*syntax.VariableBinding

	imports         map[string]string
	wildcards       []string
	staticImports   map[string]string
	staticWildcards []string

	cur        *jtype
	method     *syntax.MethodBinding
	scope      *jscope
	switchEnum *jtype
}

var javaTypeDecls = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

func isJavaTypeDecl(kind string) bool { return javaTypeDecls[kind] }

// header reads the package declaration and the imports.
func (b *javaBinder) header(root *tree_sitter.Node) {
	for _, c := range namedChildren(root) {
		switch c.Kind() {
		case "package_declaration":
			if q := qualifierChild(c); q != nil {
				b.pkg = text(q, b.src)
			}
		case "import_declaration":
			qn, static, wildcard := b.importParts(c)
			if qn == "" {
				continue
			}
			simple := qn[strings.LastIndexByte(qn, '.')+1:]
			switch {
			case static && wildcard:
				b.staticWildcards = append(b.staticWildcards, qn)
			case static:
				b.staticImports[simple] = strings.TrimSuffix(qn, "."+simple)
			case wildcard:
				b.wildcards = append(b.wildcards, qn)
			default:
				b.imports[simple] = qn
			}
		}
	}
}

func (b *javaBinder) importParts(n *tree_sitter.Node) (qn string, static, wildcard bool) {
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		switch c.Kind() {
		case "static":
			static = true
		case "asterisk":
			wildcard = true
		case "scoped_identifier", "identifier":
			qn = text(c, b.src)
		}
	}
	return qn, static, wildcard
}

func qualifierChild(n *tree_sitter.Node) *tree_sitter.Node {
	for _, c := range namedChildren(n) {
		if c.Kind() == "scoped_identifier" || c.Kind() == "identifier" {
			return c
		}
	}
	return nil
}

// collectType registers a type declaration and its member types.
func (b *javaBinder) collectType(n *tree_sitter.Node, outer *jtype, qn string) *jtype {
	name := text(n.ChildByFieldName("name"), b.src)
	tb := &syntax.TypeBinding{QualifiedName: qn, Name: name, Modifiers: b.modifiers(n)}
	switch n.Kind() {
	case "interface_declaration", "annotation_type_declaration":
		tb.IsInterface = true
	case "enum_declaration":
		tb.IsEnum = true
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		for _, p := range namedChildren(tp) {
			if id := firstNamed(p, "type_identifier", "identifier"); id != nil {
				tb.TypeParams = append(tb.TypeParams, text(id, b.src))
			}
		}
	}
	t := &jtype{
		b:       tb,
		ts:      n,
		outer:   outer,
		nested:  map[string]*jtype{},
		fields:  map[string]*syntax.VariableBinding{},
		consts:  map[string]*syntax.VariableBinding{},
		methods: map[string][]*syntax.MethodBinding{},
	}
	b.types[qn] = t
	b.byNode[n.Id()] = t
	b.order = append(b.order, t)
	if outer == nil {
		b.top[name] = t
	} else {
		outer.nested[name] = t
	}
	for _, m := range b.bodyMembers(n) {
		if isJavaTypeDecl(m.Kind()) {
			b.collectType(m, t, qn+"."+text(m.ChildByFieldName("name"), b.src))
		}
	}
	return t
}

// bodyMembers lists the member declarations of a type, flattening enum
// body declarations.
func (b *javaBinder) bodyMembers(n *tree_sitter.Node) []*tree_sitter.Node {
	body := n.ChildByFieldName("body")
	if body == nil {
		body = firstNamed(n, "class_body")
	}
	if body == nil {
		return nil
	}
	var out []*tree_sitter.Node
	for _, c := range namedChildren(body) {
		if c.Kind() == "enum_body_declarations" {
			out = append(out, namedChildren(c)...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// declareMembers binds the supertypes, fields, enum constants and methods
// of t. Member types must already be collected.
func (b *javaBinder) declareMembers(t *jtype) {
	savedCur, savedScope := b.cur, b.scope
	b.cur = t
	defer func() { b.cur, b.scope = savedCur, savedScope }()

	n := t.ts
	tb := t.b
	switch n.Kind() {
	case "class_declaration":
		if sc := n.ChildByFieldName("superclass"); sc != nil {
			tb.Superclass = b.typeOf(lastNamed(sc))
		}
		tb.Interfaces = b.typeList(n.ChildByFieldName("interfaces"))
	case "interface_declaration":
		tb.Interfaces = b.typeList(firstNamed(n, "extends_interfaces"))
	case "enum_declaration":
		tb.Superclass = &syntax.TypeBinding{
			QualifiedName: "java.lang.Enum", Name: "Enum",
			TypeArgs:    []*syntax.TypeBinding{tb},
			Declaration: javaLang("Enum"),
		}
		tb.Interfaces = b.typeList(n.ChildByFieldName("interfaces"))
	case "record_declaration":
		tb.Superclass = javaLang("Record")
		tb.Interfaces = b.typeList(n.ChildByFieldName("interfaces"))
		b.declareRecordComponents(t)
	}

	ctors := 0
	ordinal := 0
	for _, m := range b.bodyMembers(n) {
		b.scope = savedScope
		switch m.Kind() {
		case "field_declaration", "constant_declaration":
			typ := b.typeOf(m.ChildByFieldName("type"))
			mods := b.modifiers(m)
			if tb.IsInterface {
				mods |= model.ModPublic | model.ModStatic | model.ModFinal
			}
			for _, d := range declarators(m) {
				v := &syntax.VariableBinding{
					Name:          text(d.ChildByFieldName("name"), b.src),
					Type:          withDims(typ, d, b.src),
					IsField:       true,
					DeclaringType: tb,
					Modifiers:     mods,
				}
				t.fields[v.Name] = v
				b.fieldsByNode[d.Id()] = v
			}
		case "enum_constant":
			v := &syntax.VariableBinding{
				Name:           text(m.ChildByFieldName("name"), b.src),
				Type:           tb,
				IsEnumConstant: true,
				DeclaringType:  tb,
				Modifiers:      model.ModPublic | model.ModStatic | model.ModFinal,
				Ordinal:        ordinal,
			}
			ordinal++
			t.consts[v.Name] = v
			b.fieldsByNode[m.Id()] = v
		case "method_declaration", "annotation_type_element_declaration":
			b.declareMethod(t, m, false)
		case "constructor_declaration", "compact_constructor_declaration":
			b.declareMethod(t, m, true)
			ctors++
		}
	}
	if ctors == 0 && !tb.IsInterface && n.Kind() != "record_declaration" {
		mods := model.ModPublic
		if tb.IsEnum {
			mods = model.ModPrivate
		}
		b.addMethod(t, &syntax.MethodBinding{Name: tb.Name, DeclaringType: tb, Modifiers: mods, IsConstructor: true})
	}
}

// declareRecordComponents turns record components into private final
// fields, accessors and the canonical constructor.
func (b *javaBinder) declareRecordComponents(t *jtype) {
	params := t.ts.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	ctor := &syntax.MethodBinding{Name: t.b.Name, DeclaringType: t.b, Modifiers: model.ModPublic, IsConstructor: true}
	for _, p := range namedChildren(params) {
		name, typ, _ := b.param(p)
		if name == "" {
			continue
		}
		v := &syntax.VariableBinding{Name: name, Type: typ, IsField: true, DeclaringType: t.b, Modifiers: model.ModPrivate | model.ModFinal}
		t.fields[name] = v
		b.fieldsByNode[p.Id()] = v
		ctor.ParamTypes = append(ctor.ParamTypes, typ)
		b.addMethod(t, &syntax.MethodBinding{Name: name, DeclaringType: t.b, ReturnType: typ, Modifiers: model.ModPublic})
	}
	b.addMethod(t, ctor)
}

func (b *javaBinder) declareMethod(t *jtype, n *tree_sitter.Node, ctor bool) {
	b.scope = &jscope{parent: b.scope, tvars: b.typeParams(n)}
	m := &syntax.MethodBinding{
		Name:          text(n.ChildByFieldName("name"), b.src),
		DeclaringType: t.b,
		Modifiers:     b.modifiers(n),
		IsConstructor: ctor,
	}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		for _, p := range namedChildren(tp) {
			if id := firstNamed(p, "type_identifier", "identifier"); id != nil {
				m.TypeParams = append(m.TypeParams, text(id, b.src))
			}
		}
	}
	if ctor {
		m.Name = t.b.Name
	} else {
		m.ReturnType = withDims(b.typeOf(n.ChildByFieldName("type")), n, b.src)
	}
	if n.Kind() == "compact_constructor_declaration" {
		if c := t.methods[t.b.Name]; len(c) > 0 {
			m.ParamTypes = c[0].ParamTypes
		}
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range namedChildren(params) {
			if _, typ, ok := b.param(p); ok {
				m.ParamTypes = append(m.ParamTypes, typ)
			}
		}
	}
	if t.b.IsInterface && n.ChildByFieldName("body") == nil && !m.Modifiers.Has(model.ModStatic) {
		m.Modifiers |= model.ModAbstract
	}
	if t.b.IsInterface && !m.Modifiers.Has(model.ModPrivate) {
		m.Modifiers |= model.ModPublic
	}
	if n.Kind() == "compact_constructor_declaration" {
		// Replaces the canonical constructor declared from the components.
		t.methods[t.b.Name] = nil
	}
	b.addMethod(t, m)
	b.methodsByNode[n.Id()] = m
}

func (b *javaBinder) addMethod(t *jtype, m *syntax.MethodBinding) {
	t.methods[m.Name] = append(t.methods[m.Name], m)
}

// param returns the name and type of a formal or spread parameter. ok is
// false for receiver parameters and anything that is not a parameter.
func (b *javaBinder) param(p *tree_sitter.Node) (name string, typ *syntax.TypeBinding, ok bool) {
	switch p.Kind() {
	case "formal_parameter", "catch_formal_parameter":
		typ = withDims(b.typeOf(p.ChildByFieldName("type")), p, b.src)
		return text(p.ChildByFieldName("name"), b.src), typ, true
	case "spread_parameter":
		var decl *tree_sitter.Node
		for _, c := range namedChildren(p) {
			switch {
			case c.Kind() == "variable_declarator":
				decl = c
			case c.Kind() != "modifiers" && typ == nil:
				typ = b.typeOf(c)
			}
		}
		if typ != nil {
			typ = arrayOf(typ, 1)
		}
		if decl != nil {
			name = text(decl.ChildByFieldName("name"), b.src)
		}
		return name, typ, true
	}
	return "", nil, false
}

func (b *javaBinder) typeParams(n *tree_sitter.Node) map[string]bool {
	out := map[string]bool{}
	if tp := n.ChildByFieldName("type_parameters"); tp != nil {
		for _, p := range namedChildren(tp) {
			if id := firstNamed(p, "type_identifier", "identifier"); id != nil {
				out[text(id, b.src)] = true
			}
		}
	}
	return out
}

func (b *javaBinder) typeList(n *tree_sitter.Node) []*syntax.TypeBinding {
	if n == nil {
		return nil
	}
	if l := firstNamed(n, "type_list"); l != nil {
		n = l
	}
	var out []*syntax.TypeBinding
	for _, c := range namedChildren(n) {
		if t := b.typeOf(c); t != nil {
			out = append(out, t)
		}
	}
	return out
}

// modifiers reads the modifier keywords of a declaration.
func (b *javaBinder) modifiers(n *tree_sitter.Node) model.Modifier {
	mods := firstNamed(n, "modifiers")
	if mods == nil {
		return 0
	}
	var words []string
	for i := uint(0); i < mods.ChildCount(); i++ {
		words = append(words, mods.Child(i).Kind())
	}
	return model.ParseModifiers(words)
}

// decorate copies modifiers, their ranges and the doc comment of a
// declaration onto out.
func (b *javaBinder) decorate(out *syntax.Node, n *tree_sitter.Node) {
	out.Modifiers = b.modifiers(n)
	if mods := firstNamed(n, "modifiers"); mods != nil {
		out.ModifierRanges = []model.Range{rangeOf(mods)}
		for _, a := range namedChildren(mods) {
			if a.Kind() == "marker_annotation" || a.Kind() == "annotation" {
				if name := a.ChildByFieldName("name"); name != nil {
					t := b.resolveSimple(text(name, b.src))
					add(out, syntax.RoleNone, newNode(syntax.KindTypeRef, name, t.Name, t))
				}
			}
		}
	}
	if prev := n.PrevSibling(); prev != nil && prev.Kind() == "block_comment" {
		if doc := text(prev, b.src); strings.HasPrefix(doc, "/**") {
			out.Doc = &syntax.Doc{Range: rangeOf(prev), Text: doc}
		}
	}
}

func declarators(n *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for _, c := range namedChildren(n) {
		if c.Kind() == "variable_declarator" {
			out = append(out, c)
		}
	}
	return out
}

// withDims applies C-style array dimensions (int x[]) found on n.
func withDims(t *syntax.TypeBinding, n *tree_sitter.Node, src []byte) *syntax.TypeBinding {
	if t == nil {
		return nil
	}
	d := n.ChildByFieldName("dimensions")
	if d == nil {
		return t
	}
	return arrayOf(t, strings.Count(text(d, src), "["))
}

func namedChildren(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*tree_sitter.Node, 0, n.NamedChildCount())
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Kind() == "line_comment" || c.Kind() == "block_comment" || c.Kind() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func firstNamed(n *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	if n == nil {
		return nil
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		for _, k := range kinds {
			if c != nil && c.Kind() == k {
				return c
			}
		}
	}
	return nil
}

func lastNamed(n *tree_sitter.Node) *tree_sitter.Node {
	cs := namedChildren(n)
	if len(cs) == 0 {
		return nil
	}
	return cs[len(cs)-1]
}
