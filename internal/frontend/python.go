package frontend

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/fqn"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

type pythonFrontend struct{}

// Build binds a Python module. Functions are members of a pseudo type
// named after the module; every parameter has type object.
func (pythonFrontend) Build(unit *syntax.Unit) (*syntax.Node, error) {
	tree, err := parse(unit)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	module := fqn.ModuleQN(unit.Path)
	b := &pythonBinder{
		src:           unit.Source,
		path:          unit.Path,
		module:        module,
		moduleType:    moduleRef(module),
		classes:       map[string]*pyclass{},
		top:           map[string]*pyclass{},
		byNode:        map[uintptr]*pyclass{},
		functions:     map[string]*syntax.MethodBinding{},
		methodsByNode: map[uintptr]*syntax.MethodBinding{},
		globals:       map[string]*syntax.VariableBinding{},
		emitted:       map[*syntax.VariableBinding]bool{},
		receivers:     map[*syntax.MethodBinding]bool{},
		imports:       map[string]string{},
	}
	root := tree.RootNode()
	b.collect(root, nil)
	out := b.unit(root)
	unit.Root = out
	return out, nil
}

// pyBuiltins are callable without an import.
var pyBuiltins = map[string]bool{
	"print": true, "len": true, "range": true, "str": true, "int": true, "float": true,
	"bool": true, "bytes": true, "list": true, "dict": true, "set": true, "tuple": true,
	"frozenset": true, "isinstance": true, "issubclass": true, "super": true, "open": true,
	"enumerate": true, "zip": true, "map": true, "filter": true, "sorted": true,
	"reversed": true, "min": true, "max": true, "sum": true, "abs": true, "any": true,
	"all": true, "getattr": true, "setattr": true, "hasattr": true, "delattr": true,
	"type": true, "id": true, "repr": true, "hash": true, "iter": true, "next": true,
	"vars": true, "dir": true, "round": true, "format": true, "input": true, "ord": true,
	"chr": true, "divmod": true, "pow": true, "callable": true, "property": true,
	"staticmethod": true, "classmethod": true, "object": true, "Exception": true,
	"BaseException": true, "ValueError": true, "TypeError": true, "KeyError": true,
	"IndexError": true, "RuntimeError": true, "NotImplementedError": true,
	"AttributeError": true, "StopIteration": true, "OSError": true, "print_function": true,
	"NotImplemented": true, "Ellipsis": true, "__name__": true, "__file__": true,
}

var builtinsModule = &syntax.TypeBinding{QualifiedName: "builtins", Name: "builtins"}

func pyObject() *syntax.TypeBinding { return prim("object") }

// moduleRef is the pseudo type of an imported module.
func moduleRef(qn string) *syntax.TypeBinding {
	return &syntax.TypeBinding{QualifiedName: qn, Name: qn[strings.LastIndexByte(qn, '.')+1:]}
}

type pyclass struct {
	b       *syntax.TypeBinding
	ts      *tree_sitter.Node
	outer   *pyclass
	nested  map[string]*pyclass
	methods map[string]*syntax.MethodBinding
	fields  map[string]*syntax.VariableBinding
}

// pyscope holds the locals of one function. Enclosing functions are
// visible through parent.
type pyscope struct {
	parent  *pyscope
	vars    map[string]*syntax.VariableBinding
	funcs   map[string]*syntax.MethodBinding
	globals map[string]bool
}

type pythonBinder struct {
	src        []byte
	path       string
	module     string
	moduleType *syntax.TypeBinding

	classes       map[string]*pyclass
	top           map[string]*pyclass
	byNode        map[uintptr]*pyclass
	functions     map[string]*syntax.MethodBinding
	methodsByNode map[uintptr]*syntax.MethodBinding
	globals       map[string]*syntax.VariableBinding
	emitted       map[*syntax.VariableBinding]bool
	receivers     map[*syntax.MethodBinding]bool
	imports       map[string]string

	cur    *pyclass
	method *syntax.MethodBinding
	scope  *pyscope
}

// definition unwraps a decorated definition.
func definition(n *tree_sitter.Node) *tree_sitter.Node {
	if n.Kind() == "decorated_definition" {
		return n.ChildByFieldName("definition")
	}
	return n
}

func decorators(n *tree_sitter.Node) []*tree_sitter.Node {
	if n.Parent() == nil || n.Parent().Kind() != "decorated_definition" {
		return nil
	}
	var out []*tree_sitter.Node
	for _, c := range namedChildren(n.Parent()) {
		if c.Kind() == "decorator" {
			out = append(out, c)
		}
	}
	return out
}

// collect declares the classes, functions, imports and module variables
// of a module or class body.
func (b *pythonBinder) collect(body *tree_sitter.Node, owner *pyclass) {
	for _, stmt := range namedChildren(body) {
		n := definition(stmt)
		if n == nil {
			continue
		}
		switch n.Kind() {
		case "class_definition":
			b.collectClass(n, owner)
		case "function_definition":
			m := b.declareFunction(n, owner)
			if owner == nil {
				b.functions[m.Name] = m
			} else {
				owner.methods[m.Name] = m
				b.collectSelfFields(n, owner, m)
			}
		case "import_statement", "import_from_statement":
			if owner == nil {
				b.collectImport(n)
			}
		case "expression_statement":
			for _, target := range b.assignedNames(n) {
				name := text(target, b.src)
				if owner == nil {
					if b.globals[name] == nil {
						b.globals[name] = &syntax.VariableBinding{Name: name, IsField: true, DeclaringType: b.moduleType, Modifiers: pyVisibility(name)}
					}
				} else if owner.fields[name] == nil {
					owner.fields[name] = &syntax.VariableBinding{Name: name, IsField: true, DeclaringType: owner.b, Modifiers: model.ModStatic | pyVisibility(name)}
				}
			}
		}
	}
}

func (b *pythonBinder) collectClass(n *tree_sitter.Node, outer *pyclass) {
	name := text(n.ChildByFieldName("name"), b.src)
	qn := fqn.JoinQN(b.module, name)
	if outer != nil {
		qn = outer.b.QualifiedName + "." + name
	}
	c := &pyclass{
		b:       &syntax.TypeBinding{QualifiedName: qn, Name: name, Modifiers: pyVisibility(name)},
		ts:      n,
		outer:   outer,
		nested:  map[string]*pyclass{},
		methods: map[string]*syntax.MethodBinding{},
		fields:  map[string]*syntax.VariableBinding{},
	}
	b.classes[qn] = c
	b.byNode[n.Id()] = c
	if outer == nil {
		b.top[name] = c
	} else {
		outer.nested[name] = c
	}
	b.collect(n.ChildByFieldName("body"), c)
}

// bindBases resolves the base classes once every class is known.
func (b *pythonBinder) bindBases(c *pyclass) {
	var bases []*syntax.TypeBinding
	for _, a := range namedChildren(c.ts.ChildByFieldName("superclasses")) {
		if a.Kind() == "keyword_argument" {
			continue
		}
		if t := b.typeExpr(a); t != nil && t.QualifiedName != "object" {
			bases = append(bases, t)
		}
	}
	if len(bases) > 0 {
		c.b.Superclass = bases[0]
		c.b.Interfaces = bases[1:]
	}
}

func pyVisibility(name string) model.Modifier {
	if strings.HasPrefix(name, "_") && !strings.HasSuffix(name, "__") {
		return model.ModPrivate
	}
	return 0
}

func (b *pythonBinder) declareFunction(n *tree_sitter.Node, owner *pyclass) *syntax.MethodBinding {
	name := text(n.ChildByFieldName("name"), b.src)
	m := &syntax.MethodBinding{Name: name, DeclaringType: b.moduleType, Modifiers: pyVisibility(name) | model.ModStatic}
	if owner != nil {
		m.DeclaringType = owner.b
		m.Modifiers = pyVisibility(name)
		m.IsConstructor = name == "__init__"
	}
	receiver := owner != nil
	for _, d := range decorators(n) {
		switch text(d.NamedChild(0), b.src) {
		case "staticmethod":
			m.Modifiers |= model.ModStatic
			receiver = false
		case "classmethod":
			m.Modifiers |= model.ModStatic
		case "typing.final", "final":
			m.Modifiers |= model.ModFinal
		case "abstractmethod", "abc.abstractmethod":
			m.Modifiers |= model.ModAbstract
		}
	}
	params := b.params(n.ChildByFieldName("parameters"))
	if receiver && len(params) > 0 {
		params = params[1:]
		b.receivers[m] = true
	}
	for range params {
		m.ParamTypes = append(m.ParamTypes, pyObject())
	}
	b.methodsByNode[n.Id()] = m
	return m
}

// hasReceiver reports whether the first parameter of m is self or cls.
func (b *pythonBinder) hasReceiver(m *syntax.MethodBinding) bool {
	return b.receivers[m]
}

// params lists the parameter nodes of a parameter list with their names.
func (b *pythonBinder) params(n *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for _, p := range namedChildren(n) {
		if b.paramName(p) != nil {
			out = append(out, p)
		}
	}
	return out
}

func (b *pythonBinder) paramName(p *tree_sitter.Node) *tree_sitter.Node {
	switch p.Kind() {
	case "identifier":
		return p
	case "default_parameter", "typed_default_parameter":
		return p.ChildByFieldName("name")
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		return firstNamed(p, "identifier")
	}
	return nil
}

// collectSelfFields declares the attributes assigned through self in a
// method body.
func (b *pythonBinder) collectSelfFields(fn *tree_sitter.Node, owner *pyclass, m *syntax.MethodBinding) {
	if !b.hasReceiver(m) {
		return
	}
	params := b.params(fn.ChildByFieldName("parameters"))
	if len(params) == 0 {
		return
	}
	self := text(b.paramName(params[0]), b.src)
	walkPy(fn.ChildByFieldName("body"), func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition", "class_definition", "lambda":
			return false
		case "assignment", "augmented_assignment":
			for _, t := range flattenTargets(n.ChildByFieldName("left")) {
				if t.Kind() != "attribute" {
					continue
				}
				obj := t.ChildByFieldName("object")
				if obj == nil || obj.Kind() != "identifier" || text(obj, b.src) != self {
					continue
				}
				name := text(t.ChildByFieldName("attribute"), b.src)
				if owner.fields[name] == nil {
					owner.fields[name] = &syntax.VariableBinding{Name: name, IsField: true, DeclaringType: owner.b, Modifiers: pyVisibility(name)}
				}
			}
		}
		return true
	})
}

func walkPy(n *tree_sitter.Node, fn func(*tree_sitter.Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range namedChildren(n) {
		walkPy(c, fn)
	}
}

// flattenTargets expands tuple and list targets.
func flattenTargets(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list", "tuple", "list":
		var out []*tree_sitter.Node
		for _, c := range namedChildren(n) {
			out = append(out, flattenTargets(c)...)
		}
		return out
	case "list_splat_pattern":
		return flattenTargets(n.NamedChild(0))
	}
	return []*tree_sitter.Node{n}
}

// assignedNames returns the plain names assigned by an expression
// statement.
func (b *pythonBinder) assignedNames(stmt *tree_sitter.Node) []*tree_sitter.Node {
	a := stmt.NamedChild(0)
	if a == nil || a.Kind() != "assignment" {
		return nil
	}
	var out []*tree_sitter.Node
	for _, t := range flattenTargets(a.ChildByFieldName("left")) {
		if t.Kind() == "identifier" {
			out = append(out, t)
		}
	}
	return out
}

func (b *pythonBinder) collectImport(n *tree_sitter.Node) {
	for _, imp := range b.importsOf(n) {
		if imp.wildcard {
			continue
		}
		b.imports[imp.local] = imp.bound
	}
}

// pyImport is one imported name. qualified is the recorded import, bound
// what the local name refers to: import a.b binds a.
type pyImport struct {
	node      *tree_sitter.Node
	qualified string
	local     string
	bound     string
	wildcard  bool
}

// importsOf lists the names an import statement binds.
func (b *pythonBinder) importsOf(n *tree_sitter.Node) []pyImport {
	var out []pyImport
	if n.Kind() == "import_statement" {
		for _, c := range namedChildren(n) {
			switch c.Kind() {
			case "dotted_name":
				qn := text(c, b.src)
				head := strings.SplitN(qn, ".", 2)[0]
				out = append(out, pyImport{node: c, qualified: qn, local: head, bound: head})
			case "aliased_import":
				qn := text(c.ChildByFieldName("name"), b.src)
				out = append(out, pyImport{node: c, qualified: qn, local: text(c.ChildByFieldName("alias"), b.src), bound: qn})
			}
		}
		return out
	}

	moduleNode := n.ChildByFieldName("module_name")
	from := b.absolute(text(moduleNode, b.src))
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		if c == nil || (moduleNode != nil && c.StartByte() == moduleNode.StartByte()) {
			continue
		}
		switch c.Kind() {
		case "wildcard_import":
			out = append(out, pyImport{node: c, qualified: from, wildcard: true})
		case "dotted_name":
			name := text(c, b.src)
			qn := fqn.JoinQN(from, name)
			out = append(out, pyImport{node: c, qualified: qn, local: name, bound: qn})
		case "aliased_import":
			qn := fqn.JoinQN(from, text(c.ChildByFieldName("name"), b.src))
			out = append(out, pyImport{node: c, qualified: qn, local: text(c.ChildByFieldName("alias"), b.src), bound: qn})
		}
	}
	return out
}

// absolute resolves a relative module reference against this module.
func (b *pythonBinder) absolute(mod string) string {
	dots := len(mod) - len(strings.TrimLeft(mod, "."))
	if dots == 0 {
		return mod
	}
	pkg := strings.Split(b.module, ".")
	if !strings.HasSuffix(b.path, "__init__.py") && len(pkg) > 0 {
		pkg = pkg[:len(pkg)-1]
	}
	up := dots - 1
	if up > len(pkg) {
		up = len(pkg)
	}
	pkg = pkg[:len(pkg)-up]
	return fqn.JoinQN(strings.Join(pkg, "."), mod[dots:])
}

// typeName binds a class name visible at the current position.
func (b *pythonBinder) typeName(name string) *syntax.TypeBinding {
	for c := b.cur; c != nil; c = c.outer {
		if n := c.nested[name]; n != nil {
			return n.b
		}
	}
	if c := b.top[name]; c != nil {
		return c.b
	}
	if qn, ok := b.imports[name]; ok {
		if c := b.classes[qn]; c != nil {
			return c.b
		}
		if startsUpper(qn[strings.LastIndexByte(qn, '.')+1:]) {
			return &syntax.TypeBinding{QualifiedName: qn, Name: name}
		}
		return nil
	}
	switch name {
	case "int", "float", "str", "bool", "bytes", "object":
		return prim(name)
	case "None":
		return prim("None")
	}
	if pyBuiltins[name] && startsUpper(name) {
		return &syntax.TypeBinding{QualifiedName: "builtins." + name, Name: name}
	}
	return nil
}

// typeExpr binds an expression naming a class: C, mod.C, C[int].
func (b *pythonBinder) typeExpr(n *tree_sitter.Node) *syntax.TypeBinding {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case "type":
		return b.typeExpr(n.NamedChild(0))
	case "identifier":
		return b.typeName(text(n, b.src))
	case "none":
		return prim("None")
	case "subscript", "generic_type":
		return b.typeExpr(n.NamedChild(0))
	case "attribute":
		dotted := text(n, b.src)
		head := dotted[:strings.IndexByte(dotted, '.')]
		if qn, ok := b.imports[head]; ok {
			full := qn + dotted[len(head):]
			if c := b.classes[full]; c != nil {
				return c.b
			}
			return &syntax.TypeBinding{QualifiedName: full, Name: dotted[strings.LastIndexByte(dotted, '.')+1:]}
		}
		if c := b.top[head]; c != nil {
			if nested := b.classes[c.b.QualifiedName+dotted[len(head):]]; nested != nil {
				return nested.b
			}
		}
	}
	return nil
}
