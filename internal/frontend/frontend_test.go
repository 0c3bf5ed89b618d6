package frontend

import (
	"testing"

	"github.com/DeusData/symbol-indexer/internal/engine"
	"github.com/DeusData/symbol-indexer/internal/identity"
	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/store"
	"github.com/DeusData/symbol-indexer/internal/syntax"
	"github.com/DeusData/symbol-indexer/internal/visitor"
)

func build(t *testing.T, l lang.Language, path, src string) *syntax.Unit {
	t.Helper()
	fe, err := For(l)
	if err != nil {
		t.Fatalf("For(%s): %v", l, err)
	}
	unit := &syntax.Unit{Path: path, Language: l, Source: []byte(src)}
	if _, err := fe.Build(unit); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if unit.Root == nil {
		t.Fatal("Build left the unit without a root")
	}
	return unit
}

// find returns the nodes of kind k named name.
func find(root *syntax.Node, k syntax.Kind, name string) []*syntax.Node {
	var out []*syntax.Node
	syntax.Walk(root, func(n *syntax.Node) bool {
		if n.Kind == k && n.Name == name {
			out = append(out, n)
		}
		return true
	})
	return out
}

func one(t *testing.T, root *syntax.Node, k syntax.Kind, name string) *syntax.Node {
	t.Helper()
	ns := find(root, k, name)
	if len(ns) != 1 {
		t.Fatalf("%s %q: found %d nodes, want 1", k, name, len(ns))
	}
	return ns[0]
}

// index visits unit into a fresh in-memory store.
func index(t *testing.T, unit *syntax.Unit) (*store.Store, *engine.Context) {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateBuild("b1", ""); err != nil {
		t.Fatalf("CreateBuild: %v", err)
	}
	file := &model.File{ID: 1, BuildID: "b1", Path: unit.Path, Type: string(unit.Language)}
	ctx := engine.NewContext(s, "b1", file, unit.Source, lang.ForLanguage(unit.Language))
	if err := visitor.Visit(ctx, unit.Root); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	return s, ctx
}

func countNodes(t *testing.T, s *store.Store, mangled string, at model.AstType) int {
	t.Helper()
	nodes, err := s.FindNodesByMangledHash("b1", identity.ID(mangled), at)
	if err != nil {
		t.Fatalf("FindNodesByMangledHash: %v", err)
	}
	return len(nodes)
}

func TestForUnknownLanguage(t *testing.T) {
	if _, err := For(lang.Language("cobol")); err == nil {
		t.Error("expected an error for an unsupported language")
	}
}

const javaCalls = `package p;

import java.util.List;

/** A counter. */
public class A {
    private int x;

    void f() {}

    void g() {
        f();
        x = 1;
        int y = x;
        undefinedCall();
    }
}
`

func TestJavaBindsMembers(t *testing.T) {
	unit := build(t, lang.Java, "p/A.java", javaCalls)
	root := unit.Root

	one(t, root, syntax.KindPackage, "p")
	imp := one(t, root, syntax.KindImport, "java.util.List")
	if imp.Has(syntax.FlagWildcard) {
		t.Error("single-type import marked as wildcard")
	}

	decl := one(t, root, syntax.KindTypeDecl, "A")
	tb, _ := decl.Binding.(*syntax.TypeBinding)
	if tb == nil || tb.QualifiedName != "p.A" {
		t.Fatalf("type binding = %+v", decl.Binding)
	}
	if decl.Doc == nil {
		t.Error("javadoc not attached to the class")
	}

	call := one(t, root, syntax.KindCall, "f")
	mb, _ := call.Binding.(*syntax.MethodBinding)
	if mb == nil || mb.DeclaringType.QualifiedName != "p.A" {
		t.Fatalf("call binding = %+v", call.Binding)
	}

	y := one(t, root, syntax.KindVarDecl, "y")
	vb, _ := y.Binding.(*syntax.VariableBinding)
	if vb == nil || vb.Type == nil || vb.Type.QualifiedName != "int" {
		t.Errorf("local y binding = %+v", y.Binding)
	}

	if bad := one(t, root, syntax.KindCall, "undefinedCall"); bad.Binding != nil {
		t.Errorf("unknown call bound to %+v", bad.Binding)
	}
}

func TestJavaIndexesIntoStore(t *testing.T) {
	unit := build(t, lang.Java, "p/A.java", javaCalls)
	s, ctx := index(t, unit)

	if got := countNodes(t, s, "p.A.f()", model.AstDefinition); got != 1 {
		t.Errorf("definitions of f = %d, want 1", got)
	}
	if got := countNodes(t, s, "p.A.f()", model.AstVirtualCall); got != 1 {
		t.Errorf("calls of f = %d, want 1", got)
	}
	if got := countNodes(t, s, "p.A.x", model.AstWrite); got != 1 {
		t.Errorf("writes of x = %d, want 1", got)
	}
	if got := countNodes(t, s, "p.A.x", model.AstRead); got != 1 {
		t.Errorf("reads of x = %d, want 1", got)
	}

	problems := ctx.Problems.List()
	if len(problems) != 1 {
		t.Fatalf("problems = %+v, want the unresolved call only", problems)
	}
}

func TestJavaGenericMemberIsInstantiated(t *testing.T) {
	src := `package p;

class Box<T> {
    T get() { return null; }
}

class User {
    void use(Box<String> b) {
        String s = b.get();
    }
}
`
	unit := build(t, lang.Java, "p/Box.java", src)
	call := one(t, unit.Root, syntax.KindCall, "get")
	mb, _ := call.Binding.(*syntax.MethodBinding)
	if mb == nil {
		t.Fatal("get() is unbound")
	}
	if got := mb.DeclaringType.GenericName(); got != "p.Box<java.lang.String>" {
		t.Errorf("receiver = %s, want p.Box<java.lang.String>", got)
	}
	if mb.ReturnType == nil || mb.ReturnType.QualifiedName != "java.lang.String" {
		t.Errorf("return type = %+v, want java.lang.String", mb.ReturnType)
	}
	if mb.Declaration == nil || mb.Declaration.DeclaringType.QualifiedName != "p.Box" {
		t.Errorf("declaration = %+v", mb.Declaration)
	}
}

func TestJavaAnonymousAndLocalClasses(t *testing.T) {
	src := `package p;

class Outer {
    void run() {
        class Helper {}
        Runnable r = new Runnable() {
            public void run() {}
        };
    }
}
`
	unit := build(t, lang.Java, "p/Outer.java", src)
	local := one(t, unit.Root, syntax.KindTypeDecl, "Helper")
	if !local.Has(syntax.FlagLocalClass) {
		t.Error("local class not flagged")
	}
	if b, _ := local.Binding.(*syntax.TypeBinding); b == nil || b.QualifiedName != "p.Outer$Helper" {
		t.Errorf("local class binding = %+v", local.Binding)
	}

	var anon *syntax.Node
	syntax.Walk(unit.Root, func(n *syntax.Node) bool {
		if n.Kind == syntax.KindAnonymousClass {
			anon = n
		}
		return true
	})
	if anon == nil {
		t.Fatal("anonymous class missing")
	}
	b, _ := anon.Binding.(*syntax.TypeBinding)
	if b == nil || b.QualifiedName != "p.Outer$1" {
		t.Fatalf("anonymous binding = %+v", anon.Binding)
	}
	if len(b.Interfaces) != 1 || b.Interfaces[0].QualifiedName != "java.lang.Runnable" {
		t.Errorf("anonymous interfaces = %+v", b.Interfaces)
	}
}

func TestJavaEnumConstants(t *testing.T) {
	src := `package p;

enum Color { RED, GREEN }

class Paint {
    Color c = Color.RED;
}
`
	unit := build(t, lang.Java, "p/Color.java", src)
	red := one(t, unit.Root, syntax.KindEnumConstantDecl, "RED")
	vb, _ := red.Binding.(*syntax.VariableBinding)
	if vb == nil || !vb.IsEnumConstant || vb.Ordinal != 0 {
		t.Errorf("RED binding = %+v", red.Binding)
	}
	green := one(t, unit.Root, syntax.KindEnumConstantDecl, "GREEN")
	if vb, _ := green.Binding.(*syntax.VariableBinding); vb == nil || vb.Ordinal != 1 {
		t.Errorf("GREEN binding = %+v", green.Binding)
	}
}

func TestJavaSyntaxErrorsAreCaptured(t *testing.T) {
	unit := build(t, lang.Java, "p/Broken.java", "package p;\nclass Broken { void f( }\n")
	if len(unit.SyntaxErrors) == 0 {
		t.Error("expected syntax errors")
	}
	for _, r := range unit.SyntaxErrors {
		if r.StartLine < 1 {
			t.Errorf("syntax error range %+v is not 1-based", r)
		}
	}
}

const pythonModule = `import os
from .util import helper

COUNT = 0


def add(a, b):
    total = a + b
    return total


class Greeter:
    """Says hello."""

    def __init__(self, name):
        self.name = name

    def greet(self):
        print(self.name)
        return add(1, 2)


g = Greeter("x")
`

func TestPythonBindsModule(t *testing.T) {
	unit := build(t, lang.Python, "pkg/mod.py", pythonModule)
	root := unit.Root

	one(t, root, syntax.KindPackage, "pkg.mod")
	one(t, root, syntax.KindImport, "os")
	one(t, root, syntax.KindImport, "pkg.util.helper")

	add := one(t, root, syntax.KindMethodDecl, "add")
	mb, _ := add.Binding.(*syntax.MethodBinding)
	if mb == nil || mb.DeclaringType.QualifiedName != "pkg.mod" || len(mb.ParamTypes) != 2 {
		t.Fatalf("add binding = %+v", add.Binding)
	}
	if !mb.Modifiers.Has(model.ModStatic) {
		t.Error("module function is not static")
	}

	greet := one(t, root, syntax.KindMethodDecl, "greet")
	if gb, _ := greet.Binding.(*syntax.MethodBinding); gb == nil || len(gb.ParamTypes) != 0 {
		t.Errorf("greet binding = %+v, self must not be a parameter type", greet.Binding)
	}

	cls := one(t, root, syntax.KindTypeDecl, "Greeter")
	if cls.Doc == nil {
		t.Error("docstring not attached")
	}

	ctor := one(t, root, syntax.KindNew, "__init__")
	if cb, _ := ctor.Binding.(*syntax.MethodBinding); cb == nil || !cb.IsConstructor || cb.DeclaringType.QualifiedName != "pkg.mod.Greeter" {
		t.Errorf("constructor binding = %+v", ctor.Binding)
	}

	for _, fa := range find(root, syntax.KindFieldAccess, "name") {
		vb, _ := fa.Binding.(*syntax.VariableBinding)
		if vb == nil || vb.DeclaringType.QualifiedName != "pkg.mod.Greeter" {
			t.Errorf("self.name binding = %+v", fa.Binding)
		}
	}

	one(t, root, syntax.KindFieldDecl, "COUNT")
	one(t, root, syntax.KindVarDecl, "total")
}

func TestPythonIndexesIntoStore(t *testing.T) {
	unit := build(t, lang.Python, "pkg/mod.py", pythonModule)
	s, _ := index(t, unit)

	if got := countNodes(t, s, "pkg.mod.add(object,object)", model.AstDefinition); got != 1 {
		t.Errorf("definitions of add = %d, want 1", got)
	}
	if got := countNodes(t, s, "pkg.mod.add(object,object)", model.AstUsage); got != 1 {
		t.Errorf("calls of add = %d, want 1", got)
	}
	e, err := s.FindEntity("b1", model.KindType, identity.ID("pkg.mod.Greeter"))
	if err != nil || e == nil {
		t.Fatalf("class entity: %v %v", e, err)
	}
}

func TestPythonRelativeImports(t *testing.T) {
	tests := []struct {
		path, src, want string
	}{
		{"a/b/c.py", "from . import x\n", "a.b.x"},
		{"a/b/c.py", "from ..d import y\n", "a.d.y"},
		{"a/b/__init__.py", "from .e import z\n", "a.b.e.z"},
		{"a/b/c.py", "from m import *\n", "m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			unit := build(t, lang.Python, tt.path, tt.src)
			one(t, unit.Root, syntax.KindImport, tt.want)
		})
	}
}
