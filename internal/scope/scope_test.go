package scope

import (
	"testing"

	"github.com/DeusData/symbol-indexer/internal/model"
)

func TestPushQualifiedName(t *testing.T) {
	root := NewRoot("pkg")
	typ := &model.Entity{Kind: model.KindType, Name: "A"}
	a := root.Push(Named("A"), typ, nil, false)
	if a.QualifiedName() != "pkg.A" {
		t.Errorf("qn = %q", a.QualifiedName())
	}
	fn := &model.Entity{Kind: model.KindFunction, Name: "f"}
	m := a.Push(Named("f(int)"), nil, fn, false)
	if m.QualifiedName() != "pkg.A.f(int)" {
		t.Errorf("qn = %q", m.QualifiedName())
	}
	if m.Type() != typ || m.Function() != fn {
		t.Error("type/function not inherited")
	}
	anon := m.Push(Named("pkg.A$1"), &model.Entity{Kind: model.KindType}, nil, true)
	if anon.QualifiedName() != "pkg.A$1" {
		t.Errorf("override qn = %q", anon.QualifiedName())
	}
	if anon.Function() != fn {
		t.Error("function should be inherited into the anonymous class frame")
	}
}

func TestEmptyRootQualifier(t *testing.T) {
	root := NewRoot("")
	a := root.Push(Named("A"), nil, nil, false)
	if a.QualifiedName() != "A" {
		t.Errorf("qn = %q", a.QualifiedName())
	}
}

func TestGeneratedNames(t *testing.T) {
	root := NewRoot("p")
	b1 := root.Push(Generated(), nil, nil, false)
	b2 := root.Push(Generated(), nil, nil, false)
	if b1.Name() != "_1" || b2.Name() != "_2" {
		t.Errorf("names = %q, %q", b1.Name(), b2.Name())
	}
	if b1.QualifiedName() == b2.QualifiedName() {
		t.Error("sibling blocks share a qualified name")
	}
	inner := b1.Push(Generated(), nil, nil, false)
	if inner.Name() != "_1" {
		t.Errorf("counter is per parent, got %q", inner.Name())
	}
}

func TestShadowing(t *testing.T) {
	root := NewRoot("p")
	fn := root.Push(Named("f()"), nil, nil, false)
	fn.Declare("x", 1)

	block := fn.Push(Generated(), nil, nil, false)
	if id, ok := block.Lookup("x"); !ok || id != 1 {
		t.Fatalf("parent variable not visible in child: %d %v", id, ok)
	}
	block.Declare("x", 2)
	block.Declare("y", 3)
	if id, _ := block.Lookup("x"); id != 2 {
		t.Errorf("shadowed x = %d", id)
	}

	back := block.Pop()
	if back != fn {
		t.Fatal("pop did not return parent")
	}
	if id, _ := back.Lookup("x"); id != 1 {
		t.Errorf("x after pop = %d, want 1", id)
	}
	if _, ok := back.Lookup("y"); ok {
		t.Error("y leaked out of the block")
	}

	sibling := fn.Push(Generated(), nil, nil, false)
	if _, ok := sibling.Lookup("y"); ok {
		t.Error("y visible in sibling block")
	}

	fn.Declare("z", 4)
	if _, ok := sibling.Lookup("z"); ok {
		t.Error("declaration after push must not reach an existing child")
	}
	later := fn.Push(Generated(), nil, nil, false)
	if id, ok := later.Lookup("z"); !ok || id != 4 {
		t.Error("z should be visible in a child created afterwards")
	}
}

func TestPopRoot(t *testing.T) {
	root := NewRoot("p")
	if root.Pop() != root {
		t.Error("root must pop to itself")
	}
	if !root.IsRoot() || root.Depth() != 0 {
		t.Error("root state")
	}
}
