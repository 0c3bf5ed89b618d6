package visitor

import (
	"strings"
	"testing"

	"github.com/DeusData/symbol-indexer/internal/engine"
	"github.com/DeusData/symbol-indexer/internal/identity"
	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/store"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateBuild("b1", ""); err != nil {
		t.Fatalf("CreateBuild: %v", err)
	}
	return s
}

func newContext(s *store.Store) *engine.Context {
	file := &model.File{ID: 1, BuildID: "b1", Path: "A.java", Type: "java"}
	return engine.NewContext(s, "b1", file, nil, lang.ForLanguage(lang.Java))
}

// at returns a one-character range whose offsets are unique per position.
func at(line, col int) model.Range {
	off := line*100 + col
	return model.Range{StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1, StartOffset: off, EndOffset: off + 1}
}

func node(k syntax.Kind, r model.Range, name string, b syntax.Binding, children ...*syntax.Node) *syntax.Node {
	return &syntax.Node{Kind: k, Range: r, Name: name, Binding: b, Children: children}
}

func role(r syntax.Role, n *syntax.Node) *syntax.Node {
	n.Role = r
	return n
}

var (
	typeA   = &syntax.TypeBinding{QualifiedName: "A", Name: "A"}
	intType = &syntax.TypeBinding{QualifiedName: "int", Name: "int", IsPrimitive: true}
	voidT   = &syntax.TypeBinding{QualifiedName: "void", Name: "void", IsPrimitive: true}
	objectT = &syntax.TypeBinding{QualifiedName: "java.lang.Object", Name: "Object"}
)

func method(owner *syntax.TypeBinding, name string, params ...*syntax.TypeBinding) *syntax.MethodBinding {
	return &syntax.MethodBinding{Name: name, DeclaringType: owner, ParamTypes: params, ReturnType: voidT}
}

func countNodes(t *testing.T, s *store.Store, mangled string, at model.AstType) int {
	t.Helper()
	nodes, err := s.FindNodesByMangledHash("b1", identity.ID(mangled), at)
	if err != nil {
		t.Fatalf("FindNodesByMangledHash: %v", err)
	}
	return len(nodes)
}

// simpleCallTree is class A { void f() {} void g() { f(); } }.
func simpleCallTree(extra ...*syntax.Node) *syntax.Node {
	f := method(typeA, "f")
	body := node(syntax.KindBlock, at(3, 10), "", nil, append(extra,
		node(syntax.KindStatement, at(3, 20), "", nil,
			node(syntax.KindCall, at(3, 21), "f", f)))...)
	return node(syntax.KindCompilationUnit, at(1, 1), "", nil,
		node(syntax.KindTypeDecl, at(1, 2), "A", typeA,
			node(syntax.KindMethodDecl, at(2, 5), "f", f, node(syntax.KindBlock, at(2, 15), "", nil)),
			node(syntax.KindMethodDecl, at(3, 5), "g", method(typeA, "g"), body)))
}

func TestSimpleCallResolution(t *testing.T) {
	s := openTestStore(t)
	ctx := newContext(s)
	if err := Visit(ctx, simpleCallTree()); err != nil {
		t.Fatalf("Visit: %v", err)
	}

	fHash := identity.ID("A.f()")
	fn, err := s.FindEntity("b1", model.KindFunction, fHash)
	if err != nil || fn == nil {
		t.Fatalf("function A.f(): %v %v", fn, err)
	}
	if got := countNodes(t, s, "A.f()", model.AstDefinition); got != 1 {
		t.Errorf("definitions of f = %d, want 1", got)
	}
	calls, _ := s.FindNodesByMangledHash("b1", fHash, model.AstVirtualCall)
	if len(calls) != 1 {
		t.Fatalf("calls of f = %d, want 1", len(calls))
	}
	if calls[0].MangledNameHash != fn.Hash {
		t.Error("call does not reference the declared entity")
	}
	if calls[0].ScopeHash != identity.ID("A.g()") {
		t.Errorf("call scope = %d, want hash of A.g()", calls[0].ScopeHash)
	}

	typ, _ := s.FindEntity("b1", model.KindType, identity.ID("A"))
	if typ == nil || len(typ.Members) != 2 {
		t.Fatalf("type A = %+v", typ)
	}
	if len(ctx.Problems.List()) != 0 {
		t.Errorf("unexpected problems: %+v", ctx.Problems.List())
	}

	// The call shows up in the call hierarchy.
	res, err := s.CallHierarchy("b1", fHash, store.Inbound, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Visited) != 1 || res.Visited[0].Function.QualifiedName != "A.g" {
		t.Errorf("callers of f = %+v", res.Visited)
	}
}

func TestRevisitRefreshesNodes(t *testing.T) {
	s := openTestStore(t)
	tree := simpleCallTree()
	if err := Visit(newContext(s), tree); err != nil {
		t.Fatal(err)
	}
	nodes, _ := s.CountNodes("b1")
	entities, _ := s.CountEntities("b1", "")

	again := newContext(s)
	if err := Visit(again, tree); err != nil {
		t.Fatal(err)
	}
	if again.NodesCreated != 0 || again.EntitiesCreated != 0 {
		t.Errorf("second pass created %d nodes, %d entities", again.NodesCreated, again.EntitiesCreated)
	}
	nodes2, _ := s.CountNodes("b1")
	entities2, _ := s.CountEntities("b1", "")
	if nodes2 != nodes || entities2 != entities {
		t.Errorf("counts changed: nodes %d -> %d, entities %d -> %d", nodes, nodes2, entities, entities2)
	}
	if got := countNodes(t, s, "A.f()", model.AstDefinition); got != 1 {
		t.Errorf("definitions of f = %d, want 1", got)
	}
}

func TestUnresolvedReferenceIsReported(t *testing.T) {
	s := openTestStore(t)
	ctx := newContext(s)
	bad := node(syntax.KindStatement, at(3, 12), "", nil,
		node(syntax.KindCall, at(3, 13), "undefined", nil,
			role(syntax.RoleArgument, node(syntax.KindName, at(3, 14), "alsoUndefined", nil))))
	if err := Visit(ctx, simpleCallTree(bad)); err != nil {
		t.Fatalf("Visit: %v", err)
	}

	problems := ctx.Problems.List()
	if len(problems) != 1 {
		t.Fatalf("problems = %+v, want exactly 1", problems)
	}
	p := problems[0]
	if p.StartLine != 3 || p.StartCol != 13 || p.Path != "A.java" || p.Severity != model.SeverityError {
		t.Errorf("problem = %+v", p)
	}
	if !strings.Contains(p.Message, "undefined") {
		t.Errorf("message = %q", p.Message)
	}
	// The sibling statement is still processed.
	if got := countNodes(t, s, "A.f()", model.AstVirtualCall); got != 1 {
		t.Errorf("calls of f = %d, want 1", got)
	}
}

func TestLocalsAndClassification(t *testing.T) {
	s := openTestStore(t)
	ctx := newContext(s)

	h := method(typeA, "h", intType)
	f := method(typeA, "f", intType)
	p := &syntax.VariableBinding{Name: "p", Type: intType, IsParameter: true}
	x := &syntax.VariableBinding{Name: "x", Type: intType}

	tree := node(syntax.KindTypeDecl, at(1, 1), "A", typeA,
		node(syntax.KindMethodDecl, at(2, 1), "f", f),
		node(syntax.KindMethodDecl, at(3, 1), "h", h,
			node(syntax.KindParam, at(3, 10), "p", p,
				role(syntax.RoleType, node(syntax.KindTypeRef, at(3, 9), "int", intType))),
			node(syntax.KindBlock, at(3, 20), "", nil,
				node(syntax.KindVarDecl, at(4, 5), "x", x,
					role(syntax.RoleInitializer, node(syntax.KindName, at(4, 13), "p", p))),
				node(syntax.KindStatement, at(5, 5), "", nil,
					node(syntax.KindIncDec, at(5, 5), "", nil,
						role(syntax.RoleOperand, node(syntax.KindName, at(5, 5), "x", x)))),
				node(syntax.KindStatement, at(6, 5), "", nil,
					node(syntax.KindCall, at(6, 5), "f", f,
						role(syntax.RoleArgument, node(syntax.KindName, at(6, 7), "x", x)))),
				node(syntax.KindBlock, at(7, 5), "", nil,
					node(syntax.KindVarDecl, at(8, 9), "x", x)))))
	if err := Visit(ctx, tree); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if len(ctx.Problems.List()) != 0 {
		t.Fatalf("problems: %+v", ctx.Problems.List())
	}

	hHash := identity.ID("A.h(int)")
	param, _ := s.FindEntity("b1", model.KindVariable, identity.ID("A.h(int).p"))
	if param == nil || param.ParamOf != hHash {
		t.Fatalf("param p = %+v", param)
	}
	if got := countNodes(t, s, "A.h(int).p", model.AstRead); got != 1 {
		t.Errorf("reads of p = %d, want 1", got)
	}

	local, _ := s.FindEntity("b1", model.KindVariable, identity.ID("A.h(int)._1.x"))
	if local == nil || local.LocalOf != hHash {
		t.Fatalf("local x = %+v", local)
	}
	if got := countNodes(t, s, "A.h(int)._1.x", model.AstWrite); got != 1 {
		t.Errorf("writes of x = %d, want 1", got)
	}
	if got := countNodes(t, s, "A.h(int)._1.x", model.AstRead); got != 1 {
		t.Errorf("reads of x = %d, want 1", got)
	}
	shadow, _ := s.FindEntity("b1", model.KindVariable, identity.ID("A.h(int)._1._1.x"))
	if shadow == nil || shadow.Hash == local.Hash {
		t.Errorf("shadowing x = %+v", shadow)
	}

	fn, _ := s.FindEntity("b1", model.KindFunction, hHash)
	if len(fn.Params) != 1 || fn.Params[0] != param.Hash || len(fn.Locals) != 2 {
		t.Errorf("h params=%v locals=%v", fn.Params, fn.Locals)
	}
	if fn.ReturnType != identity.ID("void") {
		t.Errorf("return type = %d", fn.ReturnType)
	}
}

func TestFieldWrite(t *testing.T) {
	s := openTestStore(t)
	ctx := newContext(s)
	count := &syntax.VariableBinding{Name: "count", Type: intType, IsField: true, DeclaringType: typeA}

	tree := node(syntax.KindTypeDecl, at(1, 1), "A", typeA,
		node(syntax.KindFieldDecl, at(2, 5), "count", count),
		node(syntax.KindMethodDecl, at(3, 5), "reset", method(typeA, "reset"),
			node(syntax.KindBlock, at(3, 20), "", nil,
				node(syntax.KindAssign, at(4, 9), "", nil,
					role(syntax.RoleLHS, node(syntax.KindFieldAccess, at(4, 9), "count", count)),
					role(syntax.RoleRHS, node(syntax.KindLiteral, at(4, 22), "0", nil))))))
	if err := Visit(ctx, tree); err != nil {
		t.Fatal(err)
	}

	field, _ := s.FindEntity("b1", model.KindVariable, identity.ID("A.count"))
	if field == nil || field.FieldOf != identity.ID("A") {
		t.Fatalf("field = %+v", field)
	}
	if got := countNodes(t, s, "A.count", model.AstWrite); got != 1 {
		t.Errorf("writes of count = %d, want 1", got)
	}
	typ, _ := s.FindEntity("b1", model.KindType, identity.ID("A"))
	if len(typ.Fields) != 1 {
		t.Errorf("fields of A = %v", typ.Fields)
	}
}

func TestAnonymousClass(t *testing.T) {
	s := openTestStore(t)
	ctx := newContext(s)
	anon := &syntax.TypeBinding{IsAnonymous: true, Superclass: objectT}
	anonOwner := &syntax.TypeBinding{QualifiedName: "A$1", Name: "A$1"}
	ctor := &syntax.MethodBinding{Name: "Object", DeclaringType: objectT, IsConstructor: true}

	tree := node(syntax.KindTypeDecl, at(1, 1), "A", typeA,
		node(syntax.KindMethodDecl, at(2, 5), "g", method(typeA, "g"),
			node(syntax.KindBlock, at(2, 15), "", nil,
				node(syntax.KindNew, at(3, 9), "Object", ctor,
					role(syntax.RoleType, node(syntax.KindTypeRef, at(3, 13), "Object", objectT)),
					node(syntax.KindAnonymousClass, at(3, 22), "", anon,
						node(syntax.KindMethodDecl, at(4, 13), "run", method(anonOwner, "run")))))))
	if err := Visit(ctx, tree); err != nil {
		t.Fatal(err)
	}
	if len(ctx.Problems.List()) != 0 {
		t.Fatalf("problems: %+v", ctx.Problems.List())
	}

	e, _ := s.FindEntity("b1", model.KindType, identity.ID("A$1"))
	if e == nil || e.SuperType != identity.ID("java.lang.Object") {
		t.Fatalf("anonymous type = %+v", e)
	}
	run, _ := s.FindEntity("b1", model.KindFunction, identity.ID("A$1.run()"))
	if run == nil {
		t.Fatal("anonymous class method missing")
	}
	if got := countNodes(t, s, "java.lang.Object.Object()", model.AstUsage); got != 1 {
		t.Errorf("constructor usages = %d, want 1", got)
	}
	if got := countNodes(t, s, "java.lang.Object", model.AstTypeLocation); got != 1 {
		t.Errorf("type locations of Object = %d, want 1", got)
	}
}

func TestPanicBecomesProblem(t *testing.T) {
	prev := dispatch[syntax.KindLiteral]
	dispatch[syntax.KindLiteral] = func(*Visitor, *syntax.Node, *syntax.Node, model.AstType) error {
		panic("boom")
	}
	t.Cleanup(func() {
		if prev == nil {
			delete(dispatch, syntax.KindLiteral)
		} else {
			dispatch[syntax.KindLiteral] = prev
		}
	})

	s := openTestStore(t)
	ctx := newContext(s)
	lit := node(syntax.KindStatement, at(3, 12), "", nil, node(syntax.KindLiteral, at(3, 12), "1", nil))
	if err := Visit(ctx, simpleCallTree(lit)); err != nil {
		t.Fatalf("Visit: %v", err)
	}
	if ctx.Problems.ErrorCount() != 1 || !strings.Contains(ctx.Problems.List()[0].Message, "boom") {
		t.Errorf("problems = %+v", ctx.Problems.List())
	}
	if got := countNodes(t, s, "A.f()", model.AstVirtualCall); got != 1 {
		t.Errorf("calls of f = %d, want 1", got)
	}
	// Frames were restored on the way out.
	if !ctx.Frame.IsRoot() {
		t.Error("frame stack not unwound")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		access model.AstType
		role   syntax.Role
		want   model.AstType
	}{
		{model.AstRead, syntax.RoleLHS, model.AstWrite},
		{model.AstRead, syntax.RoleOperand, model.AstWrite},
		{model.AstWrite, syntax.RoleIndexExpr, model.AstRead},
		{model.AstWrite, syntax.RoleArgument, model.AstRead},
		{model.AstWrite, syntax.RoleInitializer, model.AstRead},
		{model.AstWrite, syntax.RoleReceiver, model.AstRead},
		{model.AstWrite, syntax.RoleArray, model.AstWrite},
		{model.AstWrite, syntax.RoleNone, model.AstWrite},
		{"", syntax.RoleNone, model.AstRead},
	}
	for _, tt := range tests {
		if got := Classify(tt.access, tt.role); got != tt.want {
			t.Errorf("Classify(%s, %d) = %s, want %s", tt.access, tt.role, got, tt.want)
		}
	}
}
