package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DeusData/symbol-indexer/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateBuild("b1", "test"); err != nil {
		t.Fatalf("CreateBuild: %v", err)
	}
	return s
}

func TestOpenMemory(t *testing.T) {
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	s.Close()
}

func TestBuilds(t *testing.T) {
	s := openTestStore(t)
	if err := s.CreateBuild("b1", "again"); err != nil {
		t.Fatalf("CreateBuild twice: %v", err)
	}
	b, err := s.GetBuild("b1")
	if err != nil || b == nil {
		t.Fatalf("GetBuild: %v %v", b, err)
	}
	if b.Label != "test" {
		t.Errorf("label overwritten: %q", b.Label)
	}
	missing, err := s.GetBuild("nope")
	if err != nil || missing != nil {
		t.Errorf("GetBuild(nope) = %v, %v", missing, err)
	}
}

func TestEntityFindOrCreate(t *testing.T) {
	s := openTestStore(t)

	e := &model.Entity{
		BuildID: "b1", Kind: model.KindFunction, Hash: 42,
		MangledName: "pkg.Foo.bar(int)", Name: "bar", QualifiedName: "pkg.Foo.bar",
		Params: []int64{7, 8},
	}
	stored, created, err := s.CreateEntity(e)
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if !created {
		t.Fatal("expected created")
	}
	if len(stored.Params) != 2 || stored.Params[0] != 7 {
		t.Errorf("params = %v", stored.Params)
	}

	// Second create with different fields must not overwrite.
	again, created, err := s.CreateEntity(&model.Entity{BuildID: "b1", Kind: model.KindFunction, Hash: 42, Name: "other"})
	if err != nil {
		t.Fatalf("CreateEntity again: %v", err)
	}
	if created {
		t.Error("expected existing row")
	}
	if again.Name != "bar" {
		t.Errorf("name = %q", again.Name)
	}

	count, _ := s.CountEntities("b1", model.KindFunction)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestEntityUpdate(t *testing.T) {
	s := openTestStore(t)
	e := &model.Entity{BuildID: "b1", Kind: model.KindType, Hash: 1, MangledName: "a.B", Name: "B", QualifiedName: "a.B"}
	if _, _, err := s.CreateEntity(e); err != nil {
		t.Fatal(err)
	}
	e.IsGeneric = true
	e.Interfaces = []int64{5}
	e.Members = []int64{6, 7}
	e.Modifiers = model.ModPublic | model.ModFinal
	e.TypeParams = []string{"T"}
	if err := s.UpdateEntity(e); err != nil {
		t.Fatalf("UpdateEntity: %v", err)
	}
	got, err := s.FindEntity("b1", model.KindType, 1)
	if err != nil || got == nil {
		t.Fatalf("FindEntity: %v %v", got, err)
	}
	if !got.IsGeneric || len(got.Interfaces) != 1 || len(got.Members) != 2 || got.TypeParams[0] != "T" {
		t.Errorf("update not persisted: %+v", got)
	}
	if got.Modifiers != model.ModPublic|model.ModFinal {
		t.Errorf("modifiers = %v", got.Modifiers)
	}
}

func TestFindInstantiations(t *testing.T) {
	s := openTestStore(t)
	tmpl := &model.Entity{BuildID: "b1", Kind: model.KindType, Hash: 10, MangledName: "java.util.List", Name: "List", IsGeneric: true}
	i1 := &model.Entity{BuildID: "b1", Kind: model.KindType, Hash: 11, MangledName: "java.util.List<A>", Name: "List", GenericImpl: 10}
	i2 := &model.Entity{BuildID: "b1", Kind: model.KindType, Hash: 12, MangledName: "java.util.List<B>", Name: "List", GenericImpl: 10}
	for _, e := range []*model.Entity{tmpl, i1, i2} {
		if _, _, err := s.CreateEntity(e); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.FindInstantiations("b1", model.KindType, 10)
	if err != nil {
		t.Fatalf("FindInstantiations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d instantiations, want 2", len(got))
	}
}

func TestNodeCreateAndRefresh(t *testing.T) {
	s := openTestStore(t)
	n := &model.AstNode{
		BuildID: "b1", ID: 99, FileID: 3,
		Range: model.Range{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 10, StartOffset: 0, EndOffset: 9},
		Value: "f", SymbolType: model.SymFunction, AstType: model.AstDefinition,
		MangledName: "A.f()", MangledNameHash: 5,
	}
	if _, created, err := s.CreateNode(n); err != nil || !created {
		t.Fatalf("CreateNode: %v %v", created, err)
	}
	if _, created, err := s.CreateNode(n); err != nil || created {
		t.Fatalf("CreateNode twice: %v %v", created, err)
	}
	n.Range.StartLine = 2
	if err := s.UpdateNode(n); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	got, _ := s.FindNode("b1", 99)
	if got.Range.StartLine != 2 {
		t.Errorf("start line = %d", got.Range.StartLine)
	}
	count, _ := s.CountNodes("b1")
	if count != 1 {
		t.Errorf("count = %d", count)
	}

	at, err := s.FindNodeAt("b1", 3, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if at != nil {
		t.Errorf("node moved to line 2, found %+v on line 1", at)
	}
}

func TestImportsDedup(t *testing.T) {
	s := openTestStore(t)
	imp := &model.Import{BuildID: "b1", FileID: 1, Qualifier: "java.util"}
	first, err := s.InsertImport(imp)
	if err != nil || !first {
		t.Fatalf("InsertImport: %v %v", first, err)
	}
	second, err := s.InsertImport(imp)
	if err != nil || second {
		t.Fatalf("InsertImport duplicate: %v %v", second, err)
	}
	list, _ := s.FindImports("b1", 1)
	if len(list) != 1 {
		t.Errorf("imports = %d", len(list))
	}
}

func TestProblems(t *testing.T) {
	s := openTestStore(t)
	err := s.InsertProblems([]model.Problem{
		{BuildID: "b1", FileID: 1, Path: "A.java", Severity: model.SeverityError, StartLine: 3, StartCol: 5, Message: "unresolved"},
		{BuildID: "b1", FileID: 2, Path: "B.java", Severity: model.SeverityWarning, StartLine: 1, StartCol: 1, Message: "w"},
	})
	if err != nil {
		t.Fatal(err)
	}
	all, _ := s.ListProblems("b1", "")
	if len(all) != 2 {
		t.Errorf("problems = %d", len(all))
	}
	one, _ := s.ListProblems("b1", "A.java")
	if len(one) != 1 || one[0].StartCol != 5 {
		t.Errorf("problems for A.java = %+v", one)
	}
}

func TestTransactionRollback(t *testing.T) {
	s := openTestStore(t)
	errBoom := errors.New("boom")
	err := s.WithTransaction(context.Background(), func(tx *Store) error {
		if _, _, err := tx.CreateEntity(&model.Entity{BuildID: "b1", Kind: model.KindType, Hash: 1, Name: "A"}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
	count, _ := s.CountEntities("b1", "")
	if count != 0 {
		t.Errorf("rolled back entity still visible: %d", count)
	}

	err = s.WithTransaction(context.Background(), func(tx *Store) error {
		_, _, err := tx.CreateEntity(&model.Entity{BuildID: "b1", Kind: model.KindType, Hash: 1, Name: "A"})
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	count, _ = s.CountEntities("b1", "")
	if count != 1 {
		t.Errorf("committed entity missing: %d", count)
	}
}

func TestCallHierarchy(t *testing.T) {
	s := openTestStore(t)
	// g calls f, h calls g.
	for _, fn := range []struct {
		hash int64
		name string
	}{{1, "A.f"}, {2, "A.g"}, {3, "A.h"}} {
		e := &model.Entity{BuildID: "b1", Kind: model.KindFunction, Hash: fn.hash, Name: fn.name, QualifiedName: fn.name, MangledName: fn.name + "()"}
		if _, _, err := s.CreateEntity(e); err != nil {
			t.Fatal(err)
		}
	}
	calls := []*model.AstNode{
		{BuildID: "b1", ID: 100, FileID: 1, Value: "f()", SymbolType: model.SymFunction, AstType: model.AstVirtualCall, MangledNameHash: 1, ScopeHash: 2},
		{BuildID: "b1", ID: 101, FileID: 1, Value: "g()", SymbolType: model.SymFunction, AstType: model.AstUsage, MangledNameHash: 2, ScopeHash: 3},
	}
	for _, n := range calls {
		if _, _, err := s.CreateNode(n); err != nil {
			t.Fatal(err)
		}
	}

	in, err := s.CallHierarchy("b1", 1, Inbound, 3, 10)
	if err != nil {
		t.Fatalf("CallHierarchy inbound: %v", err)
	}
	if len(in.Visited) != 2 || in.Visited[0].Function.Name != "A.g" || in.Visited[1].Hop != 2 {
		t.Errorf("inbound = %+v", in.Visited)
	}

	out, err := s.CallHierarchy("b1", 3, Outbound, 1, 10)
	if err != nil {
		t.Fatalf("CallHierarchy outbound: %v", err)
	}
	if len(out.Visited) != 1 || out.Visited[0].Function.Hash != 2 {
		t.Errorf("outbound = %+v", out.Visited)
	}
}

func TestSearchEntities(t *testing.T) {
	s := openTestStore(t)
	for i, qn := range []string{"a.Order", "a.OrderService", "b.Customer"} {
		name := qn[2:]
		e := &model.Entity{BuildID: "b1", Kind: model.KindType, Hash: int64(i + 1), Name: name, QualifiedName: qn, MangledName: qn}
		if _, _, err := s.CreateEntity(e); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.SearchEntities(SearchParams{BuildID: "b1", NamePattern: "^Order"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d, want 2", len(got))
	}
	got, _ = s.SearchEntities(SearchParams{BuildID: "b1", QNPrefix: "b."})
	if len(got) != 1 || got[0].Name != "Customer" {
		t.Errorf("prefix search = %+v", got)
	}
}
