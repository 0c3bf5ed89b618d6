package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DeusData/symbol-indexer/internal/engine"
	"github.com/DeusData/symbol-indexer/internal/identity"
	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/store"
	"github.com/DeusData/symbol-indexer/internal/syntax"
	"github.com/DeusData/symbol-indexer/internal/visitor"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

const javaSource = `package p;

class A {
    void f() {}
    void g() { f(); }
}
`

func javaUnit() *syntax.Unit {
	return &syntax.Unit{Path: "p/A.java", Language: lang.Java, Source: []byte(javaSource)}
}

func TestIndexUnitMissingBuild(t *testing.T) {
	s := openStore(t)
	_, err := IndexUnit(context.Background(), s, javaUnit(), Options{BuildID: "nope"})
	if !errors.Is(err, ErrMissingBuild) {
		t.Fatalf("err = %v, want ErrMissingBuild", err)
	}
	if n, _ := s.CountNodes("nope"); n != 0 {
		t.Errorf("nodes written for a missing build: %d", n)
	}
}

func TestIndexUnitIsIdempotent(t *testing.T) {
	s := openStore(t)
	opts := Options{BuildID: "b1", CreateBuild: true}
	ctx := context.Background()

	res, err := IndexUnit(ctx, s, javaUnit(), opts)
	if err != nil {
		t.Fatalf("IndexUnit: %v", err)
	}
	if res.Status != model.FullyParsed || res.Nodes == 0 {
		t.Fatalf("first run = %+v", res)
	}
	first, _ := s.CountNodes("b1")

	if _, err := IndexUnit(ctx, s, javaUnit(), opts); err != nil {
		t.Fatalf("second IndexUnit: %v", err)
	}
	second, _ := s.CountNodes("b1")
	if first != second {
		t.Errorf("node count changed on re-index: %d -> %d", first, second)
	}

	f, err := s.GetFileByPath("b1", "p/A.java")
	if err != nil || f == nil {
		t.Fatalf("file record: %v %v", f, err)
	}
	if f.ContentHash != ContentHash([]byte(javaSource)) || f.ParseStatus != model.FullyParsed {
		t.Errorf("file = %+v", f)
	}
}

func TestIndexUnitRecordsSyntaxErrors(t *testing.T) {
	s := openStore(t)
	unit := &syntax.Unit{Path: "p/B.java", Language: lang.Java, Source: []byte("package p;\nclass B { void f( }\n")}
	res, err := IndexUnit(context.Background(), s, unit, Options{BuildID: "b1", CreateBuild: true})
	if err != nil {
		t.Fatalf("IndexUnit: %v", err)
	}
	if res.Status != model.PartiallyParsed {
		t.Errorf("status = %s, want PartiallyParsed", res.Status)
	}
	problems, err := s.ListProblems("b1", "p/B.java")
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) == 0 {
		t.Error("no problems stored for a file with syntax errors")
	}
}

func TestRunIndexesTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/p/A.java", javaSource)
	writeFile(t, root, "pkg/mod.py", "def f():\n    return 1\n\n\ndef g():\n    return f()\n")
	writeFile(t, root, "README.md", "ignored\n")

	s := openStore(t)
	ctx := context.Background()
	report, err := Run(ctx, s, root, Options{Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.BuildID == "" {
		t.Fatal("Run did not assign a build id")
	}
	if report.Failed() {
		t.Fatalf("units failed: %+v", report.Units)
	}
	if indexed, skipped, _ := report.Counts(); indexed != 2 || skipped != 0 {
		t.Fatalf("indexed=%d skipped=%d, want 2 and 0", indexed, skipped)
	}

	again, err := Run(ctx, s, root, Options{BuildID: report.BuildID, Incremental: true})
	if err != nil {
		t.Fatalf("incremental Run: %v", err)
	}
	if indexed, skipped, _ := again.Counts(); indexed != 0 || skipped != 2 {
		t.Errorf("incremental indexed=%d skipped=%d, want 0 and 2", indexed, skipped)
	}

	writeFile(t, root, "pkg/mod.py", "def f():\n    return 2\n")
	third, err := Run(ctx, s, root, Options{BuildID: report.BuildID, Incremental: true})
	if err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if indexed, skipped, _ := third.Counts(); indexed != 1 || skipped != 1 {
		t.Errorf("after edit indexed=%d skipped=%d, want 1 and 1", indexed, skipped)
	}
}

func TestRunRequiresExistingBuild(t *testing.T) {
	s := openStore(t)
	if _, err := Run(context.Background(), s, t.TempDir(), Options{BuildID: "missing"}); !errors.Is(err, ErrMissingBuild) {
		t.Fatalf("err = %v, want ErrMissingBuild", err)
	}
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "A.java", "class A {}\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, openStore(t), root, Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRemoveUnit(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	opts := Options{BuildID: "b1", CreateBuild: true}
	if _, err := IndexUnit(ctx, s, javaUnit(), opts); err != nil {
		t.Fatalf("IndexUnit: %v", err)
	}
	if err := RemoveUnit(ctx, s, "b1", "p/A.java"); err != nil {
		t.Fatalf("RemoveUnit: %v", err)
	}
	if f, _ := s.GetFileByPath("b1", "p/A.java"); f != nil {
		t.Error("file row survived removal")
	}
	nodes, err := s.FindNodesByFile("b1", FileID("b1", "p/A.java"))
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 0 {
		t.Errorf("%d nodes left for a removed file", len(nodes))
	}
}

func TestReportStatus(t *testing.T) {
	tests := []struct {
		name      string
		units     []*UnitResult
		failed    bool
		hasErrors bool
	}{
		{"clean", []*UnitResult{{Path: "A.java", Status: model.FullyParsed}}, false, false},
		{"diagnostics", []*UnitResult{{Path: "A.java", Status: model.PartiallyParsed, Errors: 2}}, false, true},
		{"aborted", []*UnitResult{{Path: "A.java", Err: errors.New("boom")}}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Report{Units: tt.units}
			if got := r.Failed(); got != tt.failed {
				t.Errorf("Failed() = %v, want %v", got, tt.failed)
			}
			if got := r.HasErrors(); got != tt.hasErrors {
				t.Errorf("HasErrors() = %v, want %v", got, tt.hasErrors)
			}
		})
	}
}

func TestIndexUnitReportsUnresolvedReceivers(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErrors int
		wantLines  []int
	}{
		{"call on undeclared name", "undeclaredVar.foo();", 1, []int{4}},
		{"field of undeclared name", "int y = undeclaredVar.count;", 1, []int{4}},
		{"dotted undeclared path", "int y = a.b.c;", 1, []int{4}},
		{"both", "undeclaredVar.foo();\n        int y = undeclaredVar.count;", 2, []int{4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "package p;\n\nclass A {\n    void g() { " + tt.body + "\n        g();\n    }\n}\n"

			s := openStore(t)
			unit := &syntax.Unit{Path: "p/A.java", Language: lang.Java, Source: []byte(src)}
			res, err := IndexUnit(context.Background(), s, unit, Options{BuildID: "b1", CreateBuild: true})
			if err != nil {
				t.Fatalf("IndexUnit: %v", err)
			}
			if res.Errors != tt.wantErrors || res.Status != model.PartiallyParsed {
				t.Fatalf("errors=%d status=%s, want %d and PartiallyParsed", res.Errors, res.Status, tt.wantErrors)
			}
			problems, err := s.ListProblems("b1", "p/A.java")
			if err != nil {
				t.Fatal(err)
			}
			if len(problems) != len(tt.wantLines) {
				t.Fatalf("problems = %+v", problems)
			}
			for i, p := range problems {
				if p.StartLine != tt.wantLines[i] || p.Severity != model.SeverityError {
					t.Errorf("problem %d = %+v, want an error on line %d", i, p, tt.wantLines[i])
				}
			}

			// The statement after the bad one is still indexed.
			calls, err := s.FindNodesByMangledHash("b1", identity.ID("p.A.g()"), model.AstVirtualCall)
			if err != nil {
				t.Fatal(err)
			}
			if len(calls) != 1 {
				t.Errorf("calls of g = %d, want 1", len(calls))
			}
			if strings.Contains(tt.body, "int y") {
				if locals, _ := s.FindEntitiesByName("b1", "y"); len(locals) != 1 {
					t.Errorf("locals named y = %d, want 1", len(locals))
				}
			}
		})
	}
}

func TestIndexUnitRollsBackOnFatalError(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	opts := Options{BuildID: "b1", CreateBuild: true}
	if _, err := IndexUnit(ctx, s, javaUnit(), opts); err != nil {
		t.Fatalf("IndexUnit: %v", err)
	}
	fileID := FileID("b1", "p/A.java")
	nodesBefore, _ := s.FindNodesByFile("b1", fileID)
	entitiesBefore, _ := s.CountEntities("b1", "")
	fileBefore, _ := s.GetFileByPath("b1", "p/A.java")
	if len(nodesBefore) == 0 || fileBefore == nil {
		t.Fatal("first index wrote nothing")
	}

	errStorage := errors.New("storage lost")
	orig := visitUnit
	visitUnit = func(ec *engine.Context, root *syntax.Node) error {
		if err := visitor.Visit(ec, root); err != nil {
			return err
		}
		return errStorage
	}
	t.Cleanup(func() { visitUnit = orig })

	edited := &syntax.Unit{Path: "p/A.java", Language: lang.Java, Source: []byte(javaSource + "\nclass B { void h() { nope(); } }\n")}
	if _, err := IndexUnit(ctx, s, edited, opts); !errors.Is(err, errStorage) {
		t.Fatalf("err = %v, want the injected error", err)
	}
	fresh := &syntax.Unit{Path: "p/C.java", Language: lang.Java, Source: []byte("package p;\nclass C { void k() {} }\n")}
	if _, err := IndexUnit(ctx, s, fresh, opts); !errors.Is(err, errStorage) {
		t.Fatalf("err = %v, want the injected error", err)
	}

	nodesAfter, _ := s.FindNodesByFile("b1", fileID)
	entitiesAfter, _ := s.CountEntities("b1", "")
	fileAfter, _ := s.GetFileByPath("b1", "p/A.java")
	if len(nodesAfter) != len(nodesBefore) || entitiesAfter != entitiesBefore {
		t.Errorf("nodes %d -> %d, entities %d -> %d", len(nodesBefore), len(nodesAfter), entitiesBefore, entitiesAfter)
	}
	if fileAfter == nil || fileAfter.ContentHash != fileBefore.ContentHash || fileAfter.ParseStatus != model.FullyParsed {
		t.Errorf("file row changed: %+v", fileAfter)
	}
	if problems, _ := s.ListProblems("b1", ""); len(problems) != 0 {
		t.Errorf("problems of a rolled back unit were kept: %+v", problems)
	}
	if f, _ := s.GetFileByPath("b1", "p/C.java"); f != nil {
		t.Error("file row of a rolled back unit was kept")
	}
	if n, _ := s.FindNodesByFile("b1", FileID("b1", "p/C.java")); len(n) != 0 {
		t.Errorf("%d nodes of a rolled back unit were kept", len(n))
	}
}

func TestIndexUnitRebuildsMemberRelations(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	opts := Options{BuildID: "b1", CreateBuild: true}
	before := "package p;\n\nclass A {\n    int x;\n    int z;\n    void f() {}\n    void g(int a) { int b = a; f(); }\n}\n"
	after := "package p;\n\nclass A {\n    int x;\n    void g() {}\n}\n"

	for _, src := range []string{before, after} {
		unit := &syntax.Unit{Path: "p/A.java", Language: lang.Java, Source: []byte(src)}
		if _, err := IndexUnit(ctx, s, unit, opts); err != nil {
			t.Fatalf("IndexUnit: %v", err)
		}
	}

	typ, err := s.FindEntity("b1", model.KindType, identity.ID("p.A"))
	if err != nil || typ == nil {
		t.Fatalf("type p.A: %v %v", typ, err)
	}
	if len(typ.Members) != 1 || typ.Members[0] != identity.ID("p.A.g()") {
		t.Errorf("members = %v, want only p.A.g()", typ.Members)
	}
	if len(typ.Fields) != 1 || typ.Fields[0] != identity.ID("p.A.x") {
		t.Errorf("fields = %v, want only p.A.x", typ.Fields)
	}
}
