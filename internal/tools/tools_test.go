package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/pipeline"
	"github.com/DeusData/symbol-indexer/internal/store"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

const javaSource = `package p;

class A {
    void f() {}
    void g() { f(); }
}
`

type handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	opts := pipeline.Options{BuildID: "b1", CreateBuild: true}
	units := []*syntax.Unit{
		{Path: "p/A.java", Language: lang.Java, Source: []byte(javaSource)},
		{Path: "p/Broken.java", Language: lang.Java, Source: []byte("package p;\nclass Broken { void f( }\n")},
	}
	for _, u := range units {
		if _, err := pipeline.IndexUnit(context.Background(), s, u, opts); err != nil {
			t.Fatalf("IndexUnit %s: %v", u.Path, err)
		}
	}
	return NewServer(s, Options{BuildID: "b1"})
}

// call runs h with args and decodes the JSON payload into out.
func call(t *testing.T, h handler, args any, out any) *mcp.CallToolResult {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatal(err)
	}
	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if out != nil && !res.IsError {
		text := res.Content[0].(*mcp.TextContent).Text
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
	}
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(*mcp.TextContent).Text
}

func TestSearchSymbols(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"by name", map[string]any{"name_pattern": "^g$"}, "p.A.g"},
		{"by prefix and kind", map[string]any{"qn_prefix": "p.", "kind": "Type"}, "p.A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Results []struct {
					QualifiedName string `json:"qualified_name"`
					Path          string `json:"path"`
				} `json:"results"`
			}
			call(t, srv.handleSearchSymbols, tt.args, &out)
			found := false
			for _, r := range out.Results {
				if r.QualifiedName == tt.want {
					found = true
					if r.Path != "p/A.java" {
						t.Errorf("path = %q", r.Path)
					}
				}
			}
			if !found {
				t.Errorf("%s missing from %+v", tt.want, out.Results)
			}
		})
	}
}

func TestFindUsages(t *testing.T) {
	srv := newTestServer(t)
	var out struct {
		Total  int `json:"total"`
		Usages []struct {
			Kind string `json:"kind"`
			Path string `json:"path"`
		} `json:"usages"`
	}
	call(t, srv.handleFindUsages, map[string]any{"symbol": "p.A.f"}, &out)
	kinds := map[string]int{}
	for _, u := range out.Usages {
		if u.Path != "p/A.java" {
			continue
		}
		kinds[u.Kind]++
	}
	if kinds["Definition"] != 1 || kinds["VirtualCall"] != 1 {
		t.Errorf("usages by kind = %v", kinds)
	}

	call(t, srv.handleFindUsages, map[string]any{"symbol": "p.A.f()", "kinds": []string{"VirtualCall"}}, &out)
	if out.Total != 1 {
		t.Errorf("filtered total = %d, want 1", out.Total)
	}
}

func TestFindUsagesUnknownSymbol(t *testing.T) {
	srv := newTestServer(t)
	res := call(t, srv.handleFindUsages, map[string]any{"symbol": "q.Nope.f"}, nil)
	if strings.Contains(resultText(res), "suggestions") {
		// f exists in p.A, so a suggestion is fine too.
		return
	}
	if !res.IsError {
		t.Errorf("expected an error, got %s", resultText(res))
	}
}

func TestGoToDefinition(t *testing.T) {
	srv := newTestServer(t)
	var out struct {
		Definitions []struct {
			QualifiedName string `json:"qualified_name"`
			Declaration   struct {
				Path      string `json:"path"`
				StartLine int    `json:"start_line"`
			} `json:"declaration"`
		} `json:"definitions"`
	}
	// The call to f() in g.
	res := call(t, srv.handleGoToDefinition, map[string]any{"path": "p/A.java", "line": 5, "column": 16}, &out)
	if res.IsError {
		t.Fatalf("go_to_definition: %s", resultText(res))
	}
	if len(out.Definitions) == 0 {
		t.Fatal("no definitions")
	}
	d := out.Definitions[0]
	if d.QualifiedName != "p.A.f" || d.Declaration.Path != "p/A.java" || d.Declaration.StartLine != 4 {
		t.Errorf("definition = %+v", d)
	}
}

func TestGoToDefinitionErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing args", map[string]any{"path": "p/A.java"}},
		{"unknown file", map[string]any{"path": "p/Z.java", "line": 1, "column": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := call(t, srv.handleGoToDefinition, tt.args, nil); !res.IsError {
				t.Errorf("expected an error, got %s", resultText(res))
			}
		})
	}
}

func TestCallHierarchy(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		direction, symbol, want string
	}{
		{"outbound", "p.A.g", "p.A.f"},
		{"inbound", "p.A.f", "p.A.g"},
	}
	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			res := call(t, srv.handleCallHierarchy, map[string]any{"symbol": tt.symbol, "direction": tt.direction}, nil)
			if res.IsError {
				t.Fatalf("call_hierarchy: %s", resultText(res))
			}
			var out struct {
				Results []struct {
					Hops []struct {
						Functions []struct {
							QualifiedName string `json:"qualified_name"`
						} `json:"functions"`
					} `json:"hops"`
				} `json:"results"`
			}
			if err := json.Unmarshal([]byte(resultText(res)), &out); err != nil {
				t.Fatal(err)
			}
			found := false
			for _, r := range out.Results {
				for _, h := range r.Hops {
					for _, f := range h.Functions {
						found = found || f.QualifiedName == tt.want
					}
				}
			}
			if !found {
				t.Errorf("%s not reached: %s", tt.want, resultText(res))
			}
		})
	}

	if res := call(t, srv.handleCallHierarchy, map[string]any{"symbol": "p.A.g", "direction": "sideways"}, nil); !res.IsError {
		t.Error("bad direction accepted")
	}
}

func TestListProblems(t *testing.T) {
	srv := newTestServer(t)
	var out struct {
		Total    int `json:"total"`
		Problems []struct {
			Path     string `json:"path"`
			Severity string `json:"severity"`
		} `json:"problems"`
	}
	call(t, srv.handleListProblems, map[string]any{"path": "p/Broken.java"}, &out)
	if out.Total == 0 {
		t.Fatal("no problems for a file with a syntax error")
	}
	for _, p := range out.Problems {
		if p.Path != "p/Broken.java" {
			t.Errorf("problem from %s leaked into the filtered list", p.Path)
		}
	}

	call(t, srv.handleListProblems, map[string]any{"path": "p/A.java"}, &out)
	if out.Total != 0 {
		t.Errorf("clean file has %d problems", out.Total)
	}
}

func TestIndexPath(t *testing.T) {
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	srv := NewServer(s, Options{})

	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "p"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "p", "A.java"), []byte(javaSource), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "m.py"), []byte("def h():\n    return 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var out struct {
		Build   string `json:"build"`
		Indexed int    `json:"indexed"`
		Skipped int    `json:"skipped"`
	}
	res := call(t, srv.handleIndexPath, map[string]any{"path": root, "build": "tmp", "incremental": true}, &out)
	if res.IsError {
		t.Fatalf("index_path: %s", resultText(res))
	}
	if out.Build != "tmp" || out.Indexed != 2 {
		t.Errorf("first run = %+v", out)
	}

	call(t, srv.handleIndexPath, map[string]any{"path": root, "build": "tmp", "incremental": true}, &out)
	if out.Indexed != 0 || out.Skipped != 2 {
		t.Errorf("incremental run = %+v", out)
	}

	// With no build argument the only build is picked.
	var found struct {
		Total int `json:"total"`
	}
	call(t, srv.handleSearchSymbols, map[string]any{"name_pattern": "^h$"}, &found)
	if found.Total != 1 {
		t.Errorf("h found %d times", found.Total)
	}

	if res := call(t, srv.handleIndexPath, map[string]any{}, nil); !res.IsError {
		t.Error("missing path accepted")
	}
}
