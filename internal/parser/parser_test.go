package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/symbol-indexer/internal/lang"
)

func TestParseJava(t *testing.T) {
	source := []byte(`package app;

import java.util.List;

public class Greeter {
    private String name;

    public String greet(List<String> names) {
        return "Hello, " + name;
    }

    enum Color { RED, GREEN }
}
`)
	tree, err := Parse(lang.Java, source)
	if err != nil {
		t.Fatalf("Parse Java: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		t.Fatal("root node is nil")
	}

	var classCount, methodCount, enumCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "class_declaration":
			classCount++
		case "method_declaration":
			methodCount++
		case "enum_declaration":
			enumCount++
		}
		return true
	})
	if classCount != 1 || methodCount != 1 || enumCount != 1 {
		t.Errorf("classes=%d methods=%d enums=%d, want 1/1/1", classCount, methodCount, enumCount)
	}
}

func TestParsePython(t *testing.T) {
	source := []byte(`def greet(name):
    return f"Hello, {name}"

class MyClass:
    def method(self):
        pass
`)
	tree, err := Parse(lang.Python, source)
	if err != nil {
		t.Fatalf("Parse Python: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var funcCount, classCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			funcCount++
		case "class_definition":
			classCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_definitions, got %d", funcCount)
	}
	if classCount != 1 {
		t.Errorf("expected 1 class_definition, got %d", classCount)
	}
}

func TestErrorNodes(t *testing.T) {
	tests := []struct {
		name   string
		l      lang.Language
		source string
		want   bool
	}{
		{"clean java", lang.Java, "class A { void run() {} }", false},
		{"broken java", lang.Java, "class A { void run( }", true},
		{"clean python", lang.Python, "def f():\n    return 1\n", false},
		{"broken python", lang.Python, "def f(:\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Parse(tt.l, []byte(tt.source))
			if err != nil {
				t.Fatal(err)
			}
			defer tree.Close()
			got := ErrorNodes(tree.RootNode())
			if (len(got) > 0) != tt.want {
				t.Errorf("ErrorNodes = %d nodes, want errors=%v", len(got), tt.want)
			}
			for _, n := range got {
				if !n.IsError() && !n.IsMissing() {
					t.Errorf("%s is neither ERROR nor MISSING", n.Kind())
				}
			}
		})
	}
}

func TestAllLanguagesLoad(t *testing.T) {
	for _, l := range lang.AllLanguages() {
		_, err := GetLanguage(l)
		if err != nil {
			t.Errorf("GetLanguage(%s): %v", l, err)
		}
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	if _, err := Parse(lang.Language("cobol"), []byte("x")); err == nil {
		t.Error("expected error for unsupported language")
	}
}
