package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DeusData/symbol-indexer/internal/lang"
)

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

func TestDiscoverBasic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/p/A.java", "package p;\nclass A {}\n")
	writeFile(t, dir, "app.py", "def main(): pass\n")
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "README.md", "# readme\n")

	files, err := Discover(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %+v", len(files), files)
	}
	if files[0].RelPath != "app.py" || files[0].Language != lang.Python {
		t.Errorf("files[0] = %+v", files[0])
	}
	if files[1].RelPath != "src/p/A.java" || files[1].Language != lang.Java {
		t.Errorf("files[1] = %+v", files[1])
	}
	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("path %q is not absolute", f.Path)
		}
	}
}

func TestDiscoverIgnores(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep/K.java", "class K {}\n")
	writeFile(t, dir, "target/T.java", "class T {}\n")
	writeFile(t, dir, "gen/G.java", "class G {}\n")
	writeFile(t, dir, "keep/test_k.py", "pass\n")
	writeFile(t, dir, "keep/Skip.java", "class Skip {}\n")
	writeFile(t, dir, IgnoreFileName, "# generated\ngen\n")

	tests := []struct {
		name string
		opts *Options
		want []string
	}{
		{"ignore file", nil, []string{"keep/K.java", "keep/Skip.java", "keep/test_k.py"}},
		{"extra globs", &Options{Ignore: []string{"test_*.py", "**/Skip.java"}}, []string{"keep/K.java"}},
		{"languages", &Options{Languages: []lang.Language{lang.Python}}, []string{"keep/test_k.py"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := Discover(context.Background(), dir, tt.opts)
			if err != nil {
				t.Fatalf("Discover: %v", err)
			}
			var got []string
			for _, f := range files {
				got = append(got, f.RelPath)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestBadIgnorePattern(t *testing.T) {
	if _, err := NewMatcher(t.TempDir(), &Options{Ignore: []string{"[unclosed"}}); err == nil {
		t.Error("expected an error for a malformed glob")
	}
}

func TestDiscoverCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "A.java", "class A {}\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, dir, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
