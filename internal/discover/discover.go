// Package discover finds the compilation units below a source root.
package discover

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/DeusData/symbol-indexer/internal/lang"
)

// IgnoreFileName is read from the source root when Options.IgnoreFile is
// empty. One glob per line, # starts a comment.
const IgnoreFileName = ".symbolignore"

// SkippedDirs are directory names never descended into.
var SkippedDirs = map[string]bool{
	".cache": true, ".eclipse": true, ".eggs": true, ".git": true,
	".gradle": true, ".hg": true, ".idea": true, ".maven": true,
	".mypy_cache": true, ".nox": true, ".pytest_cache": true,
	".ruff_cache": true, ".svn": true, ".tox": true, ".venv": true,
	".vscode": true, "__pycache__": true, "bin": true, "build": true,
	"dist": true, "env": true, "node_modules": true, "out": true,
	"site-packages": true, "target": true, "vendor": true, "venv": true,
}

// FileInfo is one discovered compilation unit.
type FileInfo struct {
	Path     string // absolute path
	RelPath  string // slash separated, relative to the root
	Language lang.Language
}

// Options configures discovery.
type Options struct {
	// IgnoreFile overrides the root's .symbolignore.
	IgnoreFile string
	// Ignore are extra globs matched against slash separated relative
	// paths and against base names.
	Ignore []string
	// Languages restricts discovery; empty means every supported language.
	Languages []lang.Language
}

// Matcher decides which paths discovery and the watcher skip.
type Matcher struct {
	globs     []glob.Glob
	languages map[lang.Language]bool
}

// NewMatcher compiles the ignore globs of opts, including those of the
// ignore file below root.
func NewMatcher(root string, opts *Options) (*Matcher, error) {
	if opts == nil {
		opts = &Options{}
	}
	patterns := append([]string(nil), opts.Ignore...)
	ignorePath := opts.IgnoreFile
	if ignorePath == "" {
		ignorePath = filepath.Join(root, IgnoreFileName)
	}
	fromFile, err := loadIgnoreFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	patterns = append(patterns, fromFile...)

	m := &Matcher{languages: map[lang.Language]bool{}}
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	for _, l := range opts.Languages {
		m.languages[l] = true
	}
	return m, nil
}

// Ignored reports whether a relative path matches an ignore glob.
func (m *Matcher) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := rel[strings.LastIndexByte(rel, '/')+1:]
	for _, g := range m.globs {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory is pruned.
func (m *Matcher) SkipDir(name, rel string) bool {
	return SkippedDirs[name] || m.Ignored(rel)
}

// Language returns the language of a source file that is not ignored.
func (m *Matcher) Language(rel string) (lang.Language, bool) {
	if m.Ignored(rel) {
		return "", false
	}
	l, ok := lang.LanguageForExtension(filepath.Ext(rel))
	if !ok {
		return "", false
	}
	if len(m.languages) > 0 && !m.languages[l] {
		return "", false
	}
	return l, true
}

// Discover walks root and returns its Java and Python files sorted by
// relative path.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := NewMatcher(root, opts)
	if err != nil {
		return nil, err
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && m.SkipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if l, ok := m.Language(rel); ok {
			files = append(files, FileInfo{Path: path, RelPath: rel, Language: l})
		}
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, err
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
