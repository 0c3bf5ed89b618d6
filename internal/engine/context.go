// Package engine resolves bindings to de-duplicated entities and creates
// the occurrence nodes of one compilation unit.
package engine

import (
	"strconv"
	"strings"

	"github.com/DeusData/symbol-indexer/internal/docs"
	"github.com/DeusData/symbol-indexer/internal/lang"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/scope"
	"github.com/DeusData/symbol-indexer/internal/store"
	"github.com/DeusData/symbol-indexer/internal/syntax"
)

type kindHash struct {
	kind model.EntityKind
	hash int64
}

// Context is the state of one compilation unit walk. It is owned by a
// single goroutine.
type Context struct {
	Store    *store.Store
	BuildID  string
	File     *model.File
	Source   []byte
	Lang     *lang.LanguageSpec
	Frame    *scope.Frame
	Problems *Problems

	// Package is the unit's package or module qualifier.
	Package string
	// TopLevelType is the qualified name of the first type entered.
	TopLevelType string

	functions     map[string]*model.Entity
	types         map[string]*model.Entity
	variables     map[string]*model.Entity
	enumConstants map[string]*model.Entity

	explicitImports map[string]bool
	wildcardImports map[string]bool
	implicitImports map[string]bool
	instantiations  map[kindHash]map[int64]bool
	anonCounters    map[int64]int

	NodesCreated    int
	EntitiesCreated int
}

// NewContext prepares a walk of file. s must be the unit's transaction
// scoped store.
func NewContext(s *store.Store, buildID string, file *model.File, source []byte, spec *lang.LanguageSpec) *Context {
	return &Context{
		Store:           s,
		BuildID:         buildID,
		File:            file,
		Source:          source,
		Lang:            spec,
		Frame:           scope.NewRoot(""),
		Problems:        NewProblems(buildID, file.ID, file.Path),
		functions:       map[string]*model.Entity{},
		types:           map[string]*model.Entity{},
		variables:       map[string]*model.Entity{},
		enumConstants:   map[string]*model.Entity{},
		explicitImports: map[string]bool{},
		wildcardImports: map[string]bool{},
		implicitImports: map[string]bool{},
		instantiations:  map[kindHash]map[int64]bool{},
		anonCounters:    map[int64]int{},
	}
}

// EnterPackage resets the frame chain to a root qualified by pkg.
func (c *Context) EnterPackage(pkg string) {
	c.Package = pkg
	c.Frame = scope.NewRoot(pkg)
}

// NextAnonymousName returns the qualified name of the next anonymous class
// declared in typ: Outer$1, Outer$2, ...
func (c *Context) NextAnonymousName(typ *model.Entity) string {
	c.anonCounters[typ.Hash]++
	return typ.QualifiedName + "$" + strconv.Itoa(c.anonCounters[typ.Hash])
}

func (c *Context) cache(kind model.EntityKind) map[string]*model.Entity {
	switch kind {
	case model.KindFunction:
		return c.functions
	case model.KindVariable:
		return c.variables
	case model.KindEnumConstant:
		return c.enumConstants
	default:
		return c.types
	}
}

// RecordImport stores an explicit import of qualifier.
func (c *Context) RecordImport(qualifier string, static, wildcard bool, nodeID int64) error {
	if wildcard {
		c.wildcardImports[qualifier] = true
	} else {
		c.explicitImports[qualifier] = true
	}
	_, err := c.Store.InsertImport(&model.Import{
		BuildID:    c.BuildID,
		FileID:     c.File.ID,
		Qualifier:  qualifier,
		IsStatic:   static,
		IsWildcard: wildcard,
		AstNodeID:  nodeID,
	})
	return err
}

// NoteTypeUse records an implicit import the first time a type from
// another package is used without an import.
func (c *Context) NoteTypeUse(t *model.Entity) error {
	qn := t.QualifiedName
	if qn == "" || qn == c.Package || c.implicitImports[qn] || c.explicitImports[qn] {
		return nil
	}
	if c.Lang != nil && c.Lang.IsPrimitive(qn) {
		return nil
	}
	pkg := ""
	if i := strings.LastIndexByte(qn, '.'); i >= 0 {
		pkg = qn[:i]
	}
	if pkg == "" || pkg == c.Package || c.wildcardImports[pkg] {
		return nil
	}
	if c.Lang != nil && c.Lang.IsImplicitPackage(pkg) {
		return nil
	}
	if c.TopLevelType != "" && (qn == c.TopLevelType || strings.HasPrefix(qn, c.TopLevelType+".")) {
		return nil
	}
	// Nested types are imported through their outer type.
	if c.explicitImports[pkg] || c.implicitImports[pkg] {
		return nil
	}
	c.implicitImports[qn] = true
	_, err := c.Store.InsertImport(&model.Import{
		BuildID:    c.BuildID,
		FileID:     c.File.ID,
		Qualifier:  qn,
		IsImplicit: true,
	})
	return err
}

// RecordDoc stores the documentation comment of owner.
func (c *Context) RecordDoc(owner *model.Entity, d *syntax.Doc) error {
	if d == nil || owner == nil {
		return nil
	}
	language := lang.Java
	if c.Lang != nil {
		language = c.Lang.Language
	}
	cleaned := docs.Clean(d.Text, language)
	if cleaned == "" {
		return nil
	}
	return c.Store.UpsertDocComment(&model.DocComment{
		BuildID:     c.BuildID,
		ContentHash: docs.ContentHash(d.Text),
		Content:     cleaned,
		HTML:        docs.RenderHTML(cleaned),
		OwnerHash:   owner.Hash,
	})
}
