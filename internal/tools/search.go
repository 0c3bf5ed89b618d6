package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/symbol-indexer/internal/identity"
	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/store"
)

// fileCache memoizes file id to path lookups within one call.
type fileCache struct {
	st    *store.Store
	build string
	paths map[int64]string
}

func newFileCache(st *store.Store, build string) *fileCache {
	return &fileCache{st: st, build: build, paths: map[int64]string{}}
}

func (c *fileCache) path(id int64) string {
	if id == 0 {
		return ""
	}
	if p, ok := c.paths[id]; ok {
		return p
	}
	f, err := c.st.GetFile(c.build, id)
	if err != nil || f == nil {
		c.paths[id] = ""
		return ""
	}
	c.paths[id] = f.Path
	return f.Path
}

func (c *fileCache) nodeInfo(n *model.AstNode) map[string]any {
	info := map[string]any{
		"value":        n.Value,
		"kind":         string(n.AstType),
		"symbol_type":  string(n.SymbolType),
		"mangled_name": n.MangledName,
	}
	if n.InFile() {
		info["path"] = c.path(n.FileID)
		info["start_line"] = n.Range.StartLine
		info["start_col"] = n.Range.StartCol
		info["end_line"] = n.Range.EndLine
		info["end_col"] = n.Range.EndCol
	}
	return info
}

func entityInfo(e *model.Entity) map[string]any {
	info := map[string]any{
		"kind":           string(e.Kind),
		"name":           e.Name,
		"qualified_name": e.QualifiedName,
		"mangled_name":   e.MangledName,
	}
	if e.Modifiers != 0 {
		info["modifiers"] = e.Modifiers.String()
	}
	if e.Signature != "" {
		info["signature"] = e.Signature
	}
	if e.IsGeneric {
		info["type_params"] = e.TypeParams
	}
	return info
}

// resolveSymbol finds the entities a symbol names. A mangled name matches
// by hash; otherwise every entity with that qualified name is returned, so
// a bare function name yields all overloads.
func (s *Server) resolveSymbol(build, symbol string) ([]*model.Entity, error) {
	ents, err := s.store.FindEntitiesByHash(build, identity.ID(symbol))
	if err != nil {
		return nil, err
	}
	if len(ents) > 0 {
		return ents, nil
	}
	candidates, err := s.store.SearchEntities(store.SearchParams{BuildID: build, QNPrefix: symbol, Limit: 500})
	if err != nil {
		return nil, err
	}
	for _, e := range candidates {
		if e.QualifiedName == symbol || e.MangledName == symbol {
			ents = append(ents, e)
		}
	}
	return ents, nil
}

// notFound answers with up to five entities sharing the symbol's simple
// name.
func (s *Server) notFound(build, symbol string) *mcp.CallToolResult {
	name := symbol
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexAny(name, ".$"); i >= 0 {
		name = name[i+1:]
	}
	similar, _ := s.store.SearchEntities(store.SearchParams{
		BuildID:     build,
		NamePattern: "(?i)^" + regexp.QuoteMeta(name) + "$",
		Limit:       5,
	})
	if len(similar) == 0 {
		return errResult(fmt.Sprintf("symbol not found: %s", symbol))
	}
	suggestions := make([]map[string]any, len(similar))
	for i, e := range similar {
		suggestions[i] = entityInfo(e)
	}
	return jsonResult(map[string]any{
		"error":       fmt.Sprintf("symbol not found: %s", symbol),
		"suggestions": suggestions,
	})
}

func (s *Server) handleGoToDefinition(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	path := getStringArg(args, "path")
	line := getIntArg(args, "line", 0)
	col := getIntArg(args, "column", 0)
	if path == "" || line < 1 || col < 1 {
		return errResult("path, line and column are required"), nil
	}
	build, err := s.buildOf(args)
	if err != nil {
		return errResult(err.Error()), nil
	}

	f, err := s.store.GetFileByPath(build, path)
	if err != nil {
		return errResult(fmt.Sprintf("lookup file: %v", err)), nil
	}
	if f == nil {
		return errResult(fmt.Sprintf("file not indexed: %s", path)), nil
	}
	n, err := s.store.FindNodeAt(build, f.ID, line, col)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if n == nil {
		return errResult(fmt.Sprintf("no symbol at %s:%d:%d", path, line, col)), nil
	}
	defs, err := s.store.FindDefinition(build, n.ID)
	if err != nil {
		return errResult(fmt.Sprintf("definition: %v", err)), nil
	}

	files := newFileCache(s.store, build)
	results := make([]map[string]any, 0, len(defs))
	for _, d := range defs {
		entry := entityInfo(d.Entity)
		if d.Node != nil {
			entry["declaration"] = files.nodeInfo(d.Node)
		} else {
			entry["library"] = true
		}
		results = append(results, entry)
	}
	return jsonResult(map[string]any{
		"occurrence":  files.nodeInfo(n),
		"definitions": results,
	}), nil
}

func (s *Server) handleFindUsages(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	symbol := getStringArg(args, "symbol")
	if symbol == "" {
		return errResult("symbol is required"), nil
	}
	build, err := s.buildOf(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	limit := getIntArg(args, "limit", 100)
	var kinds []model.AstType
	for _, k := range getStringsArg(args, "kinds") {
		kinds = append(kinds, model.AstType(k))
	}

	ents, err := s.resolveSymbol(build, symbol)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if len(ents) == 0 {
		return s.notFound(build, symbol), nil
	}

	files := newFileCache(s.store, build)
	seen := map[int64]bool{}
	var usages []map[string]any
	total := 0
	for _, e := range ents {
		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		nodes, err := s.store.FindUsages(build, e.Hash, kinds...)
		if err != nil {
			return errResult(fmt.Sprintf("usages: %v", err)), nil
		}
		for _, n := range nodes {
			if !n.InFile() {
				continue
			}
			total++
			if len(usages) < limit {
				usages = append(usages, files.nodeInfo(n))
			}
		}
	}

	symbols := make([]map[string]any, len(ents))
	for i, e := range ents {
		symbols[i] = entityInfo(e)
	}
	return jsonResult(map[string]any{
		"symbols":  symbols,
		"total":    total,
		"has_more": total > len(usages),
		"usages":   usages,
	}), nil
}

func (s *Server) handleListProblems(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	build, err := s.buildOf(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	problems, err := s.store.ListProblems(build, getStringArg(args, "path"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	type problemEntry struct {
		Path     string `json:"path"`
		Line     int    `json:"line"`
		Column   int    `json:"column"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
	}
	out := make([]problemEntry, 0, len(problems))
	for _, p := range problems {
		out = append(out, problemEntry{
			Path:     p.Path,
			Line:     p.StartLine,
			Column:   p.StartCol,
			Severity: string(p.Severity),
			Message:  p.Message,
		})
	}
	return jsonResult(map[string]any{
		"build":    build,
		"total":    len(out),
		"problems": out,
	}), nil
}

func (s *Server) handleSearchSymbols(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	build, err := s.buildOf(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	limit := getIntArg(args, "limit", 50)
	if limit > 500 {
		limit = 500
	}

	ents, err := s.store.SearchEntities(store.SearchParams{
		BuildID:     build,
		Kind:        model.EntityKind(getStringArg(args, "kind")),
		NamePattern: getStringArg(args, "name_pattern"),
		QNPrefix:    getStringArg(args, "qn_prefix"),
		Limit:       limit,
	})
	if err != nil {
		return errResult(fmt.Sprintf("search: %v", err)), nil
	}

	files := newFileCache(s.store, build)
	results := make([]map[string]any, 0, len(ents))
	for _, e := range ents {
		entry := entityInfo(e)
		if e.AstNodeID != 0 {
			if n, err := s.store.FindNode(build, e.AstNodeID); err == nil && n != nil && n.InFile() {
				entry["path"] = files.path(n.FileID)
				entry["start_line"] = n.Range.StartLine
			}
		}
		results = append(results, entry)
	}
	return jsonResult(map[string]any{
		"total":   len(results),
		"limit":   limit,
		"results": results,
	}), nil
}
