package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/symbol-indexer/internal/model"
	"github.com/DeusData/symbol-indexer/internal/store"
)

func (s *Server) handleCallHierarchy(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	symbol := getStringArg(args, "symbol")
	if symbol == "" {
		return errResult("symbol is required"), nil
	}

	depth := getIntArg(args, "depth", 2)
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}

	direction := getStringArg(args, "direction")
	if direction == "" {
		direction = store.Outbound
	}
	if direction != store.Inbound && direction != store.Outbound {
		return errResult(fmt.Sprintf("direction must be %q or %q", store.Inbound, store.Outbound)), nil
	}

	build, err := s.buildOf(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ents, err := s.resolveSymbol(build, symbol)
	if err != nil {
		return errResult(err.Error()), nil
	}
	var fns []*model.Entity
	for _, e := range ents {
		if e.Kind == model.KindFunction {
			fns = append(fns, e)
		}
	}
	if len(fns) == 0 {
		return s.notFound(build, symbol), nil
	}

	files := newFileCache(s.store, build)
	roots := make([]map[string]any, 0, len(fns))
	for _, fn := range fns {
		res, err := s.store.CallHierarchy(build, fn.Hash, direction, depth, 200)
		if err != nil {
			return errResult(fmt.Sprintf("call hierarchy: %v", err)), nil
		}
		roots = append(roots, map[string]any{
			"root":  entityInfo(res.Root),
			"hops":  buildHops(res.Visited),
			"calls": buildCallList(files, res.Calls),
		})
	}
	return jsonResult(map[string]any{
		"direction": direction,
		"depth":     depth,
		"results":   roots,
	}), nil
}

type hopEntry struct {
	Hop       int              `json:"hop"`
	Functions []map[string]any `json:"functions"`
}

func buildHops(visited []*store.FunctionHop) []hopEntry {
	byHop := map[int][]map[string]any{}
	for _, fh := range visited {
		byHop[fh.Hop] = append(byHop[fh.Hop], entityInfo(fh.Function))
	}
	hops := make([]hopEntry, 0, len(byHop))
	for h, fns := range byHop {
		hops = append(hops, hopEntry{Hop: h, Functions: fns})
	}
	sort.Slice(hops, func(i, j int) bool { return hops[i].Hop < hops[j].Hop })
	return hops
}

func buildCallList(files *fileCache, calls []store.CallInfo) []map[string]any {
	out := make([]map[string]any, 0, len(calls))
	for _, c := range calls {
		entry := map[string]any{"from": c.From, "to": c.To}
		if c.Site != nil && c.Site.InFile() {
			entry["path"] = files.path(c.Site.FileID)
			entry["line"] = c.Site.Range.StartLine
			entry["column"] = c.Site.Range.StartCol
		}
		out = append(out, entry)
	}
	return out
}
