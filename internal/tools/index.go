package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/symbol-indexer/internal/pipeline"
)

type unitSummary struct {
	Path     string `json:"path"`
	Status   string `json:"status,omitempty"`
	Problems int    `json:"problems,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleIndexPath(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}

	root := getStringArg(args, "path")
	if root == "" {
		return errResult("path is required"), nil
	}
	absPath, err := filepath.Abs(root)
	if err != nil {
		return errResult(fmt.Sprintf("invalid path: %v", err)), nil
	}

	opts := s.opts.Index
	if b := getStringArg(args, "build"); b != "" {
		opts.BuildID = b
	} else if opts.BuildID == "" {
		opts.BuildID = s.opts.BuildID
	}
	opts.CreateBuild = true
	if _, ok := args["incremental"]; ok {
		opts.Incremental = getBoolArg(args, "incremental")
	}

	// Lock to prevent concurrent runs writing the same build.
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	report, err := pipeline.Run(ctx, s.store, absPath, opts)
	if err != nil {
		return errResult(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	indexed, skipped, failed := report.Counts()
	var units []unitSummary
	for _, u := range report.Units {
		if u == nil || u.Skipped {
			continue
		}
		us := unitSummary{Path: u.Path, Status: string(u.Status), Problems: u.Problems}
		if u.Err != nil {
			us.Error = u.Err.Error()
		}
		units = append(units, us)
	}
	nodes, _ := s.store.CountNodes(report.BuildID)

	return jsonResult(map[string]any{
		"build":   report.BuildID,
		"indexed": indexed,
		"skipped": skipped,
		"failed":  failed,
		"nodes":   nodes,
		"elapsed": report.Elapsed.String(),
		"units":   units,
	}), nil
}
