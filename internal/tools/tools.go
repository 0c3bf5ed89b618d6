// Package tools serves the symbol index over the Model Context Protocol.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/symbol-indexer/internal/pipeline"
	"github.com/DeusData/symbol-indexer/internal/store"
)

// Options configures a Server.
type Options struct {
	// BuildID is queried when a call names no build.
	BuildID string
	Version string
	// Index is the template for index_path runs.
	Index pipeline.Options
}

// Server wraps the MCP server with tool handlers.
type Server struct {
	mcp     *mcp.Server
	store   *store.Store
	opts    Options
	indexMu sync.Mutex
}

// NewServer creates an MCP server with all tools registered.
func NewServer(s *store.Store, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	srv := &Server{
		store: s,
		opts:  opts,
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: "symbol-indexer", Version: opts.Version},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves over stdin and stdout until the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_path",
		Description: "Index the Java and Python sources below a directory into a build. Unchanged files are skipped when incremental is set.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "Directory to index"},
				"build": {"type": "string", "description": "Build id; defaults to the server's build, created if missing"},
				"incremental": {"type": "boolean", "description": "Skip files whose content hash is unchanged"}
			},
			"required": ["path"]
		}`),
	}, s.handleIndexPath)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "go_to_definition",
		Description: "Resolve the symbol at a source position to its declaration. Library symbols answer with their mangled name and no location.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string", "description": "File path as indexed, relative to the indexed root"},
				"line": {"type": "integer", "description": "1-based line"},
				"column": {"type": "integer", "description": "1-based column"},
				"build": {"type": "string"}
			},
			"required": ["path", "line", "column"]
		}`),
	}, s.handleGoToDefinition)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "find_usages",
		Description: "List the occurrences of a symbol, including those of its generic instantiations. The symbol is a mangled name (e.g. 'p.A.f(int)') or a qualified name (e.g. 'p.A.f').",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string"},
				"kinds": {"type": "array", "items": {"type": "string"}, "description": "Occurrence kinds to keep: Read, Write, Usage, VirtualCall, Definition, ..."},
				"limit": {"type": "integer", "description": "Max results (default 100)"},
				"build": {"type": "string"}
			},
			"required": ["symbol"]
		}`),
	}, s.handleFindUsages)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "call_hierarchy",
		Description: "Walk the callers (inbound) or callees (outbound) of a function breadth first.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {"type": "string", "description": "Mangled or qualified function name"},
				"direction": {"type": "string", "enum": ["inbound", "outbound"]},
				"depth": {"type": "integer", "description": "Maximum depth (1-5, default 2)"},
				"build": {"type": "string"}
			},
			"required": ["symbol"]
		}`),
	}, s.handleCallHierarchy)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_problems",
		Description: "List the diagnostics recorded while indexing, optionally for one file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"path": {"type": "string"},
				"build": {"type": "string"}
			}
		}`),
	}, s.handleListProblems)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_symbols",
		Description: "Search declared types, functions, variables and enum constants by name pattern and qualified name prefix.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name_pattern": {"type": "string", "description": "Regex matched against the simple name"},
				"qn_prefix": {"type": "string", "description": "Qualified name prefix, e.g. 'com.acme.'"},
				"kind": {"type": "string", "enum": ["Type", "Function", "Variable", "EnumConstant"]},
				"limit": {"type": "integer", "description": "Max results (default 50, max 500)"},
				"build": {"type": "string"}
			}
		}`),
	}, s.handleSearchSymbols)
}

// jsonResult marshals data to JSON and returns as tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	f, ok := args[key].(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

func getBoolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func getStringsArg(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// buildOf picks the build a call refers to.
func (s *Server) buildOf(args map[string]any) (string, error) {
	if b := getStringArg(args, "build"); b != "" {
		return b, nil
	}
	if s.opts.BuildID != "" {
		return s.opts.BuildID, nil
	}
	builds, err := s.store.ListBuilds()
	if err != nil {
		return "", err
	}
	if len(builds) == 0 {
		return "", fmt.Errorf("no build indexed yet")
	}
	return builds[0].ID, nil
}
