// Package mcpserver exposes the sandbox over the Model Context Protocol
// so agent frontends can execute and generate snippets as tools.
package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"crucible/internal/llm"
	"crucible/internal/pipeline"
	"crucible/internal/storage"
)

// Server wires sandbox tools into an MCP server.
type Server struct {
	engine pipeline.Runner
	gen    llm.Client
	store  storage.Store
	mcp    *server.MCPServer
	log    zerolog.Logger
}

// New builds the MCP server with the execute_code, generate_code, and
// sandbox_stats tools registered. gen may be nil; store may be nil to
// skip history.
func New(eng pipeline.Runner, gen llm.Client, store storage.Store, logger zerolog.Logger) *Server {
	s := &Server{
		engine: eng,
		gen:    gen,
		store:  store,
		mcp:    server.NewMCPServer("crucible", "0.1.0"),
		log:    logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	pol := s.engine.Policy()

	s.mcp.AddTool(mcp.Tool{
		Name: "execute_code",
		Description: fmt.Sprintf(
			"Execute a JavaScript snippet in a locked-down sandbox. Available modules: %s. Use print() for output; execution is cut off after %g seconds.",
			strings.Join(pol.AllowedImports, ", "), pol.MaxExecutionTime.Seconds()),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "JavaScript source to execute",
				},
			},
			Required: []string{"code"},
		},
	}, s.handleExecute)

	s.mcp.AddTool(mcp.Tool{
		Name:        "generate_code",
		Description: "Generate a sandbox-ready JavaScript snippet from a natural-language description, optionally executing it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "What the snippet should do",
				},
				"execute": map[string]any{
					"type":        "boolean",
					"description": "Also run the snippet and include its output (default false)",
				},
			},
			Required: []string{"prompt"},
		},
	}, s.handleGenerate)

	s.mcp.AddTool(mcp.Tool{
		Name:        "sandbox_stats",
		Description: "Inspect the sandbox: execution limits, allowed modules, generator availability, and recorded run totals.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, s.handleStats)
}

// ServeStdio blocks, speaking MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	code, _ := args["code"].(string)
	if strings.TrimSpace(code) == "" {
		return errResult("error: 'code' is required"), nil
	}

	res := s.engine.Execute(ctx, code)
	run := pipeline.NewRun(storage.KindExecute, "", "", code, res)
	s.saveRun(run)

	return runResult(run), nil
}

func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	prompt, _ := args["prompt"].(string)
	if strings.TrimSpace(prompt) == "" {
		return errResult("error: 'prompt' is required"), nil
	}
	execute, _ := args["execute"].(bool)

	if s.gen == nil || !s.gen.Available() {
		return errResult("error: " + llm.ErrUnavailable.Error() + "; " +
			strings.Join(llm.UnavailableSuggestions, "; ")), nil
	}

	if execute {
		p := &pipeline.Pipeline{Gen: s.gen, Runner: s.engine, Log: s.log}
		run, err := p.Run(ctx, prompt, nil, 1)
		if err != nil {
			return errResult(fmt.Sprintf("error: %v", err)), nil
		}
		s.saveRun(run)

		res := runResult(run)
		res.Content = append([]mcp.Content{mcp.TextContent{
			Type: "text",
			Text: "```javascript\n" + run.Code + "\n```",
		}}, res.Content...)
		return res, nil
	}

	gen, err := s.gen.Generate(ctx, llm.Request{
		Prompt:  prompt,
		Modules: s.engine.Policy().AllowedImports,
	})
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}
	return textResult(gen.Code), nil
}

func (s *Server) handleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pol := s.engine.Policy()
	imports := append([]string(nil), pol.AllowedImports...)
	sort.Strings(imports)

	var b strings.Builder
	fmt.Fprintf(&b, "max execution time: %gs\n", pol.MaxExecutionTime.Seconds())
	fmt.Fprintf(&b, "max output: %d chars\n", pol.MaxOutputChars)
	fmt.Fprintf(&b, "allowed modules: %s\n", strings.Join(imports, ", "))
	fmt.Fprintf(&b, "security level: restricted\n")
	fmt.Fprintf(&b, "generator available: %t", s.gen != nil && s.gen.Available())

	if s.store != nil {
		stats, err := s.store.Stats(ctx)
		if err != nil {
			return errResult(fmt.Sprintf("error: %v", err)), nil
		}
		fmt.Fprintf(&b, "\nruns: %d\nsucceeded: %d\nfailed: %d\ngenerated: %d\navg execution: %.3fs",
			stats.TotalRuns, stats.Succeeded, stats.Failed, stats.Generated, stats.AvgSeconds)
	}

	return textResult(b.String()), nil
}

// saveRun records history best-effort.
func (s *Server) saveRun(run *storage.Run) {
	if s.store == nil {
		return
	}
	if err := s.store.CreateRun(context.Background(), run); err != nil {
		s.log.Warn().Err(err).Msg("recording run")
	}
}

// runResult renders a finished run the way a model likes to read it.
func runResult(run *storage.Run) *mcp.CallToolResult {
	var b strings.Builder
	if run.Output != "" {
		b.WriteString(run.Output)
	}
	if run.Stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("STDERR:\n" + run.Stderr)
	}
	if run.Truncated {
		b.WriteString("\n... (output truncated)")
	}
	if run.Error != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("error: " + run.Error)
	}
	if b.Len() == 0 {
		b.WriteString("(no output)")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: b.String()}},
		IsError: !run.Success,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
