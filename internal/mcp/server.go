package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amanscout/internal/history"
	"github.com/Aman-CERP/amanscout/internal/pipeline"
	"github.com/Aman-CERP/amanscout/pkg/version"
)

// Runner executes research runs. *pipeline.Context satisfies it.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
	WithDefaults(req pipeline.Request) pipeline.Request
}

// HistoryLister reads recorded runs. *history.Store satisfies it.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Server is the MCP server for amanscout.
// It exposes the research pipeline to AI clients.
type Server struct {
	mcp     *mcp.Server
	runner  Runner
	history HistoryLister
	logger  *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the history tool and resource.
func WithHistory(h HistoryLister) Option {
	return func(s *Server) { s.history = h }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

const (
	researchDescription = "Research a topic on the web. Searches, ranks candidates with an LLM, scrapes the best pages " +
		"and returns only the passages relevant to the query, trimmed to a character budget. Use for questions that need current external sources."
	historyDescription = "List recent research runs with their accepted counts, ranking path and duration."
)

// NewServer creates a new MCP server around runner.
func NewServer(runner Runner, opts ...Option) (*Server, error) {
	if runner == nil {
		return nil, errors.New("research runner is required")
	}

	s := &Server{
		runner: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "amanscout",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()
	if s.history != nil {
		s.registerHistoryResource()
	}
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "amanscout", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	tools := []ToolInfo{{Name: "research", Description: researchDescription}}
	if s.history != nil {
		tools = append(tools, ToolInfo{Name: "history", Description: historyDescription})
	}
	return tools
}

// CallTool invokes a tool by name with JSON-decoded arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "research":
		in := ResearchInput{}
		in.Query, _ = args["query"].(string)
		if c, ok := args["count"].(float64); ok {
			in.Count = int(c)
		}
		if b, ok := args["budget"].(float64); ok {
			in.Budget = int(b)
		}
		query, resp, err := s.research(ctx, in)
		if err != nil {
			return nil, err
		}
		return FormatResearch(query, resp), nil
	case "history":
		if s.history == nil {
			return nil, NewMethodNotFoundError(name)
		}
		in := HistoryInput{}
		if l, ok := args["limit"].(float64); ok {
			in.Limit = int(l)
		}
		return s.listHistory(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// research validates the input and runs the pipeline. It returns the trimmed query.
func (s *Server) research(ctx context.Context, in ResearchInput) (string, pipeline.Response, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", pipeline.Response{}, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}
	if in.Count < 0 || in.Budget < 0 {
		return "", pipeline.Response{}, NewInvalidParamsError("count and budget must not be negative")
	}

	req := s.runner.WithDefaults(pipeline.Request{
		Query:    query,
		Required: clampLimit(in.Count, 0, 1, MaxCount),
		Budget:   clampLimit(in.Budget, 0, 1, MaxBudget),
	})

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("research started",
		slog.String("request_id", requestID),
		slog.String("query", query),
		slog.Int("count", req.Required),
		slog.Int("budget", req.Budget))

	resp, err := s.runner.Run(ctx, req)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("research failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", pipeline.Response{}, MapError(err)
	}

	s.logger.Info("research completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.Int("sources", len(resp.Sources)),
		slog.String("ranking_path", string(resp.Stats.RankingPath)))

	return query, resp, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "research",
		Description: researchDescription,
	}, s.mcpResearchHandler)
	s.logger.Debug("Registered tool", slog.String("name", "research"))

	if s.history != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        "history",
			Description: historyDescription,
		}, s.mcpHistoryHandler)
		s.logger.Debug("Registered tool", slog.String("name", "history"))
	}
}

// mcpResearchHandler is the MCP SDK handler for the research tool.
func (s *Server) mcpResearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input ResearchInput) (
	*mcp.CallToolResult,
	ResearchOutput,
	error,
) {
	query, resp, err := s.research(ctx, input)
	if err != nil {
		return nil, ResearchOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatResearch(query, resp)}},
	}, toResearchOutput(query, resp), nil
}

// mcpHistoryHandler is the MCP SDK handler for the history tool.
func (s *Server) mcpHistoryHandler(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (
	*mcp.CallToolResult,
	HistoryOutput,
	error,
) {
	out, err := s.listHistory(ctx, input)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, out, nil
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
