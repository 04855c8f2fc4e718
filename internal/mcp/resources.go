package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HistoryURI is the resource URI for recent research runs.
const HistoryURI = "amanscout://history"

// listHistory reads recent runs. limit defaults to 20 and is capped at 100.
func (s *Server) listHistory(ctx context.Context, in HistoryInput) (HistoryOutput, error) {
	runs, err := s.history.List(ctx, clampLimit(in.Limit, 20, 1, 100))
	if err != nil {
		return HistoryOutput{}, MapError(err)
	}

	out := HistoryOutput{Runs: make([]RunOutput, 0, len(runs))}
	for _, r := range runs {
		out.Runs = append(out.Runs, RunOutput{
			ID:            r.ID,
			Query:         r.Query,
			EnhancedQuery: r.EnhancedQuery,
			Required:      r.Required,
			Accepted:      r.Accepted,
			Optimized:     r.Optimized,
			CharsUsed:     r.CharsUsed,
			RankingPath:   r.RankingPath,
			DurationMS:    r.DurationMS,
			CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

// registerHistoryResource registers the history resource.
func (s *Server) registerHistoryResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "history",
			URI:         HistoryURI,
			Description: "Recent research runs",
			MIMEType:    "application/json",
		},
		s.makeHistoryHandler(),
	)
}

// makeHistoryHandler creates a handler for the history resource.
func (s *Server) makeHistoryHandler() mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		out, err := s.listHistory(ctx, HistoryInput{})
		if err != nil {
			return nil, err
		}

		content, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return nil, MapError(err)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      HistoryURI,
					MIMEType: "application/json",
					Text:     string(content),
				},
			},
		}, nil
	}
}
