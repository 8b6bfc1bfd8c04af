package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/archonhq/archon/internal/ingest"
	"github.com/archonhq/archon/internal/session"
	"github.com/archonhq/archon/internal/storage"
	"github.com/archonhq/archon/internal/workflow"
)

// recentSessionLimit caps the sessions://recent resource payload.
const recentSessionLimit = 10

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Engine  Orchestrator
	Docs    DocIngestor // optional; if nil, add_requirements reports an error
	Version string
}

// NewMCPServer creates an MCP server with all archon tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"archon",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("archon — cloud architecture recommendations for React/Java applications on AWS and Azure, adapting to your feedback over time."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("recommend_architecture",
			mcp.WithDescription("Analyze an infrastructure request and produce scored cloud architecture recommendations with resources, costs and deployment artifacts."),
			mcp.WithString("query", mcp.Description("The infrastructure requirements in natural language"), mcp.Required()),
			mcp.WithString("context", mcp.Description("Optional JSON object with extra context (team size, budget, preferred provider)")),
		),
		mcpRecommend(deps),
	)

	s.AddTool(
		mcp.NewTool("provide_feedback",
			mcp.WithDescription("Rate a recommendation from a previous run. Ratings feed the learning engine and shift future recommendations."),
			mcp.WithString("session_id", mcp.Description("Session id from recommend_architecture"), mcp.Required()),
			mcp.WithString("recommendation_id", mcp.Description("Recommendation being rated")),
			mcp.WithNumber("rating", mcp.Description("Rating from 1 to 5"), mcp.Required()),
			mcp.WithString("feedback_text", mcp.Description("Optional free-form feedback")),
		),
		mcpFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("learning_summary",
			mcp.WithDescription("Summarize what has been learned from feedback so far: rating statistics, top insights and provider preferences."),
		),
		mcpLearningSummary(deps),
	)

	s.AddTool(
		mcp.NewTool("add_requirements",
			mcp.WithDescription("Store a requirements document; its text is folded into future analyses."),
			mcp.WithString("title", mcp.Description("Title for the document")),
			mcp.WithString("content", mcp.Description("Plain text requirements content"), mcp.Required()),
		),
		mcpAddRequirements(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"sessions://recent",
			"Recent Sessions",
			mcp.WithResourceDescription("Summaries of the most recent recommendation sessions"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentSessions(deps),
	)

	return s
}

func mcpRecommend(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		var queryContext map[string]any
		if raw := req.GetString("context", ""); raw != "" {
			if err := json.Unmarshal([]byte(raw), &queryContext); err != nil {
				return mcpError(fmt.Sprintf("invalid context JSON: %v", err)), nil
			}
		}

		status, err := deps.Engine.Run(ctx, query, queryContext)
		if err != nil {
			return mcpError(fmt.Sprintf("run failed: %v", err)), nil
		}
		state, err := deps.Engine.SessionState(status.SessionID)
		if err != nil {
			return mcpError(fmt.Sprintf("loading session: %v", err)), nil
		}

		b, err := json.Marshal(state)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal session: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpFeedback(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		rating, err := req.RequireFloat("rating")
		if err != nil {
			return mcpError("rating is required"), nil
		}

		result, err := deps.Engine.IngestFeedback(ctx, workflow.FeedbackRequest{
			SessionID:        sessionID,
			RecommendationID: req.GetString("recommendation_id", ""),
			Rating:           rating,
			Text:             req.GetString("feedback_text", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("feedback failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpLearningSummary(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Engine.LearningSummary())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal summary: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddRequirements(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Docs == nil {
			return mcpError("document ingestion is not configured"), nil
		}

		content, err := req.RequireString("content")
		if err != nil {
			return mcpError("content is required"), nil
		}
		title := req.GetString("title", "")

		doc := storage.RequirementDoc{
			ID:          uuid.New().String(),
			Title:       title,
			Source:      "mcp",
			ContentType: storage.DocTypeText,
			Raw:         []byte(content),
			CreatedAt:   time.Now().UTC(),
		}
		if err := deps.Docs.SaveRequirementDoc(doc); err != nil {
			return mcpError(fmt.Sprintf("failed to save: %v", err)), nil
		}

		payload, err := json.Marshal(map[string]string{"doc_id": doc.ID})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal job payload: %v", err)), nil
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        ingest.JobTypeExtractText,
			PayloadJSON: string(payload),
		}
		if err := deps.Docs.EnqueueJob(job); err != nil {
			return mcpError(fmt.Sprintf("saved doc but failed to queue extraction: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Stored requirements doc %s", doc.ID)), nil
	}
}

func mcpResourceRecentSessions(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		type sessionSummary struct {
			ID          string `json:"id"`
			CreatedAt   string `json:"created_at"`
			Query       string `json:"query"`
			Status      string `json:"status"`
			CurrentStep string `json:"current_step"`
		}

		ids := deps.Engine.SessionIDs()
		states := make([]session.State, 0, len(ids))
		for _, id := range ids {
			state, err := deps.Engine.SessionState(id)
			if err != nil {
				continue
			}
			states = append(states, state)
		}

		// Newest first; ids come back in map order.
		sort.Slice(states, func(i, j int) bool {
			return states[i].CreatedAt.After(states[j].CreatedAt)
		})
		if len(states) > recentSessionLimit {
			states = states[:recentSessionLimit]
		}

		summaries := make([]sessionSummary, 0, len(states))
		for _, state := range states {
			query := state.Query
			if utf8.RuneCountInString(query) > 200 {
				runes := []rune(query)
				query = string(runes[:200]) + "..."
			}
			summaries = append(summaries, sessionSummary{
				ID:          state.ID,
				CreatedAt:   state.CreatedAt.Format(time.RFC3339),
				Query:       query,
				Status:      state.Summary().Status,
				CurrentStep: string(state.CurrentStep),
			})
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal sessions: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
