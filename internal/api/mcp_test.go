package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/archonhq/archon/internal/session"
	"github.com/archonhq/archon/internal/workflow"
)

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("content = %d items, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestMCPRecommend(t *testing.T) {
	engine := &mockOrchestrator{
		status: session.Status{SessionID: "sess-1"},
		state:  session.State{ID: "sess-1", Query: "a web app"},
	}
	handler := mcpRecommend(MCPDeps{Engine: engine})

	result, err := handler(context.Background(), toolRequest(map[string]any{
		"query":   "a web app",
		"context": `{"team_size":"5"}`,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	if engine.lastQuery != "a web app" || engine.lastContext["team_size"] != "5" {
		t.Errorf("query/context = %q/%v", engine.lastQuery, engine.lastContext)
	}

	var state session.State
	if err := json.Unmarshal([]byte(resultText(t, result)), &state); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if state.ID != "sess-1" {
		t.Errorf("state = %+v", state)
	}
}

func TestMCPRecommendMissingQuery(t *testing.T) {
	handler := mcpRecommend(MCPDeps{Engine: &mockOrchestrator{}})

	result, err := handler(context.Background(), toolRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected a tool error")
	}
	if resultText(t, result) != "query is required" {
		t.Errorf("message = %q", resultText(t, result))
	}
}

func TestMCPRecommendInvalidContext(t *testing.T) {
	handler := mcpRecommend(MCPDeps{Engine: &mockOrchestrator{}})

	result, err := handler(context.Background(), toolRequest(map[string]any{
		"query":   "a web app",
		"context": "not json",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "invalid context JSON") {
		t.Errorf("result = %q", resultText(t, result))
	}
}

func TestMCPFeedback(t *testing.T) {
	engine := &mockOrchestrator{
		feedbackResult: workflow.FeedbackResult{FeedbackID: "fb-1", InsightsAdded: 1},
	}
	handler := mcpFeedback(MCPDeps{Engine: engine})

	result, err := handler(context.Background(), toolRequest(map[string]any{
		"session_id":        "sess-1",
		"recommendation_id": "rec-1",
		"rating":            4.5,
		"feedback_text":     "solid plan",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	if engine.lastFeedback.SessionID != "sess-1" || engine.lastFeedback.Rating != 4.5 {
		t.Errorf("feedback = %+v", engine.lastFeedback)
	}
	if engine.lastFeedback.Text != "solid plan" {
		t.Errorf("text = %q", engine.lastFeedback.Text)
	}

	var fr workflow.FeedbackResult
	if err := json.Unmarshal([]byte(resultText(t, result)), &fr); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if fr.FeedbackID != "fb-1" {
		t.Errorf("result = %+v", fr)
	}
}

func TestMCPFeedbackMissingRating(t *testing.T) {
	handler := mcpFeedback(MCPDeps{Engine: &mockOrchestrator{}})

	result, err := handler(context.Background(), toolRequest(map[string]any{
		"session_id": "sess-1",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || resultText(t, result) != "rating is required" {
		t.Errorf("result = %q", resultText(t, result))
	}
}

func TestMCPAddRequirements(t *testing.T) {
	docs := &mockDocIngestor{}
	handler := mcpAddRequirements(MCPDeps{Engine: &mockOrchestrator{}, Docs: docs})

	result, err := handler(context.Background(), toolRequest(map[string]any{
		"title":   "Requirements",
		"content": "must support postgres",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}

	if len(docs.savedDocs) != 1 {
		t.Fatalf("saved docs = %d, want 1", len(docs.savedDocs))
	}
	doc := docs.savedDocs[0]
	if doc.Source != "mcp" || string(doc.Raw) != "must support postgres" {
		t.Errorf("doc = %+v", doc)
	}
	if len(docs.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(docs.jobs))
	}
	if !strings.Contains(resultText(t, result), doc.ID) {
		t.Errorf("result %q does not reference the doc id", resultText(t, result))
	}
}

func TestMCPAddRequirementsWithoutDocStore(t *testing.T) {
	handler := mcpAddRequirements(MCPDeps{Engine: &mockOrchestrator{}})

	result, err := handler(context.Background(), toolRequest(map[string]any{
		"content": "text",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || resultText(t, result) != "document ingestion is not configured" {
		t.Errorf("result = %q", resultText(t, result))
	}
}

func TestMCPRecentSessionsResource(t *testing.T) {
	engine := &mockOrchestrator{
		sessionIDs: []string{"sess-1"},
		state:      session.State{ID: "sess-1", Query: "a web app", CurrentStep: session.StepCompleted},
	}
	handler := mcpResourceRecentSessions(MCPDeps{Engine: engine})

	var req mcp.ReadResourceRequest
	req.Params.URI = "sessions://recent"

	contents, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}

	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type = %T", contents[0])
	}
	if text.URI != "sessions://recent" || text.MIMEType != "application/json" {
		t.Errorf("contents = %+v", text)
	}

	var summaries []map[string]any
	if err := json.Unmarshal([]byte(text.Text), &summaries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(summaries) != 1 || summaries[0]["id"] != "sess-1" {
		t.Errorf("summaries = %v", summaries)
	}
	if summaries[0]["current_step"] != "completed" {
		t.Errorf("current_step = %v", summaries[0]["current_step"])
	}
}

func TestMCPRecentSessionsNewestFirstCapped(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := &mockOrchestrator{states: map[string]session.State{}}
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("sess-%02d", i)
		engine.sessionIDs = append(engine.sessionIDs, id)
		engine.states[id] = session.State{
			ID:        id,
			Query:     "a web app",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}
	handler := mcpResourceRecentSessions(MCPDeps{Engine: engine})

	var req mcp.ReadResourceRequest
	req.Params.URI = "sessions://recent"

	contents, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents)

	var summaries []map[string]any
	if err := json.Unmarshal([]byte(text.Text), &summaries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(summaries) != 10 {
		t.Fatalf("summaries = %d, want 10", len(summaries))
	}
	if summaries[0]["id"] != "sess-11" {
		t.Errorf("first = %v, want sess-11", summaries[0]["id"])
	}
	if summaries[9]["id"] != "sess-02" {
		t.Errorf("last = %v, want sess-02", summaries[9]["id"])
	}
}

func TestNewMCPServerRegisters(t *testing.T) {
	s := NewMCPServer(MCPDeps{Engine: &mockOrchestrator{}, Version: "test"})
	if s == nil {
		t.Fatal("expected a server")
	}
}
