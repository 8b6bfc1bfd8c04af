package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/archonhq/archon/internal/learning"
	"github.com/archonhq/archon/internal/session"
	"github.com/archonhq/archon/internal/workflow"
)

const testToken = "test-token"

type mockOrchestrator struct {
	status         session.Status
	state          session.State
	statuses       map[string]session.Status // per-id override for SessionSummary
	states         map[string]session.State  // per-id override for SessionState
	runErr         error
	resumeErr      error
	stateErr       error
	feedbackResult workflow.FeedbackResult
	feedbackErr    error
	sessionIDs     []string
	summary        learning.Summary

	lastQuery    string
	lastContext  map[string]any
	lastFeedback workflow.FeedbackRequest
	lastResumeID string
}

func (m *mockOrchestrator) Run(ctx context.Context, query string, queryContext map[string]any) (session.Status, error) {
	m.lastQuery = query
	m.lastContext = queryContext
	return m.status, m.runErr
}

func (m *mockOrchestrator) Resume(ctx context.Context, id string) (session.Status, error) {
	m.lastResumeID = id
	return m.status, m.resumeErr
}

func (m *mockOrchestrator) IngestFeedback(ctx context.Context, req workflow.FeedbackRequest) (workflow.FeedbackResult, error) {
	m.lastFeedback = req
	return m.feedbackResult, m.feedbackErr
}

func (m *mockOrchestrator) SessionSummary(id string) (session.Status, error) {
	if s, ok := m.statuses[id]; ok {
		return s, m.stateErr
	}
	return m.status, m.stateErr
}

func (m *mockOrchestrator) SessionState(id string) (session.State, error) {
	if s, ok := m.states[id]; ok {
		return s, m.stateErr
	}
	return m.state, m.stateErr
}

func (m *mockOrchestrator) SessionIDs() []string { return m.sessionIDs }

func (m *mockOrchestrator) LearningSummary() learning.Summary { return m.summary }

func newTestHandler(engine *mockOrchestrator, docs DocIngestor) http.Handler {
	return NewHandler(Deps{
		Engine:  engine,
		Docs:    docs,
		Token:   testToken,
		Version: "test",
	})
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (msg, errType string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding error body %q: %v", rec.Body.String(), err)
	}
	return envelope.Error.Message, envelope.Error.Type
}

func TestAuthRequired(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	for _, tc := range []struct {
		method, path string
	}{
		{http.MethodPost, "/recommendations"},
		{http.MethodPost, "/feedback"},
		{http.MethodGet, "/learning"},
		{http.MethodGet, "/sessions"},
		{http.MethodGet, "/sessions/abc"},
		{http.MethodPost, "/sessions/abc/resume"},
		{http.MethodPost, "/ingest"},
		{http.MethodGet, "/docs"},
	} {
		rec := doRequest(t, handler, tc.method, tc.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", tc.method, tc.path, rec.Code)
		}

		rec = doRequest(t, handler, tc.method, tc.path, "wrong-token", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: status = %d, want 401", tc.method, tc.path, rec.Code)
		}
		_, errType := decodeError(t, rec)
		if errType != "authentication_error" {
			t.Errorf("error type = %q, want authentication_error", errType)
		}
	}
}

func TestHealthUnauthenticated(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRootBanner(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var banner map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &banner); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if banner["service"] != "archon" || banner["version"] != "test" {
		t.Errorf("banner = %v", banner)
	}
}

func TestRecommend(t *testing.T) {
	engine := &mockOrchestrator{
		status: session.Status{SessionID: "sess-1"},
		state: session.State{
			ID:          "sess-1",
			Query:       "a web app",
			CurrentStep: session.StepCompleted,
		},
	}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodPost, "/recommendations", testToken, map[string]any{
		"query":   "a web app",
		"context": map[string]any{"team_size": "5"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if engine.lastQuery != "a web app" {
		t.Errorf("query = %q", engine.lastQuery)
	}
	if engine.lastContext["team_size"] != "5" {
		t.Errorf("context = %v", engine.lastContext)
	}

	var state session.State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if state.ID != "sess-1" || state.CurrentStep != session.StepCompleted {
		t.Errorf("state = %+v", state)
	}
}

func TestRecommendValidation(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	rec := doRequest(t, handler, http.MethodPost, "/recommendations", testToken, map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	msg, errType := decodeError(t, rec)
	if msg != "query is required" || errType != "invalid_request_error" {
		t.Errorf("error = %q/%q", msg, errType)
	}
}

func TestRecommendInvalidBody(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/recommendations", bytes.NewReader([]byte("not json")))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFeedback(t *testing.T) {
	engine := &mockOrchestrator{
		feedbackResult: workflow.FeedbackResult{
			FeedbackID:     "fb-1",
			Classification: "positive",
			InsightsAdded:  2,
			CurrentStep:    session.StepFeedbackProcessed,
		},
	}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodPost, "/feedback", testToken, map[string]any{
		"session_id":        "sess-1",
		"recommendation_id": "rec-1",
		"rating":            4.5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if engine.lastFeedback.SessionID != "sess-1" || engine.lastFeedback.Rating != 4.5 {
		t.Errorf("feedback request = %+v", engine.lastFeedback)
	}

	var result workflow.FeedbackResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if result.FeedbackID != "fb-1" || result.InsightsAdded != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestFeedbackMissingSessionID(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	rec := doRequest(t, handler, http.MethodPost, "/feedback", testToken, map[string]any{"rating": 4.0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	msg, _ := decodeError(t, rec)
	if msg != "session_id is required" {
		t.Errorf("message = %q", msg)
	}
}

func TestFeedbackSessionNotFound(t *testing.T) {
	engine := &mockOrchestrator{feedbackErr: session.ErrNotFound}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodPost, "/feedback", testToken, map[string]any{
		"session_id": "missing",
		"rating":     4.0,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	_, errType := decodeError(t, rec)
	if errType != "not_found" {
		t.Errorf("error type = %q", errType)
	}
}

func TestLearning(t *testing.T) {
	engine := &mockOrchestrator{summary: learning.Summary{TotalEntries: 7}}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodGet, "/learning", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if body["total_feedback_entries"] != float64(7) {
		t.Errorf("total_feedback_entries = %v", body["total_feedback_entries"])
	}
}

func TestListSessions(t *testing.T) {
	engine := &mockOrchestrator{
		sessionIDs: []string{"a", "b"},
		status:     session.Status{Status: "completed"},
	}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodGet, "/sessions", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var summaries []session.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("summaries = %d, want 2", len(summaries))
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := &mockOrchestrator{
		sessionIDs: []string{"b", "d", "a", "c"},
		statuses: map[string]session.Status{
			"a": {SessionID: "a", CreatedAt: base},
			"b": {SessionID: "b", CreatedAt: base.Add(1 * time.Minute)},
			"c": {SessionID: "c", CreatedAt: base.Add(2 * time.Minute)},
			"d": {SessionID: "d", CreatedAt: base.Add(3 * time.Minute)},
		},
	}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodGet, "/sessions", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var summaries []session.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	want := []string{"d", "c", "b", "a"}
	if len(summaries) != len(want) {
		t.Fatalf("summaries = %d, want %d", len(summaries), len(want))
	}
	for i, id := range want {
		if summaries[i].SessionID != id {
			t.Errorf("summaries[%d] = %q, want %q", i, summaries[i].SessionID, id)
		}
	}
}

func TestListSessionsLimit(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := &mockOrchestrator{
		sessionIDs: []string{"a", "b", "c", "d", "e"},
		statuses:   map[string]session.Status{},
	}
	for i, id := range engine.sessionIDs {
		engine.statuses[id] = session.Status{SessionID: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
	}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodGet, "/sessions?limit=2", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var summaries []session.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].SessionID != "e" || summaries[1].SessionID != "d" {
		t.Errorf("sessions = %q, %q, want e, d", summaries[0].SessionID, summaries[1].SessionID)
	}

	// A junk limit falls back to the default and returns everything.
	rec = doRequest(t, handler, http.MethodGet, "/sessions?limit=bogus", testToken, nil)
	summaries = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(summaries) != 5 {
		t.Errorf("summaries = %d, want 5", len(summaries))
	}
}

func TestListSessionsEmpty(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	rec := doRequest(t, handler, http.MethodGet, "/sessions", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	// Empty list, not null.
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want an empty array", body)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	engine := &mockOrchestrator{stateErr: session.ErrNotFound}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodGet, "/sessions/missing", testToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestResumeSession(t *testing.T) {
	engine := &mockOrchestrator{
		status: session.Status{SessionID: "sess-1", Status: "completed"},
	}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodPost, "/sessions/sess-1/resume", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if engine.lastResumeID != "sess-1" {
		t.Errorf("resume id = %q", engine.lastResumeID)
	}

	var status session.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if status.Status != "completed" {
		t.Errorf("status = %+v", status)
	}
}

func TestResumeSessionNotFound(t *testing.T) {
	engine := &mockOrchestrator{resumeErr: session.ErrNotFound}
	handler := newTestHandler(engine, nil)

	rec := doRequest(t, handler, http.MethodPost, "/sessions/missing/resume", testToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
