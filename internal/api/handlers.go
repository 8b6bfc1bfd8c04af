// Package api exposes the orchestrator over REST and MCP. The REST surface
// carries recommendation runs, feedback, learning summaries, session lookup
// and requirement document ingestion.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/archonhq/archon/internal/learning"
	"github.com/archonhq/archon/internal/session"
	"github.com/archonhq/archon/internal/workflow"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Orchestrator abstracts the workflow engine for the API layer.
type Orchestrator interface {
	Run(ctx context.Context, query string, queryContext map[string]any) (session.Status, error)
	Resume(ctx context.Context, id string) (session.Status, error)
	IngestFeedback(ctx context.Context, req workflow.FeedbackRequest) (workflow.FeedbackResult, error)
	SessionSummary(id string) (session.Status, error)
	SessionState(id string) (session.State, error)
	SessionIDs() []string
	LearningSummary() learning.Summary
}

// Deps holds dependencies for the REST handler.
type Deps struct {
	Engine     Orchestrator
	Docs       DocIngestor // optional; if nil, /ingest returns 503
	Token      string
	HTTPClient *http.Client
	Version    string
}

// NewHandler returns the REST API handler. Health and the service banner are
// unauthenticated; everything else requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot(deps))
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/recommendations", handleRecommend(deps))
		r.Post("/feedback", handleFeedback(deps))
		r.Get("/learning", handleLearning(deps))
		r.Get("/sessions", handleListSessions(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Post("/sessions/{id}/resume", handleResumeSession(deps))
		r.Post("/ingest", handleIngest(deps))
		r.Get("/docs", handleListDocs(deps))
	})

	return r
}

func handleRoot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"service": "archon",
			"version": deps.Version,
		})
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// RecommendRequest asks for architecture recommendations.
type RecommendRequest struct {
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
}

func handleRecommend(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req RecommendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		status, err := deps.Engine.Run(r.Context(), req.Query, req.Context)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "run failed: %v", err)
			return
		}

		state, err := deps.Engine.SessionState(status.SessionID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading session: %v", err)
			return
		}
		writeJSON(w, state)
	}
}

func handleFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req workflow.FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.SessionID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "session_id is required")
			return
		}

		result, err := deps.Engine.IngestFeedback(r.Context(), req)
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		writeJSON(w, result)
	}
}

func handleLearning(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Engine.LearningSummary())
	}
}

func handleListSessions(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 200)

		ids := deps.Engine.SessionIDs()
		summaries := make([]session.Status, 0, len(ids))
		for _, id := range ids {
			summary, err := deps.Engine.SessionSummary(id)
			if err != nil {
				continue
			}
			summaries = append(summaries, summary)
		}

		// Newest first; ids come back in map order.
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		})
		if len(summaries) > limit {
			summaries = summaries[:limit]
		}
		writeJSON(w, summaries)
	}
}

func handleGetSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		state, err := deps.Engine.SessionState(id)
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading session: %v", err)
			return
		}
		writeJSON(w, state)
	}
}

func handleResumeSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		status, err := deps.Engine.Resume(r.Context(), id)
		if errors.Is(err, session.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "resume failed: %v", err)
			return
		}
		writeJSON(w, status)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
