package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/archonhq/archon/internal/ingest"
	"github.com/archonhq/archon/internal/storage"
)

const maxIngestBodySize = 10 << 20 // 10MB
const maxURLFetchSize = 5 << 20    // 5MB

// DocIngestor abstracts document persistence and job queueing for the API
// layer.
type DocIngestor interface {
	SaveRequirementDoc(doc storage.RequirementDoc) error
	EnqueueJob(job storage.Job) error
	ListRequirementDocs(limit int) ([]storage.RequirementDoc, error)
}

// IngestRequest uploads a requirements document. Type selects how content is
// interpreted: "text" and "html" carry content inline, "pdf" carries it
// base64-encoded, "url" fetches the page at URL.
type IngestRequest struct {
	Source  string `json:"source"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
}

func handleIngest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Docs == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "document ingestion is not configured")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxIngestBodySize)
		defer r.Body.Close()

		var req IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Content == "" && req.URL == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "at least one of content or url is required")
			return
		}
		if req.Type == "" {
			req.Type = storage.DocTypeText
		}

		var raw []byte
		contentType := req.Type
		switch req.Type {
		case "url":
			body, err := fetchURL(r.Context(), deps.HTTPClient, req.URL)
			if err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "failed to fetch url: %v", err)
				return
			}
			raw = body
			contentType = storage.DocTypeHTML
			if req.Title == "" {
				req.Title = req.URL
			}
			if req.Source == "" {
				req.Source = req.URL
			}

		case storage.DocTypePDF:
			decoded, err := base64.StdEncoding.DecodeString(req.Content)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid base64 content")
				return
			}
			raw = decoded

		case storage.DocTypeText, storage.DocTypeHTML:
			raw = []byte(req.Content)

		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unsupported type %q", req.Type)
			return
		}

		doc := storage.RequirementDoc{
			ID:          uuid.New().String(),
			Title:       req.Title,
			Source:      req.Source,
			ContentType: contentType,
			Raw:         raw,
			CreatedAt:   time.Now().UTC(),
		}
		if err := deps.Docs.SaveRequirementDoc(doc); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}

		payload, err := json.Marshal(map[string]string{"doc_id": doc.ID})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
			return
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        ingest.JobTypeExtractText,
			PayloadJSON: string(payload),
		}
		if err := deps.Docs.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
			return
		}

		writeJSON(w, map[string]string{
			"id":     doc.ID,
			"status": "queued",
		})
	}
}

func fetchURL(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("url returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxURLFetchSize))
}

// docView is the listing form of a requirement document. Raw bytes stay out
// of API responses.
type docView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source,omitempty"`
	ContentType string `json:"content_type"`
	Status      string `json:"status"`
	TextChars   int    `json:"text_chars"`
	CreatedAt   string `json:"created_at"`
}

func handleListDocs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Docs == nil {
			httpError(w, http.StatusServiceUnavailable, "api_error", "document ingestion is not configured")
			return
		}

		limit := parseIntParam(r, "limit", 20, 100)
		docs, err := deps.Docs.ListRequirementDocs(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}

		views := make([]docView, 0, len(docs))
		for _, d := range docs {
			views = append(views, docView{
				ID:          d.ID,
				Title:       d.Title,
				Source:      d.Source,
				ContentType: d.ContentType,
				Status:      d.Status,
				TextChars:   len(d.ExtractedText),
				CreatedAt:   d.CreatedAt.Format(time.RFC3339),
			})
		}
		writeJSON(w, views)
	}
}
