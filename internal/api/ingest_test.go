package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/archonhq/archon/internal/ingest"
	"github.com/archonhq/archon/internal/storage"
)

type mockDocIngestor struct {
	saveErr    error
	enqueueErr error
	listErr    error
	docs       []storage.RequirementDoc

	savedDocs []storage.RequirementDoc
	jobs      []storage.Job
	lastLimit int
}

func (m *mockDocIngestor) SaveRequirementDoc(doc storage.RequirementDoc) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedDocs = append(m.savedDocs, doc)
	return nil
}

func (m *mockDocIngestor) EnqueueJob(job storage.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockDocIngestor) ListRequirementDocs(limit int) ([]storage.RequirementDoc, error) {
	m.lastLimit = limit
	return m.docs, m.listErr
}

func TestIngestText(t *testing.T) {
	docs := &mockDocIngestor{}
	handler := newTestHandler(&mockOrchestrator{}, docs)

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type":    "text",
		"title":   "Requirements",
		"content": "the system must scale",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	if len(docs.savedDocs) != 1 {
		t.Fatalf("saved docs = %d, want 1", len(docs.savedDocs))
	}
	doc := docs.savedDocs[0]
	if doc.ContentType != storage.DocTypeText || string(doc.Raw) != "the system must scale" {
		t.Errorf("doc = %+v", doc)
	}
	if doc.ID == "" {
		t.Error("doc id not assigned")
	}

	if len(docs.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(docs.jobs))
	}
	job := docs.jobs[0]
	if job.Type != ingest.JobTypeExtractText {
		t.Errorf("job type = %q", job.Type)
	}
	var payload struct {
		DocID string `json:"doc_id"`
	}
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if payload.DocID != doc.ID {
		t.Errorf("payload doc_id = %q, want %q", payload.DocID, doc.ID)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["id"] != doc.ID || resp["status"] != "queued" {
		t.Errorf("response = %v", resp)
	}
}

func TestIngestDefaultsToText(t *testing.T) {
	docs := &mockDocIngestor{}
	handler := newTestHandler(&mockOrchestrator{}, docs)

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"content": "untyped content",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if docs.savedDocs[0].ContentType != storage.DocTypeText {
		t.Errorf("content type = %q, want text", docs.savedDocs[0].ContentType)
	}
}

func TestIngestPDF(t *testing.T) {
	docs := &mockDocIngestor{}
	handler := newTestHandler(&mockOrchestrator{}, docs)

	raw := []byte("%PDF-1.4 fake content")
	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type":    "pdf",
		"content": base64.StdEncoding.EncodeToString(raw),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	doc := docs.savedDocs[0]
	if doc.ContentType != storage.DocTypePDF {
		t.Errorf("content type = %q, want pdf", doc.ContentType)
	}
	if string(doc.Raw) != string(raw) {
		t.Error("base64 content not decoded")
	}
}

func TestIngestPDFInvalidBase64(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, &mockDocIngestor{})

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type":    "pdf",
		"content": "!!! not base64 !!!",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	msg, _ := decodeError(t, rec)
	if msg != "invalid base64 content" {
		t.Errorf("message = %q", msg)
	}
}

func TestIngestURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>remote requirements</p></body></html>"))
	}))
	defer page.Close()

	docs := &mockDocIngestor{}
	handler := newTestHandler(&mockOrchestrator{}, docs)

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type": "url",
		"url":  page.URL,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	doc := docs.savedDocs[0]
	if doc.ContentType != storage.DocTypeHTML {
		t.Errorf("content type = %q, want html", doc.ContentType)
	}
	// Title and source default to the url.
	if doc.Title != page.URL || doc.Source != page.URL {
		t.Errorf("title/source = %q/%q, want the url", doc.Title, doc.Source)
	}
}

func TestIngestURLFetchFails(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer page.Close()

	handler := newTestHandler(&mockOrchestrator{}, &mockDocIngestor{})

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type": "url",
		"url":  page.URL,
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestIngestUnsupportedType(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, &mockDocIngestor{})

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type":    "docx",
		"content": "data",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestMissingContent(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, &mockDocIngestor{})

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type": "text",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	msg, _ := decodeError(t, rec)
	if msg != "at least one of content or url is required" {
		t.Errorf("message = %q", msg)
	}
}

func TestIngestWithoutDocStore(t *testing.T) {
	handler := newTestHandler(&mockOrchestrator{}, nil)

	rec := doRequest(t, handler, http.MethodPost, "/ingest", testToken, map[string]any{
		"type":    "text",
		"content": "data",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	rec = doRequest(t, handler, http.MethodGet, "/docs", testToken, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("docs status = %d, want 503", rec.Code)
	}
}

func TestListDocs(t *testing.T) {
	docs := &mockDocIngestor{docs: []storage.RequirementDoc{
		{
			ID:            "doc-1",
			Title:         "Requirements",
			ContentType:   storage.DocTypeText,
			Raw:           []byte("raw bytes"),
			ExtractedText: "extracted",
			Status:        storage.DocExtracted,
			CreatedAt:     time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
	handler := newTestHandler(&mockOrchestrator{}, docs)

	rec := doRequest(t, handler, http.MethodGet, "/docs?limit=5", testToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if docs.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", docs.lastLimit)
	}

	var views []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("views = %d, want 1", len(views))
	}
	view := views[0]
	if view["id"] != "doc-1" || view["status"] != "extracted" {
		t.Errorf("view = %v", view)
	}
	if view["text_chars"] != float64(len("extracted")) {
		t.Errorf("text_chars = %v", view["text_chars"])
	}
	if _, ok := view["raw"]; ok {
		t.Error("raw bytes leaked into the listing")
	}
}

func TestListDocsLimitBounds(t *testing.T) {
	docs := &mockDocIngestor{}
	handler := newTestHandler(&mockOrchestrator{}, docs)

	doRequest(t, handler, http.MethodGet, "/docs", testToken, nil)
	if docs.lastLimit != 20 {
		t.Errorf("default limit = %d, want 20", docs.lastLimit)
	}

	doRequest(t, handler, http.MethodGet, "/docs?limit=500", testToken, nil)
	if docs.lastLimit != 100 {
		t.Errorf("capped limit = %d, want 100", docs.lastLimit)
	}

	doRequest(t, handler, http.MethodGet, "/docs?limit=oops", testToken, nil)
	if docs.lastLimit != 20 {
		t.Errorf("invalid limit = %d, want the default", docs.lastLimit)
	}
}
