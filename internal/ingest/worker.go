// Package ingest extracts text from uploaded requirement documents via the
// SQLite job queue.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/archonhq/archon/internal/storage"
)

// JobTypeExtractText is the queue type for document extraction jobs.
const JobTypeExtractText = "extract_text"

// DocStore abstracts the job queue and document operations.
type DocStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetRequirementDoc(id string) (storage.RequirementDoc, error)
	UpdateDocText(id, text string) error
	MarkDocFailed(id string) error
}

// Worker processes extract_text jobs from the SQLite job queue.
type Worker struct {
	store  DocStore
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store DocStore, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single extract_text job. Returns true if a
// job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeExtractText})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	docID, err := w.processJob(ctx, job)
	if err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		// The final attempt takes the document with it.
		if docID != "" && job.Attempts+1 >= job.MaxAttempts {
			if markErr := w.store.MarkDocFailed(docID); markErr != nil {
				w.logger.Error("failed to mark document as failed", "doc_id", docID, "error", markErr)
			}
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type extractPayload struct {
	DocID string `json:"doc_id"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) (string, error) {
	var payload extractPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return "", fmt.Errorf("parsing payload: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return payload.DocID, err
	}

	doc, err := w.store.GetRequirementDoc(payload.DocID)
	if err != nil {
		return payload.DocID, fmt.Errorf("loading requirement doc %s: %w", payload.DocID, err)
	}

	text, err := ExtractText(doc)
	if err != nil {
		return doc.ID, fmt.Errorf("extracting text: %w", err)
	}

	if err := w.store.UpdateDocText(doc.ID, text); err != nil {
		return doc.ID, fmt.Errorf("updating extracted text: %w", err)
	}

	w.logger.Info("document extracted", "doc_id", doc.ID, "content_type", doc.ContentType, "chars", len(text))
	return doc.ID, nil
}
