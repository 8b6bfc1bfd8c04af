package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SessionRecord is the archived form of a workflow session. StateJSON holds
// the full serialized session state; the remaining columns exist for listing
// and filtering without deserializing.
type SessionRecord struct {
	ID          string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Query       string
	Status      string
	CurrentStep string
	StateJSON   string
}

// Content types accepted for requirement documents.
const (
	DocTypePDF  = "pdf"
	DocTypeHTML = "html"
	DocTypeText = "text"
)

// Requirement document extraction states.
const (
	DocPending   = "pending"
	DocExtracted = "extracted"
	DocFailed    = "failed"
)

// RequirementDoc is an uploaded requirements document. Raw holds the bytes
// as submitted; ExtractedText is filled by the ingestion worker.
type RequirementDoc struct {
	ID            string
	Title         string
	Source        string
	ContentType   string
	Raw           []byte
	ExtractedText string
	Status        string
	CreatedAt     time.Time
}

// Job is one queued unit of background work, claimed and retried by the
// ingestion worker.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
