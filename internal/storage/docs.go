package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveRequirementDoc inserts an uploaded requirements document in pending
// state.
func (s *Store) SaveRequirementDoc(doc RequirementDoc) error {
	status := doc.Status
	if status == "" {
		status = DocPending
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO requirement_docs (id, title, source, content_type, raw, extracted_text, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Source, doc.ContentType, doc.Raw,
		doc.ExtractedText, status, createdAt.Format(time.RFC3339),
	)
	return err
}

// GetRequirementDoc returns one requirement document by id.
func (s *Store) GetRequirementDoc(id string) (RequirementDoc, error) {
	var d RequirementDoc
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, title, source, content_type, raw, extracted_text, status, created_at
		FROM requirement_docs WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.Source, &d.ContentType, &d.Raw, &d.ExtractedText, &d.Status, &createdAt)
	if err == sql.ErrNoRows {
		return RequirementDoc{}, ErrNotFound
	}
	if err != nil {
		return RequirementDoc{}, err
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return RequirementDoc{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return d, nil
}

// UpdateDocText records the extraction result for a document and marks it
// extracted.
func (s *Store) UpdateDocText(id, text string) error {
	res, err := s.db.Exec(`UPDATE requirement_docs SET extracted_text = ?, status = ? WHERE id = ?`,
		text, DocExtracted, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkDocFailed records a permanent extraction failure.
func (s *Store) MarkDocFailed(id string) error {
	res, err := s.db.Exec(`UPDATE requirement_docs SET status = ? WHERE id = ?`, DocFailed, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRequirementDocs returns documents, most recent first. Raw bytes are
// omitted from listings.
func (s *Store) ListRequirementDocs(limit int) ([]RequirementDoc, error) {
	rows, err := s.db.Query(`
		SELECT id, title, source, content_type, extracted_text, status, created_at
		FROM requirement_docs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RequirementDoc
	for rows.Next() {
		var d RequirementDoc
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Source, &d.ContentType, &d.ExtractedText, &d.Status, &createdAt); err != nil {
			return nil, err
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// RecentDocTexts returns the extracted text of the most recently ingested
// documents, skipping those still pending or failed. Serves the analyzer's
// document source.
func (s *Store) RecentDocTexts(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT extracted_text FROM requirement_docs
		WHERE status = ? AND extracted_text != ''
		ORDER BY created_at DESC LIMIT ?`, DocExtracted, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}
