package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/archonhq/archon/internal/session"
)

// SaveSession upserts an archived snapshot of the session. The full state is
// stored as JSON alongside the columns needed for listing.
func (s *Store) SaveSession(ctx context.Context, state session.State) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling session state: %w", err)
	}

	summary := state.Summary()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, created_at, updated_at, query, status, current_step, state_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			status = excluded.status,
			current_step = excluded.current_step,
			state_json = excluded.state_json`,
		state.ID, state.CreatedAt.UTC().Format(time.RFC3339), now,
		state.Query, summary.Status, string(state.CurrentStep), string(stateJSON),
	)
	return err
}

// GetSessionRecord returns one archived session by id.
func (s *Store) GetSessionRecord(id string) (SessionRecord, error) {
	var r SessionRecord
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, created_at, updated_at, query, status, current_step, state_json
		FROM sessions WHERE id = ?`, id,
	).Scan(&r.ID, &createdAt, &updatedAt, &r.Query, &r.Status, &r.CurrentStep, &r.StateJSON)
	if err == sql.ErrNoRows {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, err
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return SessionRecord{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return SessionRecord{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return r, nil
}

// GetSessionState deserializes the archived state of one session.
func (s *Store) GetSessionState(id string) (session.State, error) {
	record, err := s.GetSessionRecord(id)
	if err != nil {
		return session.State{}, err
	}
	var state session.State
	if err := json.Unmarshal([]byte(record.StateJSON), &state); err != nil {
		return session.State{}, fmt.Errorf("unmarshalling session state: %w", err)
	}
	return state, nil
}

// ListSessionRecords returns archived sessions, most recent first. StateJSON
// is omitted from listings.
func (s *Store) ListSessionRecords(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, created_at, updated_at, query, status, current_step
		FROM sessions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SessionRecord
	for rows.Next() {
		var r SessionRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &createdAt, &updatedAt, &r.Query, &r.Status, &r.CurrentStep); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if r.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
