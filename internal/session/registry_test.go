package session

import (
	"errors"
	"testing"
)

func TestRegistryCreateAndWith(t *testing.T) {
	r := NewRegistry()
	st := r.Create("query", nil)

	err := r.With(st.ID, func(s *State) error {
		s.AddWarning("w")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap, err := r.Snapshot(st.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Warnings) != 1 || snap.Warnings[0] != "w" {
		t.Errorf("warnings = %v, want [w]", snap.Warnings)
	}
}

func TestRegistryUnknownID(t *testing.T) {
	r := NewRegistry()

	err := r.With("missing", func(s *State) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("With error = %v, want ErrNotFound", err)
	}

	if _, err := r.Snapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Snapshot error = %v, want ErrNotFound", err)
	}
}

func TestRegistryWithPropagatesError(t *testing.T) {
	r := NewRegistry()
	st := r.Create("q", nil)

	sentinel := errors.New("boom")
	if err := r.With(st.ID, func(s *State) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel", err)
	}
}

func TestSnapshotIsolatedFromMutation(t *testing.T) {
	r := NewRegistry()
	st := r.Create("q", nil)

	r.With(st.ID, func(s *State) error {
		s.Recommendations = []Recommendation{{ID: "rec-1", Title: "A"}}
		return nil
	})

	snap, err := r.Snapshot(st.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.With(st.ID, func(s *State) error {
		s.Recommendations[0].Title = "mutated"
		s.Recommendations = append(s.Recommendations, Recommendation{ID: "rec-2"})
		return nil
	})

	if len(snap.Recommendations) != 1 {
		t.Fatalf("snapshot recommendations = %d, want 1", len(snap.Recommendations))
	}
	if snap.Recommendations[0].Title != "A" {
		t.Errorf("snapshot title = %q, want A", snap.Recommendations[0].Title)
	}
}

func TestRegistryIDs(t *testing.T) {
	r := NewRegistry()
	a := r.Create("a", nil)
	b := r.Create("b", nil)

	ids := r.IDs()
	if len(ids) != 2 {
		t.Fatalf("ids length = %d, want 2", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[a.ID] || !seen[b.ID] {
		t.Errorf("ids = %v, want both %s and %s", ids, a.ID, b.ID)
	}
}
