package feedback

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// contextKeyPrefix namespaces pattern keys built from entry context maps, so
// a preference key and a context key with the same name stay distinct.
const contextKeyPrefix = "context_"

// Store is the process-wide feedback log plus derived preference patterns
// and accumulated learning insights. It outlives any single session.
//
// All appends are serialized; readers get copied snapshots so they never
// observe a partially recorded entry.
type Store struct {
	mu       sync.RWMutex
	path     string
	entries  []Entry
	insights []Insight
	patterns map[string]*Pattern
	logger   *slog.Logger
}

// document is the durable form of the store.
type document struct {
	FeedbackHistory    []Entry             `json:"feedback_history"`
	LearningInsights   []Insight           `json:"learning_insights"`
	PreferencePatterns map[string]*Pattern `json:"preference_patterns"`
	SavedAt            time.Time           `json:"saved_at"`
}

// NewStore creates a store backed by the JSON document at path. A missing
// file yields an empty store; a malformed one is logged and ignored rather
// than crashing startup.
func NewStore(path string) *Store {
	s := &Store{
		path:     path,
		patterns: make(map[string]*Pattern),
		logger:   slog.Default(),
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read learning data, starting empty", "path", s.path, "error", err)
		}
		return
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("malformed learning data, starting empty", "path", s.path, "error", err)
		return
	}
	s.entries = doc.FeedbackHistory
	s.insights = doc.LearningInsights
	if doc.PreferencePatterns != nil {
		s.patterns = doc.PreferencePatterns
	}
	s.logger.Info("learning data loaded",
		"feedback_count", len(s.entries),
		"insights_count", len(s.insights),
	)
}

// Record validates and appends an entry to the log, classifies it from its
// rating, updates the incremental preference patterns, and persists. A
// persistence failure is logged but never fails the record: the in-memory
// store stays authoritative.
func (s *Store) Record(e Entry) error {
	if err := ValidateRating(e.Rating); err != nil {
		return err
	}
	e.Type = Classify(e.Rating)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, e)
	s.applyPatterns(e)
	s.persistLocked()
	return nil
}

// applyPatterns appends one (value, rating) pair per preference and context
// key of the entry. Called with the write lock held.
func (s *Store) applyPatterns(e Entry) {
	for _, key := range sortedKeys(e.Preferences) {
		s.appendPattern(key, e.Preferences[key], e.Rating)
	}
	for _, key := range sortedKeys(e.Context) {
		s.appendPattern(contextKeyPrefix+key, e.Context[key], e.Rating)
	}
}

func (s *Store) appendPattern(key string, value any, rating float64) {
	p, ok := s.patterns[key]
	if !ok {
		p = &Pattern{}
		s.patterns[key] = p
	}
	p.Values = append(p.Values, value)
	p.Ratings = append(p.Ratings, rating)
}

// AddInsights appends derived insights and persists.
func (s *Store) AddInsights(insights []Insight) {
	if len(insights) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insights = append(s.insights, insights...)
	s.persistLocked()
}

// MarkApplied increments AppliedCount on every insight of the given
// categories. Counts are monotonically non-decreasing.
func (s *Store) MarkApplied(categories ...string) {
	if len(categories) == 0 {
		return
	}
	wanted := make(map[string]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.insights {
		if wanted[s.insights[i].Category] {
			s.insights[i].AppliedCount++
		}
	}
}

// Entries returns a snapshot copy of the feedback log in record order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

// Insights returns a snapshot copy of all insights in insertion order.
func (s *Store) Insights() []Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Insight(nil), s.insights...)
}

// Patterns returns a snapshot copy of all preference patterns.
func (s *Store) Patterns() map[string]Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Pattern, len(s.patterns))
	for k, p := range s.patterns {
		out[k] = Pattern{
			Values:  append([]any(nil), p.Values...),
			Ratings: append([]float64(nil), p.Ratings...),
		}
	}
	return out
}

// PatternsFor rebuilds the pattern for one key by scanning every recorded
// entry's preference and context maps in entry order.
func (s *Store) PatternsFor(key string) Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var p Pattern
	for _, e := range s.entries {
		if v, ok := e.Preferences[key]; ok {
			p.Values = append(p.Values, v)
			p.Ratings = append(p.Ratings, e.Rating)
		}
		if v, ok := e.Context[key]; ok {
			p.Values = append(p.Values, v)
			p.Ratings = append(p.Ratings, e.Rating)
		}
	}
	return p
}

// Persist writes the durable document. Loading the written document and
// persisting again reproduces the same logical content apart from SavedAt.
func (s *Store) Persist() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeDocument()
}

// persistLocked persists under an already-held write lock, demoting any
// failure to a warning.
func (s *Store) persistLocked() {
	if err := s.writeDocument(); err != nil {
		s.logger.Warn("failed to persist learning data, in-memory store remains authoritative",
			"path", s.path, "error", err)
	}
}

func (s *Store) writeDocument() error {
	if s.path == "" {
		return nil
	}
	doc := document{
		FeedbackHistory:    s.entries,
		LearningInsights:   s.insights,
		PreferencePatterns: s.patterns,
		SavedAt:            time.Now().UTC(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling learning data: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating learning data dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing learning data: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
