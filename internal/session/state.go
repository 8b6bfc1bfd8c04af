package session

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is the structured result of requirements analysis. The workflow
// reads only the enumerated fields; collaborator-specific payload goes into
// Extra.
type Analysis struct {
	ApplicationType    string         `json:"application_type"`
	Complexity         string         `json:"complexity"`
	ScalabilityNeeds   bool           `json:"scalability_needs"`
	PerformanceNeeds   bool           `json:"performance_needs"`
	SecurityNeeds      bool           `json:"security_needs"`
	BudgetSensitive    bool           `json:"budget_sensitive"`
	DatabaseNeeds      string         `json:"database_needs,omitempty"`
	IntegrationNeeds   []string       `json:"integration_needs,omitempty"`
	PreferredProviders []Provider     `json:"preferred_providers,omitempty"`
	Extra              map[string]any `json:"extra,omitempty"`
}

// State holds everything produced while processing one user query. A State
// is owned by exactly one in-flight Run or IngestFeedback call at a time;
// the registry enforces the single-writer discipline.
type State struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Query        string        `json:"query"`
	Context      map[string]any `json:"context,omitempty"`
	Requirements []Requirement `json:"requirements"`

	Analysis        *Analysis        `json:"analysis,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`

	// SelectedID is a weak reference into Recommendations; empty when no
	// recommendation has been selected.
	SelectedID string `json:"selected_id,omitempty"`

	// Artifacts maps provider name to generated configuration files
	// (filename -> content).
	Artifacts map[Provider]map[string]string `json:"artifacts,omitempty"`

	Templates []Template `json:"templates,omitempty"`

	FeedbackHistory []FeedbackRef `json:"feedback_history"`

	CurrentStep Step     `json:"current_step"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
}

// New creates the initial state for a user query. The session starts at
// StepAnalysis.
func New(query string, queryContext map[string]any) *State {
	return &State{
		ID:          uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
		Query:       query,
		Context:     queryContext,
		CurrentStep: StepAnalysis,
	}
}

// AddError appends a message to the error log. Errors accumulate and are
// never cleared mid-run.
func (s *State) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// AddWarning appends a message to the warning log.
func (s *State) AddWarning(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

// Selected resolves the weak selected-recommendation reference. Returns nil
// when nothing is selected or the id no longer resolves.
func (s *State) Selected() *Recommendation {
	if s.SelectedID == "" {
		return nil
	}
	return s.Recommendation(s.SelectedID)
}

// Recommendation looks up a recommendation by id.
func (s *State) Recommendation(id string) *Recommendation {
	for i := range s.Recommendations {
		if s.Recommendations[i].ID == id {
			return &s.Recommendations[i]
		}
	}
	return nil
}

// RecordFeedback appends a feedback reference and mirrors the rating onto
// the target recommendation's feedback score.
func (s *State) RecordFeedback(feedbackID, recommendationID string, rating float64) {
	s.FeedbackHistory = append(s.FeedbackHistory, FeedbackRef{
		FeedbackID:       feedbackID,
		RecommendationID: recommendationID,
		Rating:           rating,
	})
	if rec := s.Recommendation(recommendationID); rec != nil {
		score := rating
		rec.FeedbackScore = &score
	}
}

// Status summarizes the session for the presentation layer.
type Status struct {
	SessionID            string    `json:"session_id"`
	Status               string    `json:"status"`
	CurrentStep          Step      `json:"current_step"`
	RecommendationsCount int       `json:"recommendations_count"`
	SelectedID           string    `json:"selected_id,omitempty"`
	TemplatesCount       int       `json:"templates_count"`
	ErrorsCount          int       `json:"errors_count"`
	WarningsCount        int       `json:"warnings_count"`
	CreatedAt            time.Time `json:"created_at"`
}

// Summary builds the presentation-layer status view of the session.
func (s *State) Summary() Status {
	status := "in_progress"
	switch {
	case len(s.Errors) > 0:
		status = "failed"
	case s.CurrentStep == StepCompleted:
		status = "completed"
	}
	return Status{
		SessionID:            s.ID,
		Status:               status,
		CurrentStep:          s.CurrentStep,
		RecommendationsCount: len(s.Recommendations),
		SelectedID:           s.SelectedID,
		TemplatesCount:       len(s.Templates),
		ErrorsCount:          len(s.Errors),
		WarningsCount:        len(s.Warnings),
		CreatedAt:            s.CreatedAt,
	}
}
