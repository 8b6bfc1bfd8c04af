package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/archonhq/archon/internal/feedback"
	"github.com/archonhq/archon/internal/learning"
	"github.com/archonhq/archon/internal/session"
)

// FeedbackRequest is a user's rating of one recommendation.
type FeedbackRequest struct {
	SessionID        string         `json:"session_id"`
	RecommendationID string         `json:"recommendation_id"`
	Rating           float64        `json:"rating"`
	Text             string         `json:"feedback_text,omitempty"`
	Preferences      map[string]any `json:"preferences,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
}

// FeedbackResult reports what ingestion recorded and derived.
type FeedbackResult struct {
	FeedbackID     string                  `json:"feedback_id"`
	Classification feedback.Classification `json:"classification"`
	InsightsAdded  int                     `json:"insights_added"`
	CurrentStep    session.Step            `json:"current_step"`
}

// IngestFeedback records feedback against a session's recommendation,
// derives learning insights from it, and moves the session to the
// feedback_processed step so a Resume re-enters analysis with the updated
// learning state.
func (e *Engine) IngestFeedback(ctx context.Context, req FeedbackRequest) (FeedbackResult, error) {
	if err := feedback.ValidateRating(req.Rating); err != nil {
		return FeedbackResult{}, err
	}

	var result FeedbackResult
	err := e.registry.With(req.SessionID, func(s *session.State) error {
		if req.RecommendationID != "" && s.Recommendation(req.RecommendationID) == nil {
			return fmt.Errorf("recommendation %q not found in session %q", req.RecommendationID, s.ID)
		}

		entry := feedback.Entry{
			ID:               uuid.New().String(),
			SessionID:        s.ID,
			RecommendationID: req.RecommendationID,
			Rating:           req.Rating,
			Text:             req.Text,
			Preferences:      req.Preferences,
			Context:          req.Context,
			Timestamp:        time.Now().UTC(),
		}
		if err := e.store.Record(entry); err != nil {
			return err
		}

		insights := e.learner.DeriveInsights(entry)
		e.store.AddInsights(insights)

		s.RecordFeedback(entry.ID, req.RecommendationID, req.Rating)
		s.CurrentStep = session.StepFeedbackProcessed

		result = FeedbackResult{
			FeedbackID:     entry.ID,
			Classification: feedback.Classify(req.Rating),
			InsightsAdded:  len(insights),
			CurrentStep:    s.CurrentStep,
		}
		e.logger.Info("feedback processed",
			"session_id", s.ID,
			"feedback_id", entry.ID,
			"rating", req.Rating,
			"classification", result.Classification,
			"insights", len(insights))

		if e.archive != nil {
			if err := e.archive.SaveSession(ctx, *s); err != nil {
				e.logger.Warn("failed to archive session", "session_id", s.ID, "error", err)
			}
		}
		return nil
	})
	return result, err
}

// SessionSummary returns the presentation view of one session.
func (e *Engine) SessionSummary(id string) (session.Status, error) {
	snap, err := e.registry.Snapshot(id)
	if err != nil {
		return session.Status{}, err
	}
	return snap.Summary(), nil
}

// SessionState returns a read-only snapshot of a session's full state.
func (e *Engine) SessionState(id string) (session.State, error) {
	return e.registry.Snapshot(id)
}

// SessionIDs lists the ids of all live sessions.
func (e *Engine) SessionIDs() []string {
	return e.registry.IDs()
}

// LearningSummary aggregates the feedback store into the presentation-layer
// learning view.
func (e *Engine) LearningSummary() learning.Summary {
	return e.learner.Summarize(e.store)
}
