package feedback

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRating is returned when a rating falls outside the 1..5 scale.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// Classification buckets a rating into positive, neutral or negative.
type Classification string

const (
	Positive Classification = "positive"
	Neutral  Classification = "neutral"
	Negative Classification = "negative"
)

// Classify derives the classification from a rating. It is a pure function:
// re-deriving it from the same rating always yields the same result, so the
// stored value can never drift from the rating it was computed from.
func Classify(rating float64) Classification {
	switch {
	case rating >= 4.0:
		return Positive
	case rating <= 2.0:
		return Negative
	default:
		return Neutral
	}
}

// ValidateRating rejects ratings outside the 1..5 scale.
func ValidateRating(rating float64) error {
	if rating < 1.0 || rating > 5.0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidRating, rating)
	}
	return nil
}

// Entry is one recorded piece of user feedback. Entries are immutable once
// recorded; the log is append-only.
type Entry struct {
	ID               string         `json:"feedback_id"`
	SessionID        string         `json:"session_id"`
	RecommendationID string         `json:"recommendation_id"`
	Rating           float64        `json:"user_rating"`
	Text             string         `json:"feedback_text,omitempty"`
	Type             Classification `json:"feedback_type"`
	Preferences      map[string]any `json:"user_preferences,omitempty"`
	Context          map[string]any `json:"context,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// Insight is a derived, evidence-backed learning conclusion. Insights are
// immutable except AppliedCount, which grows each time the adaptive scorer
// applies the insight.
type Insight struct {
	ID                 string    `json:"insight_id"`
	Category           string    `json:"category"`
	Description        string    `json:"description"`
	ConfidenceScore    float64   `json:"confidence_score"`
	SupportingEvidence []string  `json:"supporting_evidence"`
	CreatedAt          time.Time `json:"created_at"`
	AppliedCount       int       `json:"applied_count"`
}

// Insight categories emitted by the learning engine. The set is open:
// additional categories may appear in persisted data.
const (
	CategoryCostOptimization        = "cost_optimization"
	CategoryPerformanceOptimization = "performance_optimization"
	CategoryCloudProviderPreference = "cloud_provider_preference"
)

// Pattern is the aggregated (value, rating) history for one preference or
// context key. Values and Ratings are parallel: index i of Values was rated
// Ratings[i].
type Pattern struct {
	Values  []any     `json:"values"`
	Ratings []float64 `json:"ratings"`
}
