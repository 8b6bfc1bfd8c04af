package session

// Step identifies how far a session has progressed through the pipeline.
// Steps only move forward along the workflow transition table, with a single
// re-entry edge from StepFeedbackProcessed back to StepAnalysis.
type Step string

const (
	StepAnalysis                 Step = "analysis"
	StepRequirementsAnalyzed     Step = "requirements_analyzed"
	StepRecommendationsGenerated Step = "recommendations_generated"
	StepRecommendationSelected   Step = "recommendation_selected"
	StepImplementationGenerated  Step = "implementation_generated"
	StepCompleted                Step = "completed"
	StepFeedbackProcessed        Step = "feedback_processed"
)

// Provider is a supported cloud provider.
type Provider string

const (
	AWS   Provider = "aws"
	Azure Provider = "azure"
)

// Priority levels for requirements.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Requirement is one structured requirement extracted from the user query.
type Requirement struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
}

// CloudResource is a single provider-specific resource attached to a
// recommendation. Immutable once attached.
type CloudResource struct {
	ResourceType  string         `json:"resource_type"`
	Provider      Provider       `json:"provider"`
	Configuration map[string]any `json:"configuration"`
	EstimatedCost float64        `json:"estimated_cost,omitempty"`
}

// Recommendation is one candidate architecture proposal. FeedbackScore is
// the only field mutated after creation (by feedback ingestion); nil means
// the recommendation has never been rated. ConfidenceScore may additionally
// be adjusted by the adaptive scorer before the recommendation enters
// session state.
type Recommendation struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	ConfidenceScore     float64         `json:"confidence_score"`
	Resources           []CloudResource `json:"resources"`
	ImplementationSteps []string        `json:"implementation_steps"`
	EstimatedCost       float64         `json:"estimated_cost,omitempty"`
	FeedbackScore       *float64        `json:"feedback_score,omitempty"`
}

// Template is a generated application template assembled from the selected
// recommendation's resources.
type Template struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"` // frontend, backend
	Framework      string          `json:"framework"`
	CloudResources []CloudResource `json:"cloud_resources"`
	Configuration  map[string]any  `json:"configuration"`
}

// FeedbackRef records one feedback submission within a session.
type FeedbackRef struct {
	FeedbackID       string  `json:"feedback_id"`
	RecommendationID string  `json:"recommendation_id"`
	Rating           float64 `json:"rating"`
}
