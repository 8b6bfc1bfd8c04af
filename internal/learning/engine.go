package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/archonhq/archon/internal/feedback"
)

// Rule confidences are fixed heuristic constants, not tunables: there is no
// learning-rate decay in this design.
const (
	costInsightConfidence        = 0.8
	performanceInsightConfidence = 0.7
	providerInsightConfidence    = 0.6
)

// positiveThreshold gates all insight rules: only clearly positive feedback
// produces preference insights.
const positiveThreshold = 4.0

// Engine turns feedback entries into learning insights. It is stateless:
// every derivation is a pure function of the entry (the classifier carries
// no state either).
type Engine struct {
	classifier AspectClassifier
}

// NewEngine creates an Engine with the given classifier; nil selects the
// default keyword classifier.
func NewEngine(classifier AspectClassifier) *Engine {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Engine{classifier: classifier}
}

// DeriveInsights evaluates all insight rules against one entry. Rules are
// independent: every applicable rule fires, so a single entry can emit
// several insights. Each insight cites the triggering entry id as evidence.
func (e *Engine) DeriveInsights(entry feedback.Entry) []feedback.Insight {
	if entry.Rating < positiveThreshold {
		return nil
	}

	var insights []feedback.Insight
	now := time.Now().UTC()

	if e.classifier.Mentions(flattenContext(entry.Context), "cost") {
		insights = append(insights, feedback.Insight{
			ID:              uuid.New().String(),
			Category:        feedback.CategoryCostOptimization,
			Description:     "Users prefer cost-effective solutions",
			ConfidenceScore: costInsightConfidence,
			SupportingEvidence: []string{
				fmt.Sprintf("Positive feedback on cost-effective recommendation: %s", entry.ID),
			},
			CreatedAt: now,
		})
	}

	if e.classifier.Mentions(entry.Text, "performance") {
		insights = append(insights, feedback.Insight{
			ID:              uuid.New().String(),
			Category:        feedback.CategoryPerformanceOptimization,
			Description:     "Users value high-performance architectures",
			ConfidenceScore: performanceInsightConfidence,
			SupportingEvidence: []string{
				fmt.Sprintf("Positive feedback on performance: %s", entry.ID),
			},
			CreatedAt: now,
		})
	}

	if provider, ok := entry.Context["cloud_provider"].(string); ok && provider != "" {
		insights = append(insights, feedback.Insight{
			ID:              uuid.New().String(),
			Category:        feedback.CategoryCloudProviderPreference,
			Description:     fmt.Sprintf("Users show preference for %s solutions", provider),
			ConfidenceScore: providerInsightConfidence,
			SupportingEvidence: []string{
				fmt.Sprintf("Positive feedback for %s: %s", provider, entry.ID),
			},
			CreatedAt: now,
		})
	}

	return insights
}
