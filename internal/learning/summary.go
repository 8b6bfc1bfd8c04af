package learning

import (
	"fmt"
	"sort"
	"time"

	"github.com/archonhq/archon/internal/feedback"
)

// topInsightsCap bounds how many insights a summary carries.
const topInsightsCap = 10

// RatingStats aggregates the recorded ratings.
type RatingStats struct {
	Count         int     `json:"total_count"`
	Mean          float64 `json:"average_rating"`
	PositiveCount int     `json:"positive_count"`
	NegativeCount int     `json:"negative_count"`
	NeutralCount  int     `json:"neutral_count"`
}

// Summary is the presentation-layer view of the current learning state. It
// is recomputed in full from the feedback log on every call, so two calls
// without an intervening record always agree.
type Summary struct {
	TotalEntries            int                         `json:"total_feedback_entries"`
	RatingStats             RatingStats                 `json:"feedback_statistics"`
	RatingDistribution      map[string]int              `json:"rating_distribution,omitempty"`
	TopInsights             []feedback.Insight          `json:"top_insights"`
	Patterns                map[string]feedback.Pattern `json:"preference_patterns"`
	PositiveAspects         []string                    `json:"common_positive_aspects,omitempty"`
	NegativeAspects         []string                    `json:"common_negative_aspects,omitempty"`
	ProviderPreferences     map[string]float64          `json:"preferred_cloud_providers,omitempty"`
	ArchitecturePreferences map[string]float64          `json:"architecture_preferences,omitempty"`
	CostSensitivity         float64                     `json:"cost_sensitivity"`
	LastUpdated             time.Time                   `json:"last_updated"`
}

// Summarize aggregates the store's full log into a Summary. Pure aggregation:
// no hidden incremental state, so the result is always recomputable from the
// stored log.
func (e *Engine) Summarize(store *feedback.Store) Summary {
	entries := store.Entries()
	insights := store.Insights()

	return Summary{
		TotalEntries:            len(entries),
		RatingStats:             ratingStats(entries),
		RatingDistribution:      ratingDistribution(entries),
		TopInsights:             topInsights(insights),
		Patterns:                store.Patterns(),
		PositiveAspects:         e.aggregateAspects(entries, feedback.Positive),
		NegativeAspects:         e.aggregateAspects(entries, feedback.Negative),
		ProviderPreferences:     ProviderPreferences(entries),
		ArchitecturePreferences: contextAverages(entries, "architecture_type"),
		CostSensitivity:         e.costSensitivity(entries),
		LastUpdated:             time.Now().UTC(),
	}
}

func ratingStats(entries []feedback.Entry) RatingStats {
	stats := RatingStats{Count: len(entries)}
	if len(entries) == 0 {
		return stats
	}
	var sum float64
	for _, e := range entries {
		sum += e.Rating
		switch e.Type {
		case feedback.Positive:
			stats.PositiveCount++
		case feedback.Negative:
			stats.NegativeCount++
		default:
			stats.NeutralCount++
		}
	}
	stats.Mean = sum / float64(len(entries))
	return stats
}

// ratingDistribution buckets ratings into unit-wide ranges ("4-5": 3).
func ratingDistribution(entries []feedback.Entry) map[string]int {
	if len(entries) == 0 {
		return nil
	}
	dist := make(map[string]int)
	for _, e := range entries {
		lo := int(e.Rating)
		dist[fmt.Sprintf("%d-%d", lo, lo+1)]++
	}
	return dist
}

// topInsights sorts by confidence descending, ties keeping insertion order,
// and caps the result.
func topInsights(insights []feedback.Insight) []feedback.Insight {
	sorted := append([]feedback.Insight(nil), insights...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ConfidenceScore > sorted[j].ConfidenceScore
	})
	if len(sorted) > topInsightsCap {
		sorted = sorted[:topInsightsCap]
	}
	return sorted
}

func (e *Engine) aggregateAspects(entries []feedback.Entry, class feedback.Classification) []string {
	seen := make(map[string]bool)
	var aspects []string
	for _, entry := range entries {
		if entry.Type != class || entry.Text == "" {
			continue
		}
		var found []string
		if class == feedback.Positive {
			found = e.classifier.PositiveAspects(entry.Text)
		} else {
			found = e.classifier.NegativeAspects(entry.Text)
		}
		for _, a := range found {
			if !seen[a] {
				seen[a] = true
				aspects = append(aspects, a)
			}
		}
	}
	sort.Strings(aspects)
	return aspects
}

// ProviderPreferences averages ratings per cloud provider named in entry
// context. Exposed for the adaptive scorer.
func ProviderPreferences(entries []feedback.Entry) map[string]float64 {
	return contextAverages(entries, "cloud_provider")
}

func contextAverages(entries []feedback.Entry, key string) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, e := range entries {
		v, ok := e.Context[key].(string)
		if !ok || v == "" {
			continue
		}
		sums[v] += e.Rating
		counts[v]++
	}
	if len(sums) == 0 {
		return nil
	}
	prefs := make(map[string]float64, len(sums))
	for k, sum := range sums {
		prefs[k] = sum / float64(counts[k])
	}
	return prefs
}

// costSensitivity scales inversely with the average rating of cost-related
// feedback: poorly rated cost feedback means a cost-sensitive user base.
// Defaults to moderate (0.5) when no cost feedback exists.
func (e *Engine) costSensitivity(entries []feedback.Entry) float64 {
	var sum float64
	var count int
	for _, entry := range entries {
		if entry.Text != "" && e.classifier.Mentions(entry.Text, "cost") {
			sum += entry.Rating
			count++
		}
	}
	if count == 0 {
		return 0.5
	}
	sensitivity := (5.0 - sum/float64(count)) / 5.0
	if sensitivity < 0 {
		return 0
	}
	if sensitivity > 1 {
		return 1
	}
	return sensitivity
}
