package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/archonhq/archon/internal/feedback"
	"github.com/archonhq/archon/internal/learning"
	"github.com/archonhq/archon/internal/session"
)

// Per-insight weight contribution and provider preference damping. Fixed
// heuristic constants.
const (
	insightWeightFactor      = 0.5
	providerPreferenceFactor = 0.2
)

// Scorer adjusts recommendation confidence scores using learned insights and
// provider preferences from the feedback store.
type Scorer struct {
	store      *feedback.Store
	classifier learning.AspectClassifier
	logger     *slog.Logger
}

// New creates a Scorer over the given store. A nil classifier selects the
// default keyword classifier.
func New(store *feedback.Store, classifier learning.AspectClassifier) *Scorer {
	if classifier == nil {
		classifier = learning.KeywordClassifier{}
	}
	return &Scorer{store: store, classifier: classifier, logger: slog.Default()}
}

// Weights computes per-category preference weights. Every category starts at
// 1.0; each stored cost or performance insight adds confidence*0.5 to its
// category. Weights are not clamped above and are deterministic for a given
// insight set.
func (s *Scorer) Weights(queryContext map[string]any) map[string]float64 {
	weights := map[string]float64{
		"cost":        1.0,
		"performance": 1.0,
		"scalability": 1.0,
		"security":    1.0,
		"complexity":  1.0,
	}
	for _, insight := range s.store.Insights() {
		switch insight.Category {
		case feedback.CategoryCostOptimization:
			weights["cost"] += insight.ConfidenceScore * insightWeightFactor
		case feedback.CategoryPerformanceOptimization:
			weights["performance"] += insight.ConfidenceScore * insightWeightFactor
		}
	}
	return weights
}

// Rescore returns a copy of recs with adjusted confidence scores,
// stable-sorted by adjusted score descending; equal scores keep their prior
// relative order. The input slice is never mutated.
//
// Scoring is never fatal: on any internal error the input is returned
// unmodified with a logged warning.
func (s *Scorer) Rescore(recs []session.Recommendation, queryContext map[string]any) []session.Recommendation {
	if len(recs) == 0 {
		return recs
	}

	adjusted, err := s.rescore(recs, queryContext)
	if err != nil {
		s.logger.Warn("rescoring failed, returning recommendations unmodified", "error", err)
		return recs
	}
	return adjusted
}

func (s *Scorer) rescore(recs []session.Recommendation, queryContext map[string]any) ([]session.Recommendation, error) {
	weights := s.Weights(queryContext)
	prefs := learning.ProviderPreferences(s.store.Entries())

	out := append([]session.Recommendation(nil), recs...)

	var applied []string
	for i := range out {
		rec := &out[i]

		if s.classifier.Mentions(rec.Description, "cost") {
			rec.ConfidenceScore = clamp01(rec.ConfidenceScore * weights["cost"])
			applied = append(applied, feedback.CategoryCostOptimization)
		}
		if s.classifier.Mentions(rec.Description, "performance") {
			rec.ConfidenceScore = clamp01(rec.ConfidenceScore * weights["performance"])
			applied = append(applied, feedback.CategoryPerformanceOptimization)
		}

		if provider := dominantProvider(rec.Resources); provider != "" {
			if avg, ok := prefs[provider]; ok {
				// Normalize the 1..5 average rating into a 0..1 preference score.
				p := avg / 5.0
				rec.ConfidenceScore = clamp01(rec.ConfidenceScore * (1.0 + p*providerPreferenceFactor))
				applied = append(applied, feedback.CategoryCloudProviderPreference)
			}
		}

		if math.IsNaN(rec.ConfidenceScore) || math.IsInf(rec.ConfidenceScore, 0) {
			return nil, fmt.Errorf("adjusted confidence for %q is not finite", rec.ID)
		}
	}

	s.store.MarkApplied(dedupe(applied)...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConfidenceScore > out[j].ConfidenceScore
	})
	return out, nil
}

// dominantProvider attributes a recommendation to the provider contributing
// the most resources; ties go to the provider seen first.
func dominantProvider(resources []session.CloudResource) string {
	counts := make(map[session.Provider]int)
	var best session.Provider
	bestCount := 0
	for _, r := range resources {
		counts[r.Provider]++
		if counts[r.Provider] > bestCount {
			best = r.Provider
			bestCount = counts[r.Provider]
		}
	}
	return string(best)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
