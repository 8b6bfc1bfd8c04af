package scoring

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/archonhq/archon/internal/feedback"
	"github.com/archonhq/archon/internal/session"
)

func newTestStore(t *testing.T) *feedback.Store {
	t.Helper()
	return feedback.NewStore(filepath.Join(t.TempDir(), "learning_data.json"))
}

func TestWeightsDefault(t *testing.T) {
	s := New(newTestStore(t), nil)

	weights := s.Weights(nil)
	for _, category := range []string{"cost", "performance", "scalability", "security", "complexity"} {
		if weights[category] != 1.0 {
			t.Errorf("weight[%s] = %v, want 1.0", category, weights[category])
		}
	}
}

func TestWeightsFromInsights(t *testing.T) {
	store := newTestStore(t)
	store.AddInsights([]feedback.Insight{
		{ID: "i1", Category: feedback.CategoryCostOptimization, ConfidenceScore: 0.8},
		{ID: "i2", Category: feedback.CategoryCostOptimization, ConfidenceScore: 0.8},
		{ID: "i3", Category: feedback.CategoryPerformanceOptimization, ConfidenceScore: 0.7},
		{ID: "i4", Category: feedback.CategoryCloudProviderPreference, ConfidenceScore: 0.6},
	})

	s := New(store, nil)
	weights := s.Weights(nil)

	// 1.0 + 2 * 0.8*0.5
	if diff := weights["cost"] - 1.8; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("weight[cost] = %v, want 1.8", weights["cost"])
	}
	// 1.0 + 0.7*0.5
	if weights["performance"] != 1.35 {
		t.Errorf("weight[performance] = %v, want 1.35", weights["performance"])
	}
	// Provider insights do not shift category weights.
	if weights["scalability"] != 1.0 {
		t.Errorf("weight[scalability] = %v, want 1.0", weights["scalability"])
	}
}

func TestRescoreClampsAtOne(t *testing.T) {
	store := newTestStore(t)
	store.AddInsights([]feedback.Insight{
		{ID: "i1", Category: feedback.CategoryCostOptimization, ConfidenceScore: 1.0},
		{ID: "i2", Category: feedback.CategoryCostOptimization, ConfidenceScore: 1.0},
	})

	s := New(store, nil)
	recs := []session.Recommendation{
		{ID: "a", Description: "cost optimized serverless stack", ConfidenceScore: 0.9},
	}

	got := s.Rescore(recs, nil)
	// 0.9 * 2.0 clamps to 1.0.
	if got[0].ConfidenceScore != 1.0 {
		t.Errorf("confidence = %v, want 1.0", got[0].ConfidenceScore)
	}
}

func TestRescoreSortsDescendingStable(t *testing.T) {
	store := newTestStore(t)
	store.AddInsights([]feedback.Insight{
		{ID: "i1", Category: feedback.CategoryPerformanceOptimization, ConfidenceScore: 0.7},
	})

	s := New(store, nil)
	recs := []session.Recommendation{
		{ID: "a", Description: "balanced architecture", ConfidenceScore: 0.70},
		{ID: "b", Description: "high performance containers", ConfidenceScore: 0.60},
		{ID: "c", Description: "another balanced option", ConfidenceScore: 0.70},
	}

	got := s.Rescore(recs, nil)

	// b: 0.60 * 1.35 = 0.81 moves first; a and c tie at 0.70 and keep order.
	if got[0].ID != "b" {
		t.Errorf("first = %q, want b", got[0].ID)
	}
	if got[1].ID != "a" || got[2].ID != "c" {
		t.Errorf("tie order = %q, %q, want a, c", got[1].ID, got[2].ID)
	}
}

func TestRescoreProviderPreference(t *testing.T) {
	store := newTestStore(t)
	entry := feedback.Entry{
		ID:      "fb-1",
		Rating:  5.0,
		Context: map[string]any{"cloud_provider": "aws"},
	}
	if err := store.Record(entry); err != nil {
		t.Fatalf("record: %v", err)
	}

	s := New(store, nil)
	recs := []session.Recommendation{
		{
			ID:              "a",
			Description:     "managed platform",
			ConfidenceScore: 0.5,
			Resources: []session.CloudResource{
				{ResourceType: "compute", Provider: session.AWS},
				{ResourceType: "db", Provider: session.AWS},
				{ResourceType: "cdn", Provider: session.Azure},
			},
		},
	}

	got := s.Rescore(recs, nil)

	// avg 5.0 -> p=1.0 -> multiplier 1.2.
	want := 0.5 * 1.2
	if diff := got[0].ConfidenceScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence = %v, want %v", got[0].ConfidenceScore, want)
	}
}

func TestRescoreMarksInsightsApplied(t *testing.T) {
	store := newTestStore(t)
	store.AddInsights([]feedback.Insight{
		{ID: "i1", Category: feedback.CategoryCostOptimization, ConfidenceScore: 0.8},
	})

	s := New(store, nil)
	recs := []session.Recommendation{
		{ID: "a", Description: "cost friendly stack", ConfidenceScore: 0.5},
		{ID: "b", Description: "another cost saver", ConfidenceScore: 0.5},
	}
	s.Rescore(recs, nil)

	insights := store.Insights()
	// Applied once per rescore pass, not once per recommendation.
	if insights[0].AppliedCount != 1 {
		t.Errorf("applied count = %d, want 1", insights[0].AppliedCount)
	}
}

func TestRescoreEmptyAndUntouched(t *testing.T) {
	s := New(newTestStore(t), nil)

	if got := s.Rescore(nil, nil); len(got) != 0 {
		t.Errorf("rescore(nil) = %v, want empty", got)
	}

	recs := []session.Recommendation{
		{ID: "a", Description: "plain architecture", ConfidenceScore: 0.7},
	}
	got := s.Rescore(recs, nil)
	if got[0].ConfidenceScore != 0.7 {
		t.Errorf("confidence = %v, want unchanged 0.7", got[0].ConfidenceScore)
	}
}

func TestRescoreErrorLeavesInputUntouched(t *testing.T) {
	store := newTestStore(t)
	store.AddInsights([]feedback.Insight{
		{ID: "i1", Category: feedback.CategoryCostOptimization, ConfidenceScore: 0.8},
	})

	s := New(store, nil)
	recs := []session.Recommendation{
		{ID: "a", Description: "cost friendly stack", ConfidenceScore: 0.5},
		{ID: "b", Description: "broken candidate", ConfidenceScore: math.NaN()},
	}

	got := s.Rescore(recs, nil)

	// The non-finite score aborts the pass; the fallback must hand back the
	// original slice with no partial adjustments and the original order.
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("order = %q, %q, want a, b", got[0].ID, got[1].ID)
	}
	if got[0].ConfidenceScore != 0.5 {
		t.Errorf("confidence = %v, want unchanged 0.5", got[0].ConfidenceScore)
	}
	if recs[0].ConfidenceScore != 0.5 {
		t.Errorf("input confidence = %v, want unchanged 0.5", recs[0].ConfidenceScore)
	}
	if !math.IsNaN(recs[1].ConfidenceScore) {
		t.Errorf("input confidence = %v, want NaN preserved", recs[1].ConfidenceScore)
	}
}

func TestDominantProvider(t *testing.T) {
	tests := []struct {
		name      string
		resources []session.CloudResource
		want      string
	}{
		{"empty", nil, ""},
		{"single", []session.CloudResource{{Provider: session.AWS}}, "aws"},
		{"majority", []session.CloudResource{
			{Provider: session.Azure},
			{Provider: session.AWS},
			{Provider: session.Azure},
		}, "azure"},
		{"tie goes to first seen", []session.CloudResource{
			{Provider: session.Azure},
			{Provider: session.AWS},
		}, "azure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dominantProvider(tt.resources); got != tt.want {
				t.Errorf("dominantProvider = %q, want %q", got, tt.want)
			}
		})
	}
}
