// Package catalog maps a requirements analysis onto concrete cloud
// resources with monthly cost estimates. Each provider is backed by a
// static adapter; the Enricher fans out across providers and attaches the
// combined resource plan to recommendations.
package catalog

import (
	"github.com/archonhq/archon/internal/session"
)

// Adapter produces the recommended resources of one cloud provider for a
// given analysis. Implementations must be deterministic.
type Adapter interface {
	Provider() session.Provider
	Resources(analysis session.Analysis) []session.CloudResource
}

// TotalCost sums the monthly cost estimates of a resource plan.
func TotalCost(resources []session.CloudResource) float64 {
	var total float64
	for _, r := range resources {
		total += r.EstimatedCost
	}
	return total
}

// wantsCache reports whether the plan should include a managed cache tier.
func wantsCache(a session.Analysis) bool {
	return a.PerformanceNeeds || a.ScalabilityNeeds
}
