package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archonhq/archon/internal/session"
	"golang.org/x/sync/errgroup"
)

// Enricher attaches per-provider resource plans to recommendations.
type Enricher struct {
	adapters []Adapter
	logger   *slog.Logger
}

// NewEnricher creates an Enricher over the given adapters. Adapter order
// determines the order resources appear in each recommendation.
func NewEnricher(adapters ...Adapter) *Enricher {
	return &Enricher{adapters: adapters, logger: slog.Default()}
}

// Plan computes the resource plan of every adapter concurrently. Result
// order follows adapter order regardless of completion order.
func (e *Enricher) Plan(ctx context.Context, analysis session.Analysis) ([][]session.CloudResource, error) {
	plans := make([][]session.CloudResource, len(e.adapters))
	g, gCtx := errgroup.WithContext(ctx)

	for i, adapter := range e.adapters {
		i, adapter := i, adapter
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			plans[i] = adapter.Resources(analysis)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("planning resources: %w", err)
	}
	return plans, nil
}

// Enrich populates each recommendation's resources and cost estimate from
// the combined plan. When the analysis names preferred providers only their
// resources are attached; otherwise every provider contributes.
func (e *Enricher) Enrich(ctx context.Context, analysis session.Analysis, recs []session.Recommendation) error {
	plans, err := e.Plan(ctx, analysis)
	if err != nil {
		return err
	}

	var combined []session.CloudResource
	for i, adapter := range e.adapters {
		if !providerWanted(adapter.Provider(), analysis.PreferredProviders) {
			e.logger.Debug("skipping provider outside preference", "provider", adapter.Provider())
			continue
		}
		combined = append(combined, plans[i]...)
	}

	for i := range recs {
		recs[i].Resources = append([]session.CloudResource(nil), combined...)
		recs[i].EstimatedCost = TotalCost(combined)
	}
	return nil
}

func providerWanted(p session.Provider, preferred []session.Provider) bool {
	if len(preferred) == 0 {
		return true
	}
	for _, want := range preferred {
		if want == p {
			return true
		}
	}
	return false
}
