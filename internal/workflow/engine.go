// Package workflow drives a session through the recommendation pipeline:
// analysis, generation, selection, implementation and template assembly.
// Steps only move forward; feedback ingestion adds the single re-entry edge
// back to analysis.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/archonhq/archon/internal/analyzer"
	"github.com/archonhq/archon/internal/feedback"
	"github.com/archonhq/archon/internal/generator"
	"github.com/archonhq/archon/internal/learning"
	"github.com/archonhq/archon/internal/session"
)

// Analyzer turns a user query into a structured analysis.
type Analyzer interface {
	Analyze(ctx context.Context, query string, queryContext map[string]any) (session.Analysis, error)
}

// Generator drafts candidate architectures from an analysis.
type Generator interface {
	Generate(ctx context.Context, analysis session.Analysis) ([]generator.Draft, error)
}

// Enricher attaches cloud resources and cost estimates to recommendations.
type Enricher interface {
	Enrich(ctx context.Context, analysis session.Analysis, recs []session.Recommendation) error
}

// Implementer renders deployment artifacts and application templates for a
// selected recommendation.
type Implementer interface {
	Artifacts(rec session.Recommendation) (map[session.Provider]map[string]string, error)
	Templates(rec session.Recommendation, artifacts map[session.Provider]map[string]string) []session.Template
}

// Rescorer adjusts recommendation confidence from learned preferences.
type Rescorer interface {
	Rescore(recs []session.Recommendation, queryContext map[string]any) []session.Recommendation
}

// Archiver persists finished session snapshots. Archiving is best-effort;
// failures never fail a run.
type Archiver interface {
	SaveSession(ctx context.Context, state session.State) error
}

// Engine owns the session registry and wires the collaborators into the
// pipeline. Collaborator failures are recorded on the session and stop the
// current run; missing intermediate products only produce warnings and let
// later steps short-circuit.
type Engine struct {
	registry    *session.Registry
	analyzer    Analyzer
	generator   Generator
	enricher    Enricher
	implementer Implementer
	scorer      Rescorer

	store   *feedback.Store
	learner *learning.Engine
	archive Archiver

	logger *slog.Logger
}

// Options carries the collaborators for NewEngine. Scorer and Archive may be
// nil; everything else is required.
type Options struct {
	Analyzer    Analyzer
	Generator   Generator
	Enricher    Enricher
	Implementer Implementer
	Scorer      Rescorer
	Store       *feedback.Store
	Learner     *learning.Engine
	Archive     Archiver
}

// NewEngine creates a workflow engine with a fresh session registry.
func NewEngine(opts Options) *Engine {
	return &Engine{
		registry:    session.NewRegistry(),
		analyzer:    opts.Analyzer,
		generator:   opts.Generator,
		enricher:    opts.Enricher,
		implementer: opts.Implementer,
		scorer:      opts.Scorer,
		store:       opts.Store,
		learner:     opts.Learner,
		archive:     opts.Archive,
		logger:      slog.Default(),
	}
}

// step is one pipeline stage. run reports whether the stage produced its
// product; a false return with nil error means the stage short-circuited
// (already warned) and the session must not advance to the stage's step.
type step struct {
	advanceTo session.Step
	errFmt    string
	run       func(ctx context.Context, s *session.State) (bool, error)
}

func (e *Engine) steps() []step {
	return []step{
		{session.StepRequirementsAnalyzed, "Requirements analysis failed: %v", e.runAnalysis},
		{session.StepRecommendationsGenerated, "Recommendation generation failed: %v", e.runGeneration},
		{session.StepRecommendationSelected, "Recommendation selection failed: %v", e.runSelection},
		{session.StepImplementationGenerated, "Implementation generation failed: %v", e.runImplementation},
		{session.StepCompleted, "Template generation failed: %v", e.runTemplates},
	}
}

// Run creates a session for the query and drives it through the pipeline.
// The returned status reflects the session after the run; pipeline failures
// are recorded on the session, not returned.
func (e *Engine) Run(ctx context.Context, query string, queryContext map[string]any) (session.Status, error) {
	st := e.registry.Create(query, queryContext)
	e.logger.Info("session started", "session_id", st.ID)
	return e.drive(ctx, st.ID)
}

// Resume continues a session from wherever its last run stopped. A session
// whose last step is feedback_processed restarts from analysis with the
// updated learning state applied.
func (e *Engine) Resume(ctx context.Context, id string) (session.Status, error) {
	e.logger.Info("session resumed", "session_id", id)
	return e.drive(ctx, id)
}

func (e *Engine) drive(ctx context.Context, id string) (session.Status, error) {
	var status session.Status
	err := e.registry.With(id, func(s *session.State) error {
		e.pipeline(ctx, s)
		status = s.Summary()
		if e.archive != nil {
			if err := e.archive.SaveSession(ctx, *s); err != nil {
				e.logger.Warn("failed to archive session", "session_id", s.ID, "error", err)
			}
		}
		return nil
	})
	return status, err
}

// pipeline walks the step table from the position after the session's
// current step. A collaborator error stops the walk; a short-circuit leaves
// the step unadvanced but keeps walking so later stages can record their own
// warnings.
func (e *Engine) pipeline(ctx context.Context, s *session.State) {
	steps := e.steps()
	for _, st := range steps[e.startIndex(s.CurrentStep):] {
		if err := ctx.Err(); err != nil {
			s.AddError(fmt.Sprintf("Pipeline cancelled: %v", err))
			return
		}

		advanced, err := st.run(ctx, s)
		if err != nil {
			s.AddError(fmt.Sprintf(st.errFmt, err))
			e.logger.Error("pipeline step failed",
				"session_id", s.ID, "step", st.advanceTo, "error", err)
			return
		}
		if advanced {
			s.CurrentStep = st.advanceTo
		}
	}
}

// startIndex maps the session's current step to the first step still to run.
// feedback_processed re-enters at the top of the table.
func (e *Engine) startIndex(current session.Step) int {
	if current == session.StepAnalysis || current == session.StepFeedbackProcessed {
		return 0
	}
	for i, st := range e.steps() {
		if st.advanceTo == current {
			return i + 1
		}
	}
	return 0
}

func (e *Engine) runAnalysis(ctx context.Context, s *session.State) (bool, error) {
	analysis, err := e.analyzer.Analyze(ctx, s.Query, s.Context)
	if err != nil {
		return false, err
	}
	s.Analysis = &analysis
	s.Requirements = analyzer.ExtractRequirements(analysis)
	e.logger.Info("requirements analyzed",
		"session_id", s.ID,
		"application_type", analysis.ApplicationType,
		"requirements", len(s.Requirements))
	return true, nil
}

func (e *Engine) runGeneration(ctx context.Context, s *session.State) (bool, error) {
	if s.Analysis == nil {
		return false, fmt.Errorf("no analysis available")
	}
	drafts, err := e.generator.Generate(ctx, *s.Analysis)
	if err != nil {
		return false, err
	}

	recs := make([]session.Recommendation, 0, len(drafts))
	for _, d := range drafts {
		recs = append(recs, session.Recommendation{
			ID:                  uuid.New().String(),
			Title:               d.Title,
			Description:         d.Description,
			ConfidenceScore:     d.ConfidenceScore,
			ImplementationSteps: d.ImplementationSteps,
		})
	}

	if len(recs) > 0 {
		if err := e.enricher.Enrich(ctx, *s.Analysis, recs); err != nil {
			return false, err
		}
		if e.scorer != nil {
			recs = e.scorer.Rescore(recs, s.Context)
		}
	}

	s.Recommendations = recs
	e.logger.Info("recommendations generated", "session_id", s.ID, "count", len(recs))
	return true, nil
}

// runSelection picks the highest-confidence recommendation; ties keep the
// earliest candidate.
func (e *Engine) runSelection(_ context.Context, s *session.State) (bool, error) {
	if len(s.Recommendations) == 0 {
		s.AddWarning("No recommendations generated")
		return false, nil
	}

	best := 0
	for i := 1; i < len(s.Recommendations); i++ {
		if s.Recommendations[i].ConfidenceScore > s.Recommendations[best].ConfidenceScore {
			best = i
		}
	}
	s.SelectedID = s.Recommendations[best].ID
	e.logger.Info("recommendation selected",
		"session_id", s.ID,
		"recommendation_id", s.SelectedID,
		"confidence", s.Recommendations[best].ConfidenceScore)
	return true, nil
}

func (e *Engine) runImplementation(_ context.Context, s *session.State) (bool, error) {
	selected := s.Selected()
	if selected == nil {
		s.AddWarning("No recommendation selected for implementation")
		return false, nil
	}

	artifacts, err := e.implementer.Artifacts(*selected)
	if err != nil {
		return false, err
	}
	s.Artifacts = artifacts
	e.logger.Info("implementation generated", "session_id", s.ID, "providers", len(artifacts))
	return true, nil
}

func (e *Engine) runTemplates(_ context.Context, s *session.State) (bool, error) {
	selected := s.Selected()
	if selected == nil {
		s.AddWarning("No recommendation selected for template generation")
		return false, nil
	}

	s.Templates = e.implementer.Templates(*selected, s.Artifacts)
	e.logger.Info("templates generated", "session_id", s.ID, "count", len(s.Templates))
	return true, nil
}
