// Package generator implements the recommendation-generation collaborator:
// it drafts candidate architectures from a requirements analysis.
package generator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/archonhq/archon/internal/llm"
	"github.com/archonhq/archon/internal/session"
)

const generationTimeout = 30 * time.Second

// Draft is one candidate architecture before resource enrichment. Ids are
// assigned by the workflow when drafts become recommendations.
type Draft struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	ConfidenceScore     float64  `json:"confidence_score"`
	ImplementationSteps []string `json:"implementation_steps"`
}

// Chatter is the interface for structured chat completion.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []llm.Message, jsonSchema *llm.Schema) (string, error)
}

// Generator drafts recommendations with a local LLM, degrading to the
// deterministic catalog-driven drafts on any model failure.
type Generator struct {
	client Chatter
	model  string
	logger *slog.Logger
}

// New creates a Generator. client may be nil, in which case only the
// deterministic drafts are produced.
func New(client Chatter, model string) *Generator {
	return &Generator{client: client, model: model, logger: slog.Default()}
}

// Generate drafts candidate architectures for the analysis.
func (g *Generator) Generate(ctx context.Context, analysis session.Analysis) ([]Draft, error) {
	if g.client == nil {
		return HeuristicDrafts(analysis), nil
	}

	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	raw, err := g.client.Chat(ctx, g.model, buildPrompt(analysis), draftSchema())
	if err != nil {
		g.logger.Warn("generation chat failed, using deterministic drafts", "error", err)
		return HeuristicDrafts(analysis), nil
	}

	var parsed struct {
		Recommendations []Draft `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		g.logger.Warn("failed to unmarshal drafts from model response, using deterministic drafts",
			"error", err, "response", raw)
		return HeuristicDrafts(analysis), nil
	}
	if len(parsed.Recommendations) == 0 {
		return HeuristicDrafts(analysis), nil
	}

	for i := range parsed.Recommendations {
		if parsed.Recommendations[i].ConfidenceScore <= 0 || parsed.Recommendations[i].ConfidenceScore > 1 {
			parsed.Recommendations[i].ConfidenceScore = 0.7
		}
	}
	return parsed.Recommendations, nil
}

// HeuristicDrafts produces deterministic candidate architectures from the
// analysis flags alone. Order and scores are stable across calls.
func HeuristicDrafts(analysis session.Analysis) []Draft {
	var drafts []Draft

	if analysis.BudgetSensitive {
		drafts = append(drafts, Draft{
			Title:           "Cost-Optimized Serverless Architecture",
			Description:     "Serverless frontend hosting with managed functions for the backend, minimizing idle cost while keeping operational overhead low.",
			ConfidenceScore: 0.82,
			ImplementationSteps: []string{
				"Provision object storage and CDN for the React frontend",
				"Deploy Java services as managed functions behind an API gateway",
				"Attach a serverless-tier database",
				"Configure budget alerts and cost monitoring",
			},
		})
	}

	if analysis.PerformanceNeeds || analysis.ScalabilityNeeds {
		drafts = append(drafts, Draft{
			Title:           "High-Performance Container Platform",
			Description:     "Containerized Java microservices on a managed orchestrator with autoscaling and caching for consistent performance under load.",
			ConfidenceScore: 0.78,
			ImplementationSteps: []string{
				"Build container images for each microservice",
				"Provision a managed container cluster with autoscaling policies",
				"Front services with a load balancer and CDN",
				"Add a managed cache in front of the primary database",
			},
		})
	}

	drafts = append(drafts, Draft{
		Title:           "Balanced Three-Tier Architecture",
		Description:     "Classic three-tier layout with managed compute, a relational database and standard networking, portable across providers.",
		ConfidenceScore: 0.70,
		ImplementationSteps: []string{
			"Provision managed compute for the backend services",
			"Deploy the React frontend to static hosting",
			"Create a managed relational database instance",
			"Wire up VPC networking and security groups",
		},
	})

	return drafts
}

func buildPrompt(analysis session.Analysis) []llm.Message {
	encoded, _ := json.Marshal(analysis)
	return []llm.Message{
		{Role: "system", Content: "You are an expert cloud solutions architect. Based on the requirements analysis, generate up to three cloud-agnostic architecture recommendations implementable on both AWS and Azure. Your output must be ONLY a single valid JSON object conforming to the provided schema."},
		{Role: "user", Content: "Requirements analysis: " + string(encoded)},
	}
}

func draftSchema() *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]llm.SchemaProperty{
			"recommendations": {Type: "array", Description: "Architecture recommendations: objects with title, description, confidence_score (0..1), implementation_steps"},
		},
		Required: []string{"recommendations"},
	}
}
