// Package analyzer implements the requirements-analysis collaborator: it
// turns a natural-language infrastructure request into a structured analysis
// the rest of the pipeline consumes.
package analyzer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/archonhq/archon/internal/llm"
	"github.com/archonhq/archon/internal/session"
)

const analysisTimeout = 15 * time.Second

// Chatter is the interface for structured chat completion.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []llm.Message, jsonSchema *llm.Schema) (string, error)
}

// DocSource provides previously ingested requirement document texts to fold
// into the analysis prompt. Optional.
type DocSource interface {
	RecentDocTexts(limit int) ([]string, error)
}

// Analyzer analyzes user queries with a local LLM, falling back to a
// deterministic keyword heuristic on any model failure so the pipeline keeps
// working offline.
type Analyzer struct {
	client Chatter
	model  string
	docs   DocSource
	logger *slog.Logger
}

// New creates an Analyzer. client may be nil, in which case only the keyword
// heuristic runs. docs may be nil.
func New(client Chatter, model string, docs DocSource) *Analyzer {
	return &Analyzer{client: client, model: model, docs: docs, logger: slog.Default()}
}

// llmAnalysis mirrors the schema of the structured model output.
type llmAnalysis struct {
	ApplicationType    string   `json:"application_type"`
	Complexity         string   `json:"complexity"`
	ScalabilityNeeds   bool     `json:"scalability_needs"`
	PerformanceNeeds   bool     `json:"performance_needs"`
	SecurityNeeds      bool     `json:"security_needs"`
	BudgetSensitive    bool     `json:"budget_sensitive"`
	DatabaseNeeds      string   `json:"database_needs"`
	IntegrationNeeds   []string `json:"integration_needs"`
	PreferredProviders []string `json:"preferred_providers"`
}

// Analyze produces a structured analysis of the query. The LLM path is tried
// first when a client is configured; any failure (timeout, malformed JSON,
// server error) degrades to the keyword heuristic.
func (a *Analyzer) Analyze(ctx context.Context, query string, queryContext map[string]any) (session.Analysis, error) {
	if a.client == nil {
		return KeywordAnalyze(query, queryContext), nil
	}

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	var docs []string
	if a.docs != nil {
		texts, err := a.docs.RecentDocTexts(5)
		if err != nil {
			a.logger.Warn("failed to load requirement docs for analysis", "error", err)
		} else {
			docs = texts
		}
	}

	raw, err := a.client.Chat(ctx, a.model, BuildPrompt(query, queryContext, docs), analysisSchema())
	if err != nil {
		a.logger.Warn("analysis chat failed, using keyword heuristic", "error", err)
		return KeywordAnalyze(query, queryContext), nil
	}

	var parsed llmAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		a.logger.Warn("failed to unmarshal analysis from model response, using keyword heuristic",
			"error", err, "response", raw)
		return KeywordAnalyze(query, queryContext), nil
	}

	analysis := session.Analysis{
		ApplicationType:  parsed.ApplicationType,
		Complexity:       parsed.Complexity,
		ScalabilityNeeds: parsed.ScalabilityNeeds,
		PerformanceNeeds: parsed.PerformanceNeeds,
		SecurityNeeds:    parsed.SecurityNeeds,
		BudgetSensitive:  parsed.BudgetSensitive,
		DatabaseNeeds:    parsed.DatabaseNeeds,
		IntegrationNeeds: parsed.IntegrationNeeds,
	}
	for _, p := range parsed.PreferredProviders {
		if provider, ok := normalizeProvider(p); ok {
			analysis.PreferredProviders = append(analysis.PreferredProviders, provider)
		}
	}
	if analysis.ApplicationType == "" {
		analysis.ApplicationType = "web_application"
	}
	if analysis.Complexity == "" {
		analysis.Complexity = "medium"
	}
	return analysis, nil
}
