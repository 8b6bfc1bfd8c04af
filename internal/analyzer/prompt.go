package analyzer

import (
	"fmt"
	"strings"

	"github.com/archonhq/archon/internal/llm"
)

const systemPrompt = `You are an expert cloud architect specializing in AWS and Azure services. Analyze the user's infrastructure request for a React frontend and Java microservices backend application. Your output must be ONLY a single valid JSON object conforming to the provided schema. Do not include any other text, prose, or markdown.

Extract:
- application_type: one of "web_application", "api_service", "data_pipeline", "static_site"
- complexity: one of "low", "medium", "high"
- scalability_needs, performance_needs, security_needs, budget_sensitive: booleans
- database_needs: preferred database kind if stated ("postgresql", "mysql", "mongodb", "dynamodb", "cosmosdb"), else empty
- integration_needs: external systems the application must integrate with
- preferred_providers: cloud providers the user explicitly prefers ("aws", "azure")

Focus on cloud-agnostic requirements that can be satisfied on both AWS and Azure.`

// BuildPrompt constructs the chat messages for requirements analysis.
// Ingested requirement documents and caller context are folded in as extra
// background for the model.
func BuildPrompt(query string, queryContext map[string]any, docs []string) []llm.Message {
	var sb strings.Builder
	sb.WriteString(systemPrompt)

	if len(queryContext) > 0 {
		sb.WriteString("\n\n[Additional Context]")
		for k, v := range queryContext {
			fmt.Fprintf(&sb, "\n%s: %v", k, v)
		}
	}

	if len(docs) > 0 {
		sb.WriteString("\n\n[Requirement Documents]")
		for _, doc := range docs {
			sb.WriteString("\n---\n")
			sb.WriteString(doc)
		}
	}

	return []llm.Message{
		{Role: "system", Content: sb.String()},
		{Role: "user", Content: query},
	}
}

// analysisSchema returns the JSON schema for structured analysis output.
func analysisSchema() *llm.Schema {
	return &llm.Schema{
		Type: "object",
		Properties: map[string]llm.SchemaProperty{
			"application_type":    {Type: "string", Description: "Kind of application being built"},
			"complexity":          {Type: "string", Description: "One of: low, medium, high"},
			"scalability_needs":   {Type: "boolean", Description: "Whether the application must scale with load"},
			"performance_needs":   {Type: "boolean", Description: "Whether low latency or high throughput is required"},
			"security_needs":      {Type: "boolean", Description: "Whether elevated security or compliance is required"},
			"budget_sensitive":    {Type: "boolean", Description: "Whether cost is a stated concern"},
			"database_needs":      {Type: "string", Description: "Preferred database kind, empty if unspecified"},
			"integration_needs":   {Type: "array", Description: "External systems to integrate with"},
			"preferred_providers": {Type: "array", Description: "Explicitly preferred cloud providers"},
		},
		Required: []string{
			"application_type", "complexity", "scalability_needs",
			"performance_needs", "security_needs", "budget_sensitive",
		},
	}
}
