package analyzer

import (
	"fmt"
	"strings"

	"github.com/archonhq/archon/internal/session"
)

// KeywordAnalyze is the deterministic fallback analyzer: a substring
// heuristic over the query and caller context. It always succeeds.
func KeywordAnalyze(query string, queryContext map[string]any) session.Analysis {
	text := strings.ToLower(query + " " + flatten(queryContext))

	analysis := session.Analysis{
		ApplicationType:  "web_application",
		Complexity:       "medium",
		ScalabilityNeeds: containsAny(text, "scal", "load", "traffic", "grow"),
		PerformanceNeeds: containsAny(text, "performance", "fast", "latency", "throughput", "real-time"),
		SecurityNeeds:    containsAny(text, "secur", "compliance", "encrypt", "hipaa", "gdpr"),
		BudgetSensitive:  containsAny(text, "budget", "cost", "cheap", "afford", "inexpensive"),
	}

	switch {
	case containsAny(text, "static site", "landing page"):
		analysis.ApplicationType = "static_site"
	case containsAny(text, "data pipeline", "etl", "batch"):
		analysis.ApplicationType = "data_pipeline"
	case containsAny(text, "api only", "rest api", "api service"):
		analysis.ApplicationType = "api_service"
	}

	switch {
	case containsAny(text, "enterprise", "complex", "many services", "multi-region"):
		analysis.Complexity = "high"
	case containsAny(text, "simple", "small", "prototype", "mvp"):
		analysis.Complexity = "low"
	}

	for _, db := range []string{"postgresql", "postgres", "mysql", "mongodb", "dynamodb", "cosmosdb"} {
		if strings.Contains(text, db) {
			if db == "postgres" {
				db = "postgresql"
			}
			analysis.DatabaseNeeds = db
			break
		}
	}

	if strings.Contains(text, "aws") {
		analysis.PreferredProviders = append(analysis.PreferredProviders, session.AWS)
	}
	if strings.Contains(text, "azure") {
		analysis.PreferredProviders = append(analysis.PreferredProviders, session.Azure)
	}

	return analysis
}

// ExtractRequirements derives structured requirements from an analysis. One
// requirement per detected need, in a fixed order.
func ExtractRequirements(a session.Analysis) []session.Requirement {
	var reqs []session.Requirement
	if a.ScalabilityNeeds {
		reqs = append(reqs, session.Requirement{
			Type:        "scalability",
			Description: "Application needs to scale based on user load",
			Priority:    session.PriorityHigh,
			Tags:        []string{"performance", "scalability"},
		})
	}
	if a.PerformanceNeeds {
		reqs = append(reqs, session.Requirement{
			Type:        "performance",
			Description: "Application requires low latency and high throughput",
			Priority:    session.PriorityHigh,
			Tags:        []string{"performance"},
		})
	}
	if a.SecurityNeeds {
		reqs = append(reqs, session.Requirement{
			Type:        "security",
			Description: "Application handles data requiring elevated security controls",
			Priority:    session.PriorityHigh,
			Tags:        []string{"security", "compliance"},
		})
	}
	if a.BudgetSensitive {
		reqs = append(reqs, session.Requirement{
			Type:        "cost",
			Description: "Infrastructure spend must stay within a constrained budget",
			Priority:    session.PriorityMedium,
			Tags:        []string{"cost"},
		})
	}
	if a.DatabaseNeeds != "" {
		reqs = append(reqs, session.Requirement{
			Type:        "database",
			Description: fmt.Sprintf("Application requires a %s database", a.DatabaseNeeds),
			Priority:    session.PriorityMedium,
			Tags:        []string{"database", a.DatabaseNeeds},
		})
	}
	return reqs
}

func normalizeProvider(name string) (session.Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "aws", "amazon":
		return session.AWS, true
	case "azure", "microsoft":
		return session.Azure, true
	default:
		return "", false
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func flatten(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	var sb strings.Builder
	for k, v := range m {
		fmt.Fprintf(&sb, "%s %v ", k, v)
	}
	return sb.String()
}
