package learning

import (
	"fmt"
	"sort"
	"strings"
)

// AspectClassifier decides whether a piece of feedback text or context talks
// about a given topic, and extracts named aspects from free text. The default
// is a substring heuristic; the interface exists so a real classifier can be
// swapped in without touching the scoring or insight contracts.
type AspectClassifier interface {
	// Mentions reports whether text talks about topic.
	Mentions(text, topic string) bool
	// PositiveAspects extracts aspect labels from positively rated text.
	PositiveAspects(text string) []string
	// NegativeAspects extracts aspect labels from negatively rated text.
	NegativeAspects(text string) []string
}

// KeywordClassifier is the default substring-based classifier.
type KeywordClassifier struct{}

var positiveAspectKeywords = map[string]string{
	"cost":        "cost-effective",
	"performance": "high-performance",
	"scalable":    "scalable",
	"secure":      "secure",
}

var negativeAspectKeywords = map[string]string{
	"expensive": "too-expensive",
	"complex":   "too-complex",
	"slow":      "poor-performance",
}

func (KeywordClassifier) Mentions(text, topic string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(topic))
}

func (c KeywordClassifier) PositiveAspects(text string) []string {
	return matchAspects(text, positiveAspectKeywords)
}

func (c KeywordClassifier) NegativeAspects(text string) []string {
	return matchAspects(text, negativeAspectKeywords)
}

func matchAspects(text string, keywords map[string]string) []string {
	lower := strings.ToLower(text)
	var aspects []string
	for keyword, aspect := range keywords {
		if strings.Contains(lower, keyword) {
			aspects = append(aspects, aspect)
		}
	}
	sort.Strings(aspects)
	return aspects
}

// flattenContext renders a context map as searchable text, mirroring how the
// keyword heuristic scans both keys and values.
func flattenContext(ctx map[string]any) string {
	if len(ctx) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ctx))
	for k, v := range ctx {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
