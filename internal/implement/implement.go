// Package implement renders deployment artifacts and application templates
// for a selected recommendation. Output is deterministic for a given
// recommendation so repeated runs produce identical artifacts.
package implement

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/archonhq/archon/internal/session"
)

// Implementer turns a selected recommendation into per-provider
// configuration files and application templates.
type Implementer struct {
	providers []session.Provider
}

// New creates an Implementer emitting artifacts for the given providers.
// With no providers it defaults to AWS and Azure.
func New(providers ...session.Provider) *Implementer {
	if len(providers) == 0 {
		providers = []session.Provider{session.AWS, session.Azure}
	}
	return &Implementer{providers: providers}
}

// Artifacts renders the configuration files for every provider. The outer
// map is keyed by provider, the inner by file name.
func (im *Implementer) Artifacts(rec session.Recommendation) (map[session.Provider]map[string]string, error) {
	out := make(map[session.Provider]map[string]string, len(im.providers))
	for _, p := range im.providers {
		files, err := renderProvider(p, rec)
		if err != nil {
			return nil, fmt.Errorf("rendering %s artifacts: %w", p, err)
		}
		out[p] = files
	}
	return out, nil
}

func renderProvider(p session.Provider, rec session.Recommendation) (map[string]string, error) {
	infra, err := renderTerraform(p, rec)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"main.tf.json":  infra,
		"DEPLOYMENT.md": renderDeploymentGuide(p, rec),
	}, nil
}

// renderTerraform emits the provider's resources in Terraform JSON syntax.
// Resource addresses are derived from the resource type; duplicates get a
// numeric suffix.
func renderTerraform(p session.Provider, rec session.Recommendation) (string, error) {
	blocks := make(map[string]map[string]any)
	seen := make(map[string]int)

	for _, r := range rec.Resources {
		if r.Provider != p {
			continue
		}
		name := r.ResourceType
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		if blocks[r.ResourceType] == nil {
			blocks[r.ResourceType] = make(map[string]any)
		}
		blocks[r.ResourceType][name] = r.Configuration
	}

	doc := map[string]any{
		"terraform": map[string]any{"required_version": ">= 1.5"},
		"resource":  blocks,
	}
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return string(encoded) + "\n", nil
}

func renderDeploymentGuide(p session.Provider, rec session.Recommendation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s deployment: %s\n\n", strings.ToUpper(string(p)), rec.Title)
	if rec.Description != "" {
		sb.WriteString(rec.Description)
		sb.WriteString("\n\n")
	}

	if len(rec.ImplementationSteps) > 0 {
		sb.WriteString("## Steps\n\n")
		for i, step := range rec.ImplementationSteps {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
		sb.WriteString("\n")
	}

	var types []string
	var total float64
	for _, r := range rec.Resources {
		if r.Provider != p {
			continue
		}
		types = append(types, r.ResourceType)
		total += r.EstimatedCost
	}
	sort.Strings(types)

	sb.WriteString("## Resources\n\n")
	for _, t := range types {
		fmt.Fprintf(&sb, "- %s\n", t)
	}
	fmt.Fprintf(&sb, "\nEstimated monthly cost: $%.2f\n", total)
	return sb.String()
}
