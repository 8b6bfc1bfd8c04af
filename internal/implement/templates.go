package implement

import (
	"strings"

	"github.com/archonhq/archon/internal/session"
)

// Templates assembles the application templates for the selected
// recommendation: a React frontend and a Java Spring Boot backend, each
// carrying the matching slice of cloud resources plus the rendered
// configuration files.
func (im *Implementer) Templates(rec session.Recommendation, artifacts map[session.Provider]map[string]string) []session.Template {
	configuration := make(map[string]any, len(artifacts))
	for provider, files := range artifacts {
		configuration[string(provider)] = files
	}

	return []session.Template{
		{
			Name:           "react-frontend",
			Type:           "frontend",
			Framework:      "react",
			CloudResources: filterResources(rec.Resources, "frontend"),
			Configuration:  configuration,
		},
		{
			Name:           "java-microservices",
			Type:           "backend",
			Framework:      "spring-boot",
			CloudResources: filterResources(rec.Resources, "backend"),
			Configuration:  configuration,
		},
	}
}

func filterResources(resources []session.CloudResource, substr string) []session.CloudResource {
	var matched []session.CloudResource
	for _, r := range resources {
		if strings.Contains(strings.ToLower(r.ResourceType), substr) {
			matched = append(matched, r)
		}
	}
	return matched
}
