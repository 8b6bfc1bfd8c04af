package catalog

import (
	"github.com/archonhq/archon/internal/session"
)

// AzureAdapter maps an analysis onto Azure resources for a React frontend
// and Java microservices backend.
type AzureAdapter struct {
	location string
}

// NewAzureAdapter creates an AzureAdapter for the given location. An empty
// location defaults to eastus.
func NewAzureAdapter(location string) *AzureAdapter {
	if location == "" {
		location = "eastus"
	}
	return &AzureAdapter{location: location}
}

func (a *AzureAdapter) Provider() session.Provider { return session.Azure }

// Resources returns the Azure resource plan for the analysis. Resources are
// emitted in a fixed order: frontend, backend, database, networking,
// storage, monitoring.
func (a *AzureAdapter) Resources(analysis session.Analysis) []session.CloudResource {
	var resources []session.CloudResource
	resources = append(resources, a.frontendResources()...)
	resources = append(resources, a.backendResources(analysis)...)
	resources = append(resources, a.databaseResources(analysis)...)
	resources = append(resources, a.networkingResources()...)
	resources = append(resources, a.storageResources()...)
	resources = append(resources, a.monitoringResources()...)
	return resources
}

func (a *AzureAdapter) frontendResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "frontend_hosting",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"name":            "react-app",
				"location":        a.location,
				"sku":             map[string]any{"name": "Free", "tier": "Free"},
				"app_location":    "/",
				"output_location": "build",
				"build_properties": map[string]any{
					"app_build_command": "npm run build",
				},
			},
			EstimatedCost: 0.0,
		},
		{
			ResourceType: "frontend_cdn",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"profile_name":                  "react-app-cdn-profile",
				"sku":                           "Standard_Microsoft",
				"endpoint_name":                 "react-app-endpoint",
				"origin_host_header":            "${static_web_app_domain}",
				"is_http_allowed":               false,
				"is_https_allowed":              true,
				"query_string_caching_behavior": "IgnoreQueryString",
				"optimization_type":             "GeneralWebDelivery",
			},
			EstimatedCost: 25.0,
		},
	}
}

func (a *AzureAdapter) backendResources(analysis session.Analysis) []session.CloudResource {
	maxReplicas := 10
	if analysis.ScalabilityNeeds {
		maxReplicas = 20
	}

	return []session.CloudResource{
		{
			ResourceType: "backend_compute",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"container_app_environment_name": "microservices-env",
				"location":                       a.location,
				"apps": []any{
					map[string]any{
						"name": "user-service",
						"configuration": map[string]any{
							"ingress": map[string]any{
								"external":    true,
								"target_port": 8080,
							},
						},
						"template": map[string]any{
							"containers": []any{
								map[string]any{
									"name":      "user-service",
									"image":     "user-service:latest",
									"resources": map[string]any{"cpu": 0.25, "memory": "0.5Gi"},
								},
							},
							"scale": map[string]any{
								"min_replicas": 1,
								"max_replicas": maxReplicas,
							},
						},
					},
				},
			},
			EstimatedCost: 60.0,
		},
	}
}

func (a *AzureAdapter) databaseResources(analysis session.Analysis) []session.CloudResource {
	resources := []session.CloudResource{
		{
			ResourceType: "primary_database",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"server_name": "microservices-postgresql",
				"location":    a.location,
				"sku":         map[string]any{"name": "Standard_B1ms", "tier": "Burstable"},
				"storage": map[string]any{
					"storage_size_gb":       32,
					"backup_retention_days": 7,
					"geo_redundant_backup":  "Disabled",
					"auto_grow":             true,
				},
				"version":             "15",
				"administrator_login": "dbadmin",
				"high_availability":   map[string]any{"mode": "Disabled"},
				"authentication": map[string]any{
					"active_directory_auth": "Enabled",
					"password_auth":         "Enabled",
				},
			},
			EstimatedCost: 45.0,
		},
	}

	if wantsCache(analysis) {
		resources = append(resources, session.CloudResource{
			ResourceType: "cache_database",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"name":                "microservices-redis",
				"location":            a.location,
				"sku":                 map[string]any{"name": "Basic", "family": "C", "capacity": 0},
				"enable_non_ssl_port": false,
				"minimum_tls_version": "1.2",
				"redis_configuration": map[string]any{"maxmemory-policy": "allkeys-lru"},
			},
			EstimatedCost: 25.0,
		})
	}
	return resources
}

func (a *AzureAdapter) networkingResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "networking_vnet",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"name":          "microservices-vnet",
				"location":      a.location,
				"address_space": map[string]any{"address_prefixes": []any{"10.0.0.0/16"}},
				"subnets": []any{
					map[string]any{"name": "container-apps-subnet", "address_prefix": "10.0.1.0/24"},
					map[string]any{"name": "database-subnet", "address_prefix": "10.0.2.0/24"},
					map[string]any{"name": "cache-subnet", "address_prefix": "10.0.3.0/24"},
				},
			},
			EstimatedCost: 5.0,
		},
		{
			ResourceType: "api_gateway",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"name":           "microservices-apim",
				"location":       a.location,
				"sku":            map[string]any{"name": "Developer", "capacity": 1},
				"publisher_name": "Microservices API",
				"identity":       map[string]any{"type": "SystemAssigned"},
				"policies": map[string]any{
					"cors": map[string]any{
						"allowed_origins": []any{"${static_web_app_domain}"},
						"allowed_methods": []any{"GET", "POST", "PUT", "DELETE"},
						"allowed_headers": []any{"Content-Type", "Authorization"},
					},
					"rate_limiting": map[string]any{"calls": 1000, "renewal_period": 3600},
				},
			},
			EstimatedCost: 50.0,
		},
	}
}

func (a *AzureAdapter) storageResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "data_storage",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"account_name":             "microservicesdata${random}",
				"location":                 a.location,
				"account_tier":             "Standard",
				"account_replication_type": "LRS",
				"account_kind":             "StorageV2",
				"access_tier":              "Hot",
				"min_tls_version":          "TLS1_2",
				"containers": []any{
					map[string]any{"name": "uploads", "access_type": "private"},
					map[string]any{"name": "backups", "access_type": "private"},
				},
			},
			EstimatedCost: 15.0,
		},
	}
}

func (a *AzureAdapter) monitoringResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "logging",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"name":              "microservices-logs",
				"location":          a.location,
				"sku":               "PerGB2018",
				"retention_in_days": 30,
				"daily_quota_gb":    1,
			},
			EstimatedCost: 20.0,
		},
		{
			ResourceType: "monitoring",
			Provider:     session.Azure,
			Configuration: map[string]any{
				"name":                "microservices-insights",
				"location":            a.location,
				"application_type":    "web",
				"sampling_percentage": 100,
				"retention_in_days":   90,
			},
			EstimatedCost: 25.0,
		},
	}
}
