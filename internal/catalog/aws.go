package catalog

import (
	"github.com/archonhq/archon/internal/session"
)

// AWSAdapter maps an analysis onto AWS resources for a React frontend and
// Java microservices backend.
type AWSAdapter struct {
	region string
}

// NewAWSAdapter creates an AWSAdapter for the given region. An empty region
// defaults to us-east-1.
func NewAWSAdapter(region string) *AWSAdapter {
	if region == "" {
		region = "us-east-1"
	}
	return &AWSAdapter{region: region}
}

func (a *AWSAdapter) Provider() session.Provider { return session.AWS }

// Resources returns the AWS resource plan for the analysis. Resources are
// emitted in a fixed order: frontend, backend, database, networking,
// storage, monitoring.
func (a *AWSAdapter) Resources(analysis session.Analysis) []session.CloudResource {
	var resources []session.CloudResource
	resources = append(resources, a.frontendResources()...)
	resources = append(resources, a.backendResources(analysis)...)
	resources = append(resources, a.databaseResources(analysis)...)
	resources = append(resources, a.networkingResources()...)
	resources = append(resources, a.storageResources()...)
	resources = append(resources, a.monitoringResources()...)
	return resources
}

func (a *AWSAdapter) frontendResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "frontend_storage",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"bucket_name": "react-app-${random}",
				"website_configuration": map[string]any{
					"index_document": "index.html",
					"error_document": "error.html",
				},
				"public_access": false,
				"versioning":    true,
			},
			EstimatedCost: 5.0,
		},
		{
			ResourceType: "frontend_cdn",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"origin_domain": "${s3_bucket_domain}",
				"price_class":   "PriceClass_100",
				"cache_behaviors": map[string]any{
					"default": map[string]any{
						"target_origin_id":       "S3Origin",
						"viewer_protocol_policy": "redirect-to-https",
						"compress":               true,
					},
				},
				"custom_error_responses": []any{
					map[string]any{
						"error_code":         404,
						"response_page_path": "/index.html",
						"response_code":      200,
					},
				},
			},
			EstimatedCost: 20.0,
		},
	}
}

func (a *AWSAdapter) backendResources(analysis session.Analysis) []session.CloudResource {
	maxCapacity := 10
	if analysis.ScalabilityNeeds {
		maxCapacity = 20
	}

	return []session.CloudResource{
		{
			ResourceType: "backend_compute",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"cluster_name": "java-microservices-cluster",
				"launch_type":  "FARGATE",
				"services": []any{
					map[string]any{
						"service_name": "user-service",
						"task_definition": map[string]any{
							"family":       "user-service",
							"cpu":          "256",
							"memory":       "512",
							"network_mode": "awsvpc",
						},
						"desired_count": 2,
					},
				},
				"auto_scaling": map[string]any{
					"min_capacity":           1,
					"max_capacity":           maxCapacity,
					"target_cpu_utilization": 70,
				},
			},
			EstimatedCost: 50.0,
		},
		{
			ResourceType: "backend_loadbalancer",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"name":            "microservices-alb",
				"scheme":          "internet-facing",
				"type":            "application",
				"ip_address_type": "ipv4",
				"listeners": []any{
					map[string]any{
						"port":     80,
						"protocol": "HTTP",
						"default_action": map[string]any{
							"type": "redirect",
							"redirect_config": map[string]any{
								"protocol":    "HTTPS",
								"port":        "443",
								"status_code": "HTTP_301",
							},
						},
					},
					map[string]any{
						"port":       443,
						"protocol":   "HTTPS",
						"ssl_policy": "ELBSecurityPolicy-TLS-1-2-2017-01",
					},
				},
			},
			EstimatedCost: 25.0,
		},
	}
}

func (a *AWSAdapter) databaseResources(analysis session.Analysis) []session.CloudResource {
	engine := "postgres"
	if analysis.DatabaseNeeds == "mysql" {
		engine = "mysql"
	}

	resources := []session.CloudResource{
		{
			ResourceType: "primary_database",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"db_instance_identifier":       "microservices-db",
				"engine":                       engine,
				"db_instance_class":            "db.t3.micro",
				"allocated_storage":            20,
				"storage_type":                 "gp2",
				"storage_encrypted":            true,
				"multi_az":                     true,
				"publicly_accessible":          false,
				"backup_retention_period":      7,
				"deletion_protection":          true,
				"performance_insights_enabled": true,
			},
			EstimatedCost: 35.0,
		},
	}

	if wantsCache(analysis) {
		resources = append(resources, session.CloudResource{
			ResourceType: "cache_database",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"cache_cluster_id":           "microservices-cache",
				"engine":                     "redis",
				"engine_version":             "7.0",
				"cache_node_type":            "cache.t3.micro",
				"num_cache_nodes":            1,
				"port":                       6379,
				"at_rest_encryption_enabled": true,
				"transit_encryption_enabled": true,
			},
			EstimatedCost: 20.0,
		})
	}
	return resources
}

func (a *AWSAdapter) networkingResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "networking_vpc",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"cidr_block":           "10.0.0.0/16",
				"enable_dns_hostnames": true,
				"enable_dns_support":   true,
				"subnets": []any{
					map[string]any{"cidr_block": "10.0.1.0/24", "availability_zone": a.region + "a", "type": "public"},
					map[string]any{"cidr_block": "10.0.2.0/24", "availability_zone": a.region + "b", "type": "public"},
					map[string]any{"cidr_block": "10.0.3.0/24", "availability_zone": a.region + "a", "type": "private"},
					map[string]any{"cidr_block": "10.0.4.0/24", "availability_zone": a.region + "b", "type": "private"},
				},
			},
			EstimatedCost: 0.0,
		},
		{
			ResourceType: "api_gateway",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"name":          "microservices-api",
				"description":   "API Gateway for Java microservices",
				"endpoint_type": "REGIONAL",
				"cors_configuration": map[string]any{
					"allow_origins": []any{"https://${cloudfront_domain}"},
					"allow_headers": []any{"Content-Type", "Authorization"},
					"allow_methods": []any{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				},
			},
			EstimatedCost: 15.0,
		},
	}
}

func (a *AWSAdapter) storageResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "data_storage",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"bucket_name": "microservices-data-${random}",
				"versioning":  true,
				"encryption":  map[string]any{"sse_algorithm": "AES256"},
				"lifecycle_configuration": map[string]any{
					"rules": []any{
						map[string]any{
							"id":     "transition_to_ia",
							"status": "Enabled",
							"transitions": []any{
								map[string]any{"days": 30, "storage_class": "STANDARD_IA"},
								map[string]any{"days": 90, "storage_class": "GLACIER"},
							},
						},
					},
				},
			},
			EstimatedCost: 10.0,
		},
	}
}

func (a *AWSAdapter) monitoringResources() []session.CloudResource {
	return []session.CloudResource{
		{
			ResourceType: "monitoring",
			Provider:     session.AWS,
			Configuration: map[string]any{
				"log_groups": []any{
					map[string]any{"name": "/aws/ecs/microservices", "retention_in_days": 14},
					map[string]any{"name": "/aws/apigateway/microservices-api", "retention_in_days": 14},
				},
				"alarms": []any{
					map[string]any{
						"name":      "high-cpu-utilization",
						"metric":    "CPUUtilization",
						"threshold": 80,
						"period":    300,
					},
				},
				"dashboard": "microservices-overview",
			},
			EstimatedCost: 30.0,
		},
	}
}
