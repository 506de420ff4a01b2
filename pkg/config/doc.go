// Package config provides application configuration management from environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	ATRIUM_HOST="0.0.0.0"
//	ATRIUM_PORT="8080"
//	ATRIUM_HEALTH_PORT="9090"
//	ATRIUM_READ_TIMEOUT="15s"
//	ATRIUM_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	ATRIUM_POSTGRES_URL="postgres://localhost/atrium"
//	ATRIUM_POSTGRES_REPLICA_URLS="postgres://replica1/atrium,postgres://replica2/atrium"
//	ATRIUM_POSTGRES_MAX_CONNS="25"
//
// Redis / rate limiting settings:
//
//	ATRIUM_REDIS_URL="redis://localhost:6379"
//	ATRIUM_RATELIMIT_ENABLED="true"
//	ATRIUM_RATELIMIT_RPM="600"
//
// Observability settings:
//
//	ATRIUM_LOG_LEVEL="info"  # debug, info, warn, error
//	ATRIUM_METRICS_ENABLED="true"
//	ATRIUM_OTEL_ENABLED="false"
//	ATRIUM_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Related Packages
//
//   - pkg/pgdb: Uses database configuration
//   - pkg/observability: Uses observability configuration
package config
