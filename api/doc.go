// Package api documents the HTTP surface of the conversational skill provider.
//
// # API Overview
//
// The provider exposes its skills to a conversational orchestrator:
//   - GET  /providers/{providerId}/conversational_skills
//   - GET  /providers/{providerId}/conversational_skills/{skillId}
//   - POST /providers/{providerId}/conversational_skills/{skillId}/orchestrate
//
// Health endpoints (/health, /healthz, /ready, /readyz, /health/alive,
// /health/ready, /version) are served on the same port without
// authentication. Prometheus metrics are served on a separate port.
//
// # Authentication
//
// The method is chosen by skill_provider.security.authentication_method:
//
//	basic    Authorization: Basic base64(user:password)
//	bearer   Authorization: Bearer <static token or HS256 JWT>
//	api_key  header, query parameter or cookie named by api_key.name
//
// Unauthenticated requests receive 401 with {"err":"_ERR_NOT_AUTHENTICATED"}.
//
// # Generating Documentation
//
// Handlers carry swag annotations:
//
//	swag init -g cmd/convskills/main.go -o api --parseDependency --parseInternal
package api
