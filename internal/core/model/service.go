package model

import "time"

// HealthStatus represents the health of a registered service.
type HealthStatus string

const (
	// HealthStatusUnknown means the service has registered but has not
	// been checked yet.
	HealthStatusUnknown HealthStatus = "unknown"
	// HealthStatusHealthy means the last check or heartbeat succeeded.
	HealthStatusHealthy HealthStatus = "healthy"
	// HealthStatusUnhealthy means the last check failed or the heartbeat
	// went stale.
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ServiceRecord is one entry in the registry. There is exactly one record
// per logical service name.
type ServiceRecord struct {
	Name            string       `json:"name"`
	URL             string       `json:"url"`
	Status          HealthStatus `json:"status"`
	RegisteredAt    time.Time    `json:"registered_at"`
	LastHealthCheck time.Time    `json:"last_health_check"`
	LastSeenHealthy time.Time    `json:"last_seen_healthy,omitempty"`
}

// ServiceStats is the summarized per-service view exposed by the gateway
// health aggregate.
type ServiceStats struct {
	Status          HealthStatus `json:"status"`
	LastHealthCheck time.Time    `json:"last_health_check"`
}

// ServiceRegistrationRequest is the payload a service posts at startup.
type ServiceRegistrationRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ServiceRegistrationResponse confirms a registration.
type ServiceRegistrationResponse struct {
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ServiceHeartbeatResponse confirms a heartbeat.
type ServiceHeartbeatResponse struct {
	Name            string    `json:"name"`
	LastHealthCheck time.Time `json:"last_health_check"`
}

// HealthPayload is the body every service returns from its health endpoint.
type HealthPayload struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// ApiResponse is the common JSON envelope of the registration API.
type ApiResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
