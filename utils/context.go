package utils

// ContextKey is the type of request-scoped context keys set by transports
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	EndpointKey  ContextKey = "endpoint"
)
