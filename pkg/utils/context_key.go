package utils

// ContextKey is the key type for request-scoped values set by middleware.
type ContextKey string
