package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTraceID    contextKey = "trace_id"
	keyRequestID  contextKey = "request_id"
	keyProviderID contextKey = "provider_id"
	keySkillID    contextKey = "skill_id"
)

// WithTraceID adds trace ID to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// TraceID extracts trace ID from context.
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTraceID).(string)
	return v, ok && v != ""
}

// WithRequestID adds the inbound request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, keyRequestID, requestID)
}

// RequestID extracts the inbound request ID from context.
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyRequestID).(string)
	return v, ok && v != ""
}

// WithProviderID adds the skill provider ID to context.
func WithProviderID(ctx context.Context, providerID string) context.Context {
	return context.WithValue(ctx, keyProviderID, providerID)
}

// ProviderID extracts the skill provider ID from context.
func ProviderID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyProviderID).(string)
	return v, ok && v != ""
}

// WithSkillID adds the skill being orchestrated to context.
func WithSkillID(ctx context.Context, skillID string) context.Context {
	return context.WithValue(ctx, keySkillID, skillID)
}

// SkillID extracts the skill being orchestrated from context.
func SkillID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySkillID).(string)
	return v, ok && v != ""
}
