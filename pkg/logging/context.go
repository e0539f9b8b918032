package logging

import (
	"context"
)

const (
	TraceIDKey     = "trace_id"
	EventKeyKey    = "event_key"
	ServiceNameKey = "service_name"
)

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithEventKey tags the context with the effective identity of the event
// being processed, so every log line in the delta path carries it.
func WithEventKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, EventKeyKey, key)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}

func GetEventKey(ctx context.Context) string {
	if key, ok := ctx.Value(EventKeyKey).(string); ok {
		return key
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, "trace_id", traceID)
	}

	if key := GetEventKey(ctx); key != "" {
		fields = append(fields, "event_key", key)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
