package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are attached to every log record written with a context that carries them.
// Dispatcher ticks and webhook handlers enrich the context once and every slog call
// below them picks the fields up through TraceHandler.
type LogFields struct {
	DeliveryID *int64  // Snowflake id assigned to an inbound agent event
	Lane       *string // Queue lane an item was enqueued to or popped from
	Outcome    *string // Dispatch or verification outcome
	ClientIP   *string
	Component  string // OTel semantic convention style, e.g. "relay.worker.dispatcher"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, newer non-nil/non-empty values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or an empty LogFields.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.DeliveryID != nil {
		result.DeliveryID = next.DeliveryID
	}
	if next.Lane != nil {
		result.Lane = next.Lane
	}
	if next.Outcome != nil {
		result.Outcome = next.Outcome
	}
	if next.ClientIP != nil {
		result.ClientIP = next.ClientIP
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{Lane: logger.Ptr("high")})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen bytes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
