package logging

import (
	"context"
	"log/slog"

	"energysplit/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldCombination is the standardized structured logging key for combination headers.
	FieldCombination = "combination"
	// FieldSegment is the standardized structured logging key for segment identifiers.
	FieldSegment = "segment"
	// FieldReplicate is the standardized structured logging key for shuffle replicates.
	FieldReplicate = "replicate"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator-facing next step.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if name, ok := services.CombinationFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCombination, name))
	}
	if rep, ok := services.ReplicateFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldReplicate, rep))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
