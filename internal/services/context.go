package services

import "context"

type contextKey string

const (
	runIDKey       contextKey = "run_id"
	combinationKey contextKey = "combination"
	replicateKey   contextKey = "replicate"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithCombination annotates context with the combination header name.
func WithCombination(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, combinationKey, name)
}

// CombinationFromContext returns the combination name if present.
func CombinationFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(combinationKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithReplicate annotates context with the shuffle replicate number.
// Replicate 0 is the unshuffled sequence and is not recorded.
func WithReplicate(ctx context.Context, replicate int) context.Context {
	if replicate <= 0 {
		return ctx
	}
	return context.WithValue(ctx, replicateKey, replicate)
}

// ReplicateFromContext extracts the replicate number if present.
func ReplicateFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(replicateKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}
