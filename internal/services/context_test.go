package services_test

import (
	"context"
	"testing"

	"energysplit/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithCombination(ctx, "SNORD13 x cd_box")
	ctx = services.WithReplicate(ctx, 2)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if name, ok := services.CombinationFromContext(ctx); !ok || name != "SNORD13 x cd_box" {
		t.Fatalf("unexpected combination: %v %v", name, ok)
	}
	if rep, ok := services.ReplicateFromContext(ctx); !ok || rep != 2 {
		t.Fatalf("unexpected replicate: %v %v", rep, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithCombination(ctx, "")
	ctx = services.WithReplicate(ctx, 0)
	if _, ok := services.CombinationFromContext(ctx); ok {
		t.Fatal("expected no combination value")
	}
	if _, ok := services.ReplicateFromContext(ctx); ok {
		t.Fatal("expected no replicate value")
	}
}
