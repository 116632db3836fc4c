package services

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id on empty context")
	}

	ctx = WithJobID(ctx, 42)
	ctx = WithStage(ctx, "analyzing")
	ctx = WithRequestID(ctx, "req-123")

	if id, ok := JobIDFromContext(ctx); !ok || id != 42 {
		t.Errorf("job id = %d, %v", id, ok)
	}
	if stage, ok := StageFromContext(ctx); !ok || stage != "analyzing" {
		t.Errorf("stage = %q, %v", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Errorf("request id = %q, %v", rid, ok)
	}
}

func TestWithStageEmptyIsNoop(t *testing.T) {
	ctx := WithStage(context.Background(), "")
	if _, ok := StageFromContext(ctx); ok {
		t.Fatal("empty stage should not be stored")
	}
}
