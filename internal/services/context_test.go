package services_test

import (
	"context"
	"testing"

	"musicbot/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithUserID(ctx, 42)
	ctx = services.WithSubmission(ctx, "AgADBAAD")
	ctx = services.WithStage(ctx, "converting")
	ctx = services.WithCommand(ctx, "config")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.UserIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected user id: %v %v", id, ok)
	}
	if key, ok := services.SubmissionFromContext(ctx); !ok || key != "AgADBAAD" {
		t.Fatalf("unexpected submission: %v %v", key, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "converting" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if cmd, ok := services.CommandFromContext(ctx); !ok || cmd != "config" {
		t.Fatalf("unexpected command: %v %v", cmd, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
}
