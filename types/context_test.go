package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	ctx = WithTraceID(ctx, "t1")
	if got, ok := TraceID(ctx); !ok || got != "t1" {
		t.Fatalf("TraceID mismatch: %v %v", got, ok)
	}

	ctx = WithRequestID(ctx, "req")
	if got, ok := RequestID(ctx); !ok || got != "req" {
		t.Fatalf("RequestID mismatch: %v %v", got, ok)
	}

	ctx = WithProviderID(ctx, "acme")
	if got, ok := ProviderID(ctx); !ok || got != "acme" {
		t.Fatalf("ProviderID mismatch: %v %v", got, ok)
	}

	ctx = WithSkillID(ctx, "lookup-order")
	if got, ok := SkillID(ctx); !ok || got != "lookup-order" {
		t.Fatalf("SkillID mismatch: %v %v", got, ok)
	}
}

func TestContextHelpers_EmptyValues(t *testing.T) {
	t.Parallel()

	ctx := WithSkillID(context.Background(), "")
	if _, ok := SkillID(ctx); ok {
		t.Fatalf("empty skill id should report absent")
	}
	if _, ok := RequestID(context.Background()); ok {
		t.Fatalf("missing request id should report absent")
	}
}
