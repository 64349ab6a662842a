package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "order service failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithUpstreamStatus(401).
		WithRetryable(true).
		WithSkill("lookup-order")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
	if err.UpstreamStatus != 401 {
		t.Fatalf("expected upstream status 401, got %d", err.UpstreamStatus)
	}
	if err.SkillID != "lookup-order" {
		t.Fatalf("expected skill id to be recorded, got %q", err.SkillID)
	}
}

func TestError_WrappedLookup(t *testing.T) {
	t.Parallel()

	inner := Errorf(ErrSkillNotFound, "skill %q is not registered", "nope")
	wrapped := fmt.Errorf("dispatch: %w", inner)

	if !IsErrorCode(wrapped, ErrSkillNotFound) {
		t.Fatalf("expected wrapped code to be found")
	}
	if IsErrorCode(wrapped, ErrInvalidProvider) {
		t.Fatalf("unexpected code match")
	}
	if GetErrorCode(errors.New("plain")) != "" {
		t.Fatalf("plain errors carry no code")
	}
	if IsRetryable(wrapped) {
		t.Fatalf("not retryable by default")
	}
}
