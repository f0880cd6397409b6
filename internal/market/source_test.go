package market

import (
	"errors"
	"fmt"
	"testing"
)

func TestSourceErrorCarriesKind(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := newSourceError(FailureUnreachable, "BTC", MetricLastPrice, inner)

	if got := FailureKindOf(err); got != FailureUnreachable {
		t.Fatalf("FailureKindOf = %q, want %q", got, FailureUnreachable)
	}
	if !errors.Is(err, inner) {
		t.Fatal("expected wrapped error to be reachable via errors.Is")
	}

	wrapped := fmt.Errorf("sweep: %w", err)
	if got := FailureKindOf(wrapped); got != FailureUnreachable {
		t.Fatalf("FailureKindOf(wrapped) = %q, want %q", got, FailureUnreachable)
	}
}

func TestFailureKindOfPlainError(t *testing.T) {
	if got := FailureKindOf(fmt.Errorf("boom")); got != "" {
		t.Fatalf("expected empty kind for plain error, got %q", got)
	}
}
