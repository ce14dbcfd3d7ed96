package integrity

import (
	"context"
	"testing"
)

// TestCheck_EmptyProtocolIDShortCircuits confirms Check never reaches the
// database when handed an empty scope, by passing a nil *sql.DB that would
// panic on first use if any query ran.
func TestCheck_EmptyProtocolIDShortCircuits(t *testing.T) {
	checker := NewChecker(nil)

	report, err := checker.Check(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if report == nil {
		t.Fatal("expected a non-nil empty report")
	}
	if len(report.Findings) != 0 {
		t.Fatalf("expected no findings for empty scope, got %v", report.Findings)
	}
	if report.ProtocolID != "" {
		t.Fatalf("expected empty protocol id echoed back, got %q", report.ProtocolID)
	}
}
