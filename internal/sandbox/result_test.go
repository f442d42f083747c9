package sandbox

import (
	"testing"
	"time"
)

func TestTimeoutErrorMessage(t *testing.T) {
	tests := []struct {
		limit time.Duration
		want  string
	}{
		{10 * time.Second, "execution timed out after 10 seconds"},
		{1500 * time.Millisecond, "execution timed out after 1.5 seconds"},
		{200 * time.Millisecond, "execution timed out after 0.2 seconds"},
	}

	for _, tt := range tests {
		if got := timeoutError(tt.limit); got != tt.want {
			t.Errorf("timeoutError(%s) = %q, want %q", tt.limit, got, tt.want)
		}
	}
}

func TestViolationErrorJoinsAll(t *testing.T) {
	got := violationError([]Violation{
		{Kind: ViolationDisallowedImport, Identifier: "os"},
		{Kind: ViolationBlockedName, Identifier: "eval"},
	})
	want := `code rejected: disallowed import "os"; blocked identifier "eval"`
	if got != want {
		t.Errorf("violationError() = %q, want %q", got, want)
	}
}
