package sandbox

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Result is the uniform outcome of one execution attempt. Exactly one of
// Output / Error carries the primary payload depending on Success, but
// both fields are always present. A Result is built once per request and
// never mutated afterwards.
type Result struct {
	Success       bool    `json:"success"`
	Output        string  `json:"output"`
	Stderr        string  `json:"stderr"`
	Error         string  `json:"error"`
	Truncated     bool    `json:"truncated"`
	ExecutionTime float64 `json:"execution_time_seconds"`
}

// violationError renders a full violation list as a single guest-facing
// error string, e.g.
//
//	code rejected: disallowed import "os"; blocked identifier "eval"
func violationError(violations []Violation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return "code rejected: " + strings.Join(parts, "; ")
}

// timeoutError is the fixed message for a deadline miss. The configured
// limit is stated in seconds: "execution timed out after 10 seconds".
func timeoutError(limit time.Duration) string {
	return "execution timed out after " + secondsPhrase(limit)
}

func secondsPhrase(d time.Duration) string {
	s := d.Seconds()
	if s == math.Trunc(s) {
		return fmt.Sprintf("%d seconds", int64(s))
	}
	return fmt.Sprintf("%g seconds", s)
}
