package sandbox

import (
	"fmt"
	"time"
)

// Policy defines what guest code may do: which modules it can import,
// which identifiers the pre-check rejects, and how much time and output
// a single execution is allowed. A Policy is immutable after
// construction and shared read-only by every concurrent execution.
type Policy struct {
	AllowedImports   []string      // guest modules reachable via require() or pre-binding
	BlockedNames     []string      // identifiers rejected before execution
	MaxExecutionTime time.Duration // wall-clock limit per execution
	MaxOutputChars   int           // capture cap per stream, in runes
	HTTPAllowlist    []string      // hosts the "http" module may reach, if enabled
}

// DefaultPolicy returns safe defaults for snippet execution.
func DefaultPolicy() Policy {
	return Policy{
		AllowedImports: []string{"math", "random", "datetime", "csv", "uuid", "encoding"},
		BlockedNames: []string{
			"eval", "Function", "Reflect", "Proxy", "globalThis",
			"constructor", "__proto__", "process", "child_process",
		},
		MaxExecutionTime: 10 * time.Second,
		MaxOutputChars:   10000,
	}
}

// Validate reports whether the policy can be enforced as configured.
func (p Policy) Validate() error {
	if p.MaxExecutionTime <= 0 {
		return fmt.Errorf("max execution time must be positive, got %s", p.MaxExecutionTime)
	}
	if p.MaxOutputChars <= 0 {
		return fmt.Errorf("max output chars must be positive, got %d", p.MaxOutputChars)
	}
	return nil
}

// IsImportAllowed checks if a module name is on the allowlist.
func (p Policy) IsImportAllowed(name string) bool {
	for _, allowed := range p.AllowedImports {
		if allowed == name {
			return true
		}
	}
	return false
}

// IsNameBlocked checks if an identifier is on the blocklist.
func (p Policy) IsNameBlocked(name string) bool {
	for _, blocked := range p.BlockedNames {
		if blocked == name {
			return true
		}
	}
	return false
}
