package storage

import (
	"strings"
	"testing"
	"time"
)

func TestExportMarkdown(t *testing.T) {
	r := &Run{
		ID:            "run-1",
		Kind:          KindGenerate,
		Prompt:        "add two numbers",
		Model:         "gpt-4o-mini",
		Code:          "print(2 + 2)",
		Explanation:   "Prints the sum of two and two.",
		Success:       true,
		Output:        "4\n",
		ExecutionTime: 0.01,
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	md := ExportMarkdown(r)

	for _, want := range []string{
		"# Run run-1",
		"add two numbers",
		"```javascript\nprint(2 + 2)\n```",
		"Prints the sum of two and two.",
		"## Output",
		"gpt-4o-mini",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestExportMarkdownFailedRun(t *testing.T) {
	r := &Run{
		ID:    "run-2",
		Kind:  KindExecute,
		Code:  "import os",
		Error: `code rejected: disallowed import "os"`,
	}

	md := ExportMarkdown(r)
	if !strings.Contains(md, "## Error") || !strings.Contains(md, `disallowed import "os"`) {
		t.Errorf("markdown missing error section:\n%s", md)
	}
	if strings.Contains(md, "## Output") {
		t.Errorf("markdown has empty output section:\n%s", md)
	}
}

func TestExportJSON(t *testing.T) {
	r := &Run{ID: "run-3", Code: "print(1)", Success: true}

	data, err := ExportJSON(r)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	for _, want := range []string{`"id": "run-3"`, `"success": true`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("json missing %q:\n%s", want, data)
		}
	}
}
