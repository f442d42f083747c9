package storage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExportMarkdown renders a run as a markdown document.
func ExportMarkdown(r *Run) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Run %s\n\n", r.ID))
	b.WriteString(fmt.Sprintf("- **Kind:** %s\n", r.Kind))
	if r.Model != "" {
		b.WriteString(fmt.Sprintf("- **Model:** %s\n", r.Model))
	}
	b.WriteString(fmt.Sprintf("- **Created:** %s\n", r.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("- **Success:** %t\n", r.Success))
	b.WriteString(fmt.Sprintf("- **Duration:** %.3fs\n", r.ExecutionTime))
	b.WriteString("\n---\n\n")

	if r.Prompt != "" {
		b.WriteString(fmt.Sprintf("## Prompt\n\n%s\n\n", r.Prompt))
	}
	b.WriteString(fmt.Sprintf("## Code\n\n```javascript\n%s\n```\n\n", r.Code))

	if r.Explanation != "" {
		b.WriteString(fmt.Sprintf("%s\n\n", r.Explanation))
	}
	if r.Output != "" {
		b.WriteString(fmt.Sprintf("## Output\n\n```\n%s```\n\n", r.Output))
	}
	if r.Stderr != "" {
		b.WriteString(fmt.Sprintf("## Stderr\n\n```\n%s```\n\n", r.Stderr))
	}
	if r.Error != "" {
		b.WriteString(fmt.Sprintf("## Error\n\n%s\n\n", r.Error))
	}
	if r.Truncated {
		b.WriteString("_(output truncated at the configured cap)_\n")
	}

	return b.String()
}

// ExportJSON renders a run as formatted JSON.
func ExportJSON(r *Run) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
