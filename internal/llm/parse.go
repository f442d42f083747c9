package llm

import "strings"

// ExtractCode pulls the runnable snippet out of a model response: the
// contents of the first fenced code block when one exists, otherwise
// the trimmed response itself. Language tags on the fence are ignored.
func ExtractCode(response string) string {
	lines := strings.Split(response, "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start == -1 {
		return strings.TrimSpace(response)
	}

	var body []string
	for _, line := range lines[start+1:] {
		if strings.TrimSpace(line) == "```" {
			return strings.TrimSpace(strings.Join(body, "\n"))
		}
		body = append(body, line)
	}
	// Unterminated fence: take everything after it.
	return strings.TrimSpace(strings.Join(body, "\n"))
}

// ExtractExplanation returns the prose following the first fenced code
// block, with a leading "Explanation:" label removed. When the response
// has no fence the whole reply is treated as code, so a stock
// explanation is returned instead.
func ExtractExplanation(response string) string {
	lines := strings.Split(response, "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start == -1 {
		return "Generated code for the given task description."
	}

	for i, line := range lines[start+1:] {
		if strings.TrimSpace(line) == "```" {
			rest := strings.TrimSpace(strings.Join(lines[start+1+i+1:], "\n"))
			if len(rest) >= len("explanation:") && strings.EqualFold(rest[:len("explanation:")], "explanation:") {
				rest = strings.TrimSpace(rest[len("explanation:"):])
			}
			return rest
		}
	}
	// Unterminated fence: everything after it belongs to the code.
	return ""
}
