package llm

import "strings"

// codeMarkers are substrings that essentially never appear in refusal
// or prose-only responses.
var codeMarkers = []string{
	"print(", "console.", "var ", "let ", "const ", "function ",
	"=>", "for (", "while (", "if (", "return ", "require(",
}

// refusalOpeners mark responses that are apologies rather than code.
var refusalOpeners = []string{
	"i can't", "i cannot", "i'm sorry", "sorry,", "as an ai",
}

// LooksLikeCode reports whether text plausibly is a runnable snippet
// rather than prose. It is a coarse gate: the sandbox still decides
// what actually runs.
func LooksLikeCode(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}

	lower := strings.ToLower(t)
	for _, opener := range refusalOpeners {
		if strings.HasPrefix(lower, opener) {
			return false
		}
	}

	for _, m := range codeMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}

	// A bare expression like "2 + 2" still runs.
	return strings.Count(t, "\n") == 0 && strings.ContainsAny(t, "+-*/%()=")
}

// TaskValidation is the outcome of checking a task description before
// spending a generation call on it.
type TaskValidation struct {
	Valid       bool     `json:"valid"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// vagueTerms flag descriptions that tend to produce unusable code.
var vagueTerms = []string{"something", "anything", "stuff", "thing"}

// ValidateTask runs cheap heuristics over a task description. It never
// calls the generator and has no bearing on sandbox safety; it exists
// to catch prompts that would waste a generation round trip.
func ValidateTask(task string) TaskValidation {
	if len(strings.TrimSpace(task)) < 5 {
		return TaskValidation{
			Valid:   false,
			Message: "Task description is too short. Please provide more details.",
			Suggestions: []string{
				"Describe what you want the code to do",
				"Include input/output requirements",
				"Specify any constraints or requirements",
			},
		}
	}

	lower := strings.ToLower(task)
	for _, term := range vagueTerms {
		if strings.Contains(lower, term) {
			return TaskValidation{
				Valid:   true,
				Message: "Your description seems vague. Consider being more specific.",
				Suggestions: []string{
					"Be more specific about the desired functionality",
					"Include examples of expected input/output",
					"Mention any specific algorithms or approaches",
				},
			}
		}
	}

	return TaskValidation{
		Valid:       true,
		Message:     "Task description looks good.",
		Suggestions: []string{},
	}
}
