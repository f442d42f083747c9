package llm

import "testing"

func TestLooksLikeCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"print call", `print("hello");`, true},
		{"console call", `console.log(1)`, true},
		{"declaration", "var x = 1;\nprint(x);", true},
		{"arrow function", "[1, 2].map(n => n * 2)", true},
		{"bare expression", "2 + 2", true},
		{"empty", "", false},
		{"whitespace only", "   \n\t", false},
		{"prose", "The answer is four.", false},
		{"multiline prose", "First compute the total.\nThen print it.", false},
		{"refusal", "I can't run arbitrary code for you.", false},
		{"apology", "Sorry, that request is outside what I can do (policy).", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeCode(tt.text); got != tt.want {
				t.Errorf("LooksLikeCode(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestValidateTask(t *testing.T) {
	tests := []struct {
		name            string
		task            string
		wantValid       bool
		wantSuggestions bool
	}{
		{"good description", "Sum the numbers from 1 to 100 and print the total", true, false},
		{"too short", "hi", false, true},
		{"whitespace only", "        ", false, true},
		{"vague term", "do something with numbers", true, true},
		{"vague term capitalized", "Print Anything interesting", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ValidateTask(tt.task)
			if v.Valid != tt.wantValid {
				t.Errorf("ValidateTask(%q).Valid = %v, want %v", tt.task, v.Valid, tt.wantValid)
			}
			if got := len(v.Suggestions) > 0; got != tt.wantSuggestions {
				t.Errorf("ValidateTask(%q) suggestions = %v, want suggestions %v", tt.task, v.Suggestions, tt.wantSuggestions)
			}
			if v.Message == "" {
				t.Error("ValidateTask() returned an empty message")
			}
			if v.Suggestions == nil {
				t.Error("ValidateTask() suggestions must never be nil")
			}
		})
	}
}
