package llm

import "testing"

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "tagged fence",
			response: "```javascript\nprint(2 + 2);\n```",
			want:     "print(2 + 2);",
		},
		{
			name:     "untagged fence",
			response: "```\nprint(1);\n```",
			want:     "print(1);",
		},
		{
			name:     "fence with surrounding prose",
			response: "Here you go:\n\n```js\nvar x = 1;\nprint(x);\n```\n\nLet me know!",
			want:     "var x = 1;\nprint(x);",
		},
		{
			name:     "no fence",
			response: "  print(42);  \n",
			want:     "print(42);",
		},
		{
			name:     "unterminated fence",
			response: "```javascript\nprint(1);",
			want:     "print(1);",
		},
		{
			name:     "first of several fences",
			response: "```\nprint(1);\n```\nor\n```\nprint(2);\n```",
			want:     "print(1);",
		},
		{
			name:     "indented fence",
			response: "  ```js\n  print(1);\n  ```",
			want:     "print(1);",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractCode(tt.response); got != tt.want {
				t.Errorf("ExtractCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractExplanation(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "prose after fence",
			response: "```javascript\nprint(2 + 2);\n```\nAdds two and two.",
			want:     "Adds two and two.",
		},
		{
			name:     "labeled explanation",
			response: "```js\nprint(1);\n```\n\nExplanation: Prints the number one.",
			want:     "Prints the number one.",
		},
		{
			name:     "label case insensitive",
			response: "```\nprint(1);\n```\nEXPLANATION:\nPrints one.",
			want:     "Prints one.",
		},
		{
			name:     "nothing after fence",
			response: "```javascript\nprint(1);\n```",
			want:     "",
		},
		{
			name:     "no fence",
			response: "print(42);",
			want:     "Generated code for the given task description.",
		},
		{
			name:     "unterminated fence",
			response: "```javascript\nprint(1);",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractExplanation(tt.response); got != tt.want {
				t.Errorf("ExtractExplanation() = %q, want %q", got, tt.want)
			}
		})
	}
}
