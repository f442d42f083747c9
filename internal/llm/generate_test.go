package llm

import (
	"strings"
	"testing"
)

func TestBuildMessages(t *testing.T) {
	msgs := buildMessages(Request{
		Prompt:  "sum the first ten squares",
		Modules: []string{"math", "random"},
	})

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("first role = %s, want system", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "math, random") {
		t.Errorf("system prompt missing module list: %q", msgs[0].Content)
	}
	if msgs[1].Content != "sum the first ten squares" {
		t.Errorf("user message = %q", msgs[1].Content)
	}
}

func TestBuildMessagesRepairRound(t *testing.T) {
	msgs := buildMessages(Request{
		Prompt:     "parse the csv",
		PriorCode:  `print(rows[0]);`,
		PriorError: "ReferenceError: rows is not defined",
	})

	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	if msgs[2].Role != RoleAssistant || !strings.Contains(msgs[2].Content, "print(rows[0]);") {
		t.Errorf("repair round missing prior code: %+v", msgs[2])
	}
	if !strings.Contains(msgs[3].Content, "ReferenceError: rows is not defined") {
		t.Errorf("repair round missing prior error: %q", msgs[3].Content)
	}
}

func TestBuildMessagesProfilePrompt(t *testing.T) {
	msgs := buildMessages(Request{
		Prompt:  "anything",
		Modules: []string{"math"},
		Profile: &Profile{SystemPrompt: "Terse snippets only."},
	})

	if msgs[0].Content != "Terse snippets only." {
		t.Errorf("system prompt = %q, want profile prompt verbatim", msgs[0].Content)
	}
}
