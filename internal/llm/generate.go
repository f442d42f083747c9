package llm

import (
	"fmt"
	"strings"
)

// defaultSystemPrompt frames the guest dialect for the model. The %s
// slot receives the module list from the active policy so the model
// never reaches for Node APIs the sandbox will reject.
const defaultSystemPrompt = `You write short JavaScript snippets for a restricted sandbox.

Rules:
- Plain synchronous JavaScript only: no async/await, no Node or browser APIs.
- Produce output with print(...) or console.log(...).
- These modules are already bound as globals: %s. Nothing else can be imported.
- Keep snippets short and self-contained.
- Respond with exactly one fenced code block and nothing outside it.`

// buildMessages assembles the conversation for one generation request,
// including the repair round when a prior attempt failed.
func buildMessages(req Request) []Message {
	prompt := defaultSystemPrompt
	if req.Profile != nil && req.Profile.SystemPrompt != "" {
		prompt = req.Profile.SystemPrompt
	}

	modules := "none"
	if len(req.Modules) > 0 {
		modules = strings.Join(req.Modules, ", ")
	}
	system := prompt
	if strings.Contains(prompt, "%s") {
		system = fmt.Sprintf(prompt, modules)
	}

	msgs := []Message{
		SystemMessage(system),
		UserMessage(req.Prompt),
	}
	if req.PriorCode != "" {
		msgs = append(msgs,
			AssistantMessage("```javascript\n"+req.PriorCode+"\n```"),
			UserMessage(fmt.Sprintf(
				"That attempt failed with: %s\nFix the snippet. Respond with one fenced code block only.",
				req.PriorError)),
		)
	}
	return msgs
}
