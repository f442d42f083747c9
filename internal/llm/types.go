package llm

// Role represents a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a generation conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
}

// Request describes one generation: what the snippet should do, which
// modules the sandbox will bind, and optionally the failed attempt a
// repair round should fix.
type Request struct {
	Prompt     string
	Modules    []string // module names the policy allows, for prompt framing
	Profile    *Profile // optional named override of model and prompt
	PriorCode  string   // previous attempt, for repair rounds
	PriorError string   // why the previous attempt failed
}

// Generation is the outcome of one generation call.
type Generation struct {
	Code        string `json:"code"`                  // extracted snippet, ready to execute
	Explanation string `json:"explanation,omitempty"` // prose the model wrote about the snippet
	Raw         string `json:"raw"`                   // full model response
	Model       string `json:"model"`                 // model that produced it
}

// StreamHandler receives text deltas during streaming.
type StreamHandler func(delta string)

// Helper constructors

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
