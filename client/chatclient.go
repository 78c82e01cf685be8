package client

// Roles used in chat message histories.
const (
	RoleUser = "USER"
	RoleAI   = "AI"
)

// ChatMsg represents a single chat message.
type ChatMsg struct {
	Role    string
	Content string
}

// ChatClient defines the interface for chat operations.  Implementations
// (such as openai.OpenAIChatClient and mock.Client) generate a complete
// response to a message history.
type ChatClient interface {
	CompleteChat(model, sysmsg string, messages []ChatMsg) (string, error)
}
