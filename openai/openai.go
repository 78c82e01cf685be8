package openai

import (
	"context"
	"os"
	"strings"

	gptLib "github.com/sashabaranov/go-openai"
	"github.com/stevegt/decant/client"
)

// noSysMsg lists models that reject a system-role message.
var noSysMsg = []string{
	"o1-preview",
	"o1-mini",
	"o3-mini",
}

// OpenAIChatClient implements the ChatClient interface for OpenAI.
type OpenAIChatClient struct {
	client *gptLib.Client
}

// NewChatClient creates a new OpenAIChatClient using the OPENAI_API_KEY
// environment variable.
func NewChatClient() *OpenAIChatClient {
	c := gptLib.NewClient(os.Getenv("OPENAI_API_KEY"))
	return &OpenAIChatClient{client: c}
}

// CompleteChat sends a chat request to the OpenAI API and returns the
// response.  It converts client.ChatMsg messages into OpenAI's
// ChatCompletionMessage format.
func (oc *OpenAIChatClient) CompleteChat(model, sysmsg string, messages []client.ChatMsg) (string, error) {
	omsgs := initMessages(model, sysmsg)
	for _, msg := range messages {
		// skip empty messages
		if len(strings.TrimSpace(msg.Content)) == 0 {
			continue
		}
		role := gptLib.ChatMessageRoleUser
		if msg.Role == client.RoleAI {
			role = gptLib.ChatMessageRoleAssistant
		}
		omsgs = append(omsgs, gptLib.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	req := gptLib.ChatCompletionRequest{
		Model:    model,
		Messages: omsgs,
	}
	resp, err := oc.client.CreateChatCompletion(context.Background(), req)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// initMessages returns the initial messages slice.  It carries the
// system message with the system role when the model supports that,
// otherwise as a user message followed by a canned acknowledgement.
func initMessages(model, sysmsg string) []gptLib.ChatCompletionMessage {
	if sysmsg == "" {
		return nil
	}
	sysmsgOk := true
	for _, m := range noSysMsg {
		if m == model {
			sysmsgOk = false
			break
		}
	}
	sysmsgRole := gptLib.ChatMessageRoleSystem
	if !sysmsgOk {
		sysmsgRole = gptLib.ChatMessageRoleUser
	}
	messages := []gptLib.ChatCompletionMessage{
		{
			Role:    sysmsgRole,
			Content: sysmsg,
		},
	}
	if !sysmsgOk {
		messages = append(messages, gptLib.ChatCompletionMessage{
			Role:    gptLib.ChatMessageRoleAssistant,
			Content: "Got it!  I will use those instructions as my system message and will follow them faithfully in each of my responses.",
		})
	}
	return messages
}

// Assert that OpenAIChatClient implements client.ChatClient.
var _ client.ChatClient = (*OpenAIChatClient)(nil)
