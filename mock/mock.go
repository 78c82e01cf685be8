package mock

import (
	"github.com/stevegt/decant/client"
)

// Client is a mock LLM provider for testing and offline use.  It
// implements the ChatClient interface and returns pre-configured
// responses based on the model name.  Tests can configure responses
// using SetResponse and inspect what was sent via Calls.
type Client struct {
	Responses map[string]string // model name -> response
	Calls     []Call
}

// Call records one CompleteChat invocation.
type Call struct {
	Model    string
	Sysmsg   string
	Messages []client.ChatMsg
}

// NewClient creates a new mock client.
func NewClient() *Client {
	return &Client{
		Responses: make(map[string]string),
	}
}

// SetResponse sets the response for a given model name.
func (c *Client) SetResponse(model, response string) {
	c.Responses[model] = response
}

// CompleteChat returns a pre-configured response based on the model
// name, or a default response when none has been configured.
func (c *Client) CompleteChat(model, sysmsg string, messages []client.ChatMsg) (string, error) {
	c.Calls = append(c.Calls, Call{Model: model, Sysmsg: sysmsg, Messages: messages})
	response, ok := c.Responses[model]
	if !ok {
		response = "default mock response"
	}
	return response, nil
}

// Assert that Client implements client.ChatClient.
var _ client.ChatClient = (*Client)(nil)
