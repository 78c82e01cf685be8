package core

import (
	"fmt"
	"strings"

	"github.com/stevegt/decant/client"
	. "github.com/stevegt/goadapt"
)

// SysMsgChat is the default system message.  It nudges the model
// toward fenced, tagged code blocks so extraction has something to
// grab onto.
var SysMsgChat = "You are an expert programmer.  When you write code, put each file in its own fenced code block and tag the fence with the language name."

// Answer sends a one-shot prompt to the session's chat model and
// returns the response.
func (s *Session) Answer(sysmsg, prompt string) (resp string, err error) {
	defer Return(&err)
	if sysmsg == "" {
		sysmsg = SysMsgChat
	}
	msgs := []client.ChatMsg{
		{Role: client.RoleUser, Content: prompt},
	}
	resp, err = s.CompleteChat(s.Model, sysmsg, msgs)
	Ck(err)
	return
}

// AnswerPrompt runs a parsed prompt file through the chat model,
// honoring its Model and Sysmsg overrides and attaching its In files.
func (s *Session) AnswerPrompt(p *Prompt) (resp string, err error) {
	defer Return(&err)
	model := p.Model
	if model == "" {
		model = s.Model
	}
	sysmsg := p.Sysmsg
	if sysmsg == "" {
		sysmsg = SysMsgChat
	}
	txt, err := p.AttachIn()
	Ck(err)
	msgs := []client.ChatMsg{
		{Role: client.RoleUser, Content: txt},
	}
	resp, err = s.CompleteChat(model, sysmsg, msgs)
	Ck(err)
	return
}

// CompleteChat completes a chat with the named model.  Empty messages
// are dropped, and the total token count must fit the model's limit.
func (s *Session) CompleteChat(modelName, sysmsg string, msgs []client.ChatMsg) (response string, err error) {
	defer Return(&err)

	Debug("msgs: %s", Spprint(msgs))

	_, modelObj, err := s.models.FindModel(modelName)
	Ck(err)

	// skip empty messages
	var live []client.ChatMsg
	for _, msg := range msgs {
		if len(strings.TrimSpace(msg.Content)) == 0 {
			continue
		}
		live = append(live, msg)
	}

	// don't exceed max tokens
	totalTc, err := TokenCount(sysmsg)
	Ck(err)
	for _, msg := range live {
		tc, err := TokenCount(msg.Content)
		Ck(err)
		totalTc += tc
	}
	if totalTc > modelObj.TokenLimit {
		err = fmt.Errorf("token count %d exceeds token limit %d -- try reducing context", totalTc, modelObj.TokenLimit)
		return
	}

	response, err = s.complete(modelObj, sysmsg, live)
	Ck(err)

	Debug("response: %s", response)

	return
}

// complete routes the chat to the provider client for the given model.
func (s *Session) complete(m *Model, sysmsg string, msgs []client.ChatMsg) (out string, err error) {
	defer Return(&err)
	c := s.chat
	if c == nil {
		c, err = m.chatClient()
		Ck(err)
	}
	out, err = c.CompleteChat(m.upstreamName, sysmsg, msgs)
	Ck(err)
	return
}
