package core

import (
	"fmt"
	"sort"

	oai "github.com/sashabaranov/go-openai"
	. "github.com/stevegt/goadapt"
	"github.com/stevegt/decant/client"
	"github.com/stevegt/decant/mock"
	"github.com/stevegt/decant/openai"
)

var DefaultModel = "o3-mini"

// Model is a type for model name and characteristics
type Model struct {
	Name         string
	TokenLimit   int
	providerName string
	upstreamName string
	active       bool
}

func (m *Model) String() string {
	status := ""
	if m.active {
		status = "*"
	}
	return fmt.Sprintf("%1s %-20s %-10s tokens: %d", status, m.Name, m.providerName, m.TokenLimit)
}

// Models is a type that manages the set of available models.
type Models struct {
	// The list of available models.
	Available map[string]*Model
}

// NewModels creates a new Models object.
func NewModels() (models *Models) {
	models = &Models{}
	models.Available = make(map[string]*Model)
	add := func(name string, tokenLimit int, providerName string, upstreamName string) {
		m := &Model{
			Name:         name,
			TokenLimit:   tokenLimit,
			providerName: providerName,
			upstreamName: upstreamName,
		}
		models.Available[name] = m
	}

	add("gpt-3.5-turbo", 4096, "openai", oai.GPT3Dot5Turbo)
	add("gpt-4", 8192, "openai", oai.GPT4)
	add("gpt-4-turbo-preview", 128000, "openai", oai.GPT4TurboPreview)
	add("gpt-4o", 128000, "openai", oai.GPT4o)
	add("o1-preview", 128000, "openai", oai.O1Preview)
	add("o1-mini", 128000, "openai", oai.O1Mini)
	add("o3", 200000, "openai", oai.O3)
	add("o3-mini", 200000, "openai", oai.O3Mini)

	// offline canned-response provider, mostly for tests
	add("mock", 128000, "mock", "mock")

	return
}

// FindModel returns the model name and object given a model name.
// if the given model name is empty, then use DefaultModel.
func (models *Models) FindModel(model string) (name string, m *Model, err error) {
	if model == "" {
		model = DefaultModel
	}
	m, ok := models.Available[model]
	if !ok {
		err = fmt.Errorf("model %q not found", model)
		return
	}
	name = model
	return
}

// ListModels returns a list of available models sorted by provider
// name and model name.
func (models *Models) ListModels() (list []*Model) {
	for _, m := range models.Available {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].providerName == list[j].providerName {
			return list[i].Name < list[j].Name
		}
		return list[i].providerName < list[j].providerName
	})
	return
}

// chatClient returns the provider client for a model.
func (m *Model) chatClient() (c client.ChatClient, err error) {
	defer Return(&err)
	switch m.providerName {
	case "openai":
		c = openai.NewChatClient()
	case "mock":
		c = mock.NewClient()
	default:
		err = fmt.Errorf("no provider for model %q", m.Name)
	}
	return
}
