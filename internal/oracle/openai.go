// Package oracle provides the OpenAI-backed classification oracle.
package oracle

import (
	"context"

	"github.com/sashabaranov/go-openai"

	"github.com/petrijr/advisa/pkg/api"
)

// Model settings for classification requests. Temperature zero keeps the
// route tags deterministic.
const (
	defaultModel = "gpt-4o-mini"
	temperature  = 0
	maxTokens    = 1000
)

// OpenAIOracle implements api.Oracle over the OpenAI chat completion API.
type OpenAIOracle struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an oracle using the given API key. An empty model
// selects the default.
func NewOpenAI(apiKey, model string) *OpenAIOracle {
	if model == "" {
		model = defaultModel
	}
	return &OpenAIOracle{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAIWithClient wraps an existing client, for callers that need
// custom base URLs or transports.
func NewOpenAIWithClient(client *openai.Client, model string) *OpenAIOracle {
	if model == "" {
		model = defaultModel
	}
	return &OpenAIOracle{client: client, model: model}
}

// Complete implements api.Oracle. Transport failures and empty responses
// are wrapped in *api.OracleError so the caller retries them.
func (o *OpenAIOracle) Complete(ctx context.Context, messages []api.Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages:    toChatMessages(messages),
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &api.OracleError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &api.OracleError{Err: errNoChoices}
	}
	return resp.Choices[0].Message.Content, nil
}

func toChatMessages(messages []api.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		switch role {
		case api.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case api.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		default:
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

var errNoChoices = &noChoicesError{}

type noChoicesError struct{}

func (*noChoicesError) Error() string { return "completion returned no choices" }
