package steps

import (
	"context"

	"github.com/petrijr/advisa/pkg/api"
)

const deciderPrompt = `You are a process assistant. Based on the full history of the conversation, decide what to do next.

Available options:
- "query": user still wants answers about the process
- "fill_gap": user wants to clarify something in the report
- "metrics": user wants more structural metrics
- "advisory": user seeks suggestions
- "finish": end the session with a final answer

Answer with the option name only.`

// Decider runs after every tool step. It reads the full conversation and
// picks the next tool, or "finish" to end the session. Its choice is
// logged as an assistant turn so later decisions can see it.
func Decider(oracle api.Oracle) api.NodeFunc {
	return func(ctx context.Context, state api.ThreadState) (api.StateDelta, error) {
		messages := make([]api.Message, 0, len(state.ConversationHistory)+1)
		messages = append(messages, api.Message{Role: api.RoleSystem, Content: deciderPrompt})
		messages = append(messages, state.ConversationHistory...)

		tag, err := classify(ctx, oracle, messages)
		if err != nil {
			return api.StateDelta{}, err
		}

		return api.StateDelta{
			Route: &tag,
			AppendMessages: []api.Message{
				{Role: api.RoleAssistant, Content: string(tag)},
			},
		}, nil
	}
}
