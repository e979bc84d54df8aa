package steps

import (
	"context"
	"errors"

	"github.com/petrijr/advisa/pkg/api"
)

const routerPrompt = `You are an intelligent assistant analyzing business processes.
Decide what the user is trying to do:

Choices:
- "query": ask about the process
- "fill_gap": respond to a question from the generated report
- "metrics": calculate process metrics
- "advisory": ask for suggestions/improvements

Answer with the choice name only.`

// oracleAttempts bounds retries of a single classification request.
// Oracle failures are transient; anything still failing after this many
// attempts propagates as *api.OracleError.
const oracleAttempts = 3

// classify asks the oracle and interprets the first line of its reply as
// the route tag. Non-oracle errors (including context cancellation) are
// not retried.
func classify(ctx context.Context, oracle api.Oracle, messages []api.Message) (api.Route, error) {
	var lastErr error
	for attempt := 0; attempt < oracleAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		reply, err := oracle.Complete(ctx, messages)
		if err == nil {
			return api.Route(api.FirstLine(reply)), nil
		}
		lastErr = err

		var oerr *api.OracleError
		if !errors.As(err, &oerr) {
			return "", err
		}
	}
	return "", lastErr
}

// Router classifies the opening user utterance into a route tag. It is
// invoked once per thread, from the entry node, and produces no
// conversation turn itself.
func Router(oracle api.Oracle) api.NodeFunc {
	return func(ctx context.Context, state api.ThreadState) (api.StateDelta, error) {
		tag, err := classify(ctx, oracle, []api.Message{
			{Role: api.RoleSystem, Content: routerPrompt},
			{Role: api.RoleUser, Content: state.UserInput},
		})
		if err != nil {
			return api.StateDelta{}, err
		}
		return api.StateDelta{Route: &tag}, nil
	}
}
