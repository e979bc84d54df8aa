// Package advisa is a conversational process-analysis assistant built on a
// small workflow engine.
//
// A conversation thread carries a shared state (the user's utterance, an
// optional process report, the conversation history, computed metrics and
// advisory recommendations) through a fixed graph of steps: a router
// classifies the opening utterance, a set of tools answer questions, find
// documentation gaps, compute metrics or generate recommendations, and a
// decider picks the next tool or finishes the turn.
//
// Every step is checkpointed to a pluggable durable store (in-memory,
// SQLite or Redis), so an interrupted run resumes from its last completed
// step and a thread's full history survives process restarts.
//
// Basic usage:
//
//	oracle := advisa.NewOpenAIOracle(apiKey, "")
//	eng, err := advisa.NewInMemoryEngine(oracle, advisa.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	state, err := eng.Invoke(ctx, "thread-1", advisa.Input{
//		UserInput:     "calculate my process metrics",
//		ProcessReport: report,
//	})
package advisa
