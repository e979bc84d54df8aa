package engine

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/petrijr/advisa/internal/persistence"
	"github.com/petrijr/advisa/internal/steps"
	"github.com/petrijr/advisa/pkg/api"
)

// TestInvoke_ResumesFromPendingStep simulates a crash between the router's
// checkpoint and the metrics step: the store holds a checkpoint whose
// pending step is "metrics". Re-invoking the thread with no new input must
// execute exactly the remaining steps, never the ones already done.
func TestInvoke_ResumesFromPendingStep(t *testing.T) {
	oracle := api.NewScriptedOracle("finish")
	eng, store := newTestEngine(t, oracle)
	ctx := context.Background()

	route := api.RouteMetrics
	interrupted := api.ThreadState{
		UserInput:     "calculate my process metrics",
		ProcessReport: sampleReport(),
		Route:         route,
		ConversationHistory: []api.Message{
			{Role: api.RoleUser, Content: "calculate my process metrics"},
		},
	}
	require.NoError(t, store.Save(ctx, &api.Checkpoint{
		ThreadID:    "t1",
		Seq:         1,
		State:       interrupted,
		PendingStep: steps.NodeMetrics,
		CreatedAt:   time.Now().UTC(),
	}))

	state, err := eng.Invoke(ctx, "t1", api.Input{})
	require.NoError(t, err)

	// Only metrics and the decider ran; the router was not consulted again.
	assert.Equal(t, 1, oracle.Calls())
	assert.Equal(t, 5.0, state.CalculatedMetrics["total_steps"])
	assert.Equal(t, api.RouteFinish, state.Route)
	require.Len(t, state.ConversationHistory, 3)
}

// TestInvoke_FinishedThreadRestartsAtEntry: a new turn on a thread whose
// previous run reached the terminal node starts over at the graph entry.
func TestInvoke_FinishedThreadRestartsAtEntry(t *testing.T) {
	oracle := api.NewScriptedOracle("metrics", "finish", "query", "finish")
	eng, store := newTestEngine(t, oracle)
	ctx := context.Background()

	_, err := eng.Invoke(ctx, "t1", api.Input{
		UserInput:     "calculate my process metrics",
		ProcessReport: sampleReport(),
	})
	require.NoError(t, err)

	cp, err := store.Latest(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, api.End, cp.PendingStep)

	_, err = eng.Invoke(ctx, "t1", api.Input{UserInput: "how long is Background Check?"})
	require.NoError(t, err)

	// Second run consulted the router again (call 3 of 4).
	assert.Equal(t, 4, oracle.Calls())
}

// TestInvoke_EmptyTurnOnFinishedThread: nothing to merge and nothing
// pending leaves the thread untouched.
func TestInvoke_EmptyTurnOnFinishedThread(t *testing.T) {
	oracle := api.NewScriptedOracle("fill_gap", "finish")
	eng, store := newTestEngine(t, oracle)
	ctx := context.Background()

	_, err := eng.Invoke(ctx, "t1", api.Input{UserInput: "what is missing?"})
	require.NoError(t, err)

	before, err := store.Latest(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, api.End, before.PendingStep)
	calls := oracle.Calls()

	state, err := eng.Invoke(ctx, "t1", api.Input{})
	require.NoError(t, err)

	after, err := store.Latest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, before.Seq, after.Seq)
	assert.Equal(t, calls, oracle.Calls())
	assert.Equal(t, before.State.ConversationHistory, state.ConversationHistory)
}

// TestStream_EmptyTurnOnFinishedThread: the streaming path applies the same
// no-op rule; the stream carries only the final event with the last state.
func TestStream_EmptyTurnOnFinishedThread(t *testing.T) {
	oracle := api.NewScriptedOracle("fill_gap", "finish")
	eng, store := newTestEngine(t, oracle)
	ctx := context.Background()

	_, err := eng.Invoke(ctx, "t1", api.Input{UserInput: "what is missing?"})
	require.NoError(t, err)
	calls := oracle.Calls()

	events, err := eng.Stream(ctx, "t1", api.Input{})
	require.NoError(t, err)

	var all []api.StreamEvent
	for ev := range events {
		all = append(all, ev)
	}
	require.Len(t, all, 1)
	require.True(t, all[0].Final)
	require.NoError(t, all[0].Err)
	require.NotNil(t, all[0].State)
	assert.Equal(t, api.RouteFinish, all[0].State.Route)

	assert.Equal(t, calls, oracle.Calls())

	cp, err := store.Latest(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, api.End, cp.PendingStep)
}

// TestInvoke_SQLiteRoundTrip runs a full turn against the SQLite store to
// cover engine and durable storage together.
func TestInvoke_SQLiteRoundTrip(t *testing.T) {
	store := newTestSQLiteStoreForEngine(t)

	graph, err := steps.BuildGraph(api.NewScriptedOracle("metrics", "finish"))
	require.NoError(t, err)
	eng, err := New(Config{Graph: graph, Store: store})
	require.NoError(t, err)

	ctx := context.Background()
	state, err := eng.Invoke(ctx, "t1", api.Input{
		UserInput:     "calculate my process metrics",
		ProcessReport: sampleReport(),
	})
	require.NoError(t, err)
	assert.Equal(t, 24.0, state.CalculatedMetrics["average_step_duration"])

	snap, err := eng.GetState(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.Seq)
	assert.Equal(t, api.End, snap.PendingStep)
}

func newTestSQLiteStoreForEngine(t *testing.T) persistence.Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store, err := persistence.NewSQLiteStore(db)
	require.NoError(t, err)
	return store
}
