package advisa

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/advisa/internal/engine"
	"github.com/petrijr/advisa/internal/oracle"
	"github.com/petrijr/advisa/internal/persistence"
	"github.com/petrijr/advisa/internal/steps"
	"github.com/petrijr/advisa/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine            = api.Engine
	Input             = api.Input
	Message           = api.Message
	ThreadState       = api.ThreadState
	StateDelta        = api.StateDelta
	StateSnapshot     = api.StateSnapshot
	ProcessReport     = api.ProcessReport
	ProcessStep       = api.ProcessStep
	HistoricalData    = api.HistoricalData
	Route             = api.Route
	Oracle            = api.Oracle
	ScriptedOracle    = api.ScriptedOracle
	StreamEvent       = api.StreamEvent
	StreamMode        = api.StreamMode
	Checkpoint        = api.Checkpoint
	Observer          = api.Observer
	NoopObserver      = api.NoopObserver
	LoggingObserver   = api.LoggingObserver
	CompositeObserver = api.CompositeObserver
)

// Re-export common helpers.

var (
	NewScriptedOracle    = api.NewScriptedOracle
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	UserMessage          = api.UserMessage
)

// Re-export route tags and stream modes for convenience.

const (
	RouteQuery    = api.RouteQuery
	RouteFillGap  = api.RouteFillGap
	RouteMetrics  = api.RouteMetrics
	RouteAdvisory = api.RouteAdvisory
	RouteFinish   = api.RouteFinish

	StreamNodeUpdate = api.StreamNodeUpdate
	StreamMessage    = api.StreamMessage
	StreamProgress   = api.StreamProgress
)

// Options tunes an engine constructor. The zero value applies defaults.
type Options struct {
	// Observer receives run and step lifecycle callbacks.
	Observer api.Observer

	// MaxIterations caps the number of steps per run.
	MaxIterations int
}

// Engine constructors
// These wrap the internal packages so external callers never need to
// import them directly.

// NewInMemoryEngine returns an Engine whose checkpoints live in memory.
// Suitable for tests and single-process experiments.
func NewInMemoryEngine(o api.Oracle, opts Options) (Engine, error) {
	return newEngine(o, persistence.NewInMemoryStore(), opts)
}

// NewSQLiteEngine returns an Engine that persists checkpoints in a SQLite
// database.
func NewSQLiteEngine(db *sql.DB, o api.Oracle, opts Options) (Engine, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return newEngine(o, store, opts)
}

// NewRedisEngine returns an Engine that persists checkpoints in Redis.
func NewRedisEngine(client *redis.Client, o api.Oracle, opts Options) (Engine, error) {
	return newEngine(o, persistence.NewRedisStore(client, ""), opts)
}

func newEngine(o api.Oracle, store persistence.Store, opts Options) (Engine, error) {
	graph, err := steps.BuildGraph(o)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Graph:         graph,
		Store:         store,
		Observer:      opts.Observer,
		MaxIterations: opts.MaxIterations,
	})
}

// NewOpenAIOracle returns an Oracle backed by the OpenAI chat completion
// API. An empty model selects the default.
func NewOpenAIOracle(apiKey, model string) Oracle {
	return oracle.NewOpenAI(apiKey, model)
}
