package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	customerx "github.com/cememirsenyurt/subconscious/agent/customer"
	nodex "github.com/cememirsenyurt/subconscious/agent/nodes"
	personax "github.com/cememirsenyurt/subconscious/agent/persona"
	sessionx "github.com/cememirsenyurt/subconscious/agent/session"
	"github.com/cememirsenyurt/subconscious/pkg/subconscious"
)

var (
	ErrInvalidUtterance = nodex.ErrInvalidUtterance
	ErrInvalidSession   = nodex.ErrInvalidSession
)

type Config struct {
	// Engine names the reasoning engine for runs; empty defers to the
	// engine client's default.
	Engine string

	// SearchTools are attached to runs the classifier marks as needing
	// research. Defaults to the platform research toolset.
	SearchTools []contractx.EngineTool
}

// Orchestrator drives one conversation turn through the pipeline: session
// load, entity extraction, identity resolution, search classification,
// instruction assembly, the engine run, and memory writes.
type Orchestrator struct {
	sessions   sessionx.Store
	customers  customerx.Store
	classifier contractx.Classifier
	extractor  contractx.Extractor
	runner     nodex.RunExecutor

	engine      string
	searchTools []contractx.EngineTool

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time

	// turnLocks serializes turns per session: a session is one phone call,
	// and a second utterance must not race the first.
	turnLocks sync.Map
}

func New(
	sessions sessionx.Store,
	customers customerx.Store,
	classifier contractx.Classifier,
	extractor contractx.Extractor,
	runner nodex.RunExecutor,
	cfg Config,
) (*Orchestrator, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if customers == nil {
		return nil, errors.New("customer store is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if runner == nil {
		return nil, errors.New("run executor is required")
	}

	searchTools := cfg.SearchTools
	if len(searchTools) == 0 {
		searchTools = subconscious.ResearchTools()
	}

	o := &Orchestrator{
		sessions:    sessions,
		customers:   customers,
		classifier:  classifier,
		extractor:   extractor,
		runner:      runner,
		engine:      cfg.Engine,
		searchTools: searchTools,
		now:         time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one customer utterance and returns the agent's spoken
// reply. Turns within a session run one at a time.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, businessID, utterance string) (string, error) {
	mu := o.turnLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID:  sessionID,
		BusinessID: businessID,
		Utterance:  utterance,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// Catalog returns the business personas available to callers.
func (o *Orchestrator) Catalog() map[string]personax.Persona {
	return personax.Catalog()
}

// ResetSession discards in-call state. Long-term customer memory survives.
// It waits for an in-flight turn on the session to finish; the mutex entry is
// kept so a turn racing the reset cannot mint a fresh lock and overlap.
func (o *Orchestrator) ResetSession(sessionID string) {
	mu := o.turnLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	o.sessions.Reset(sessionID)
}

func (o *Orchestrator) turnLock(sessionID string) *sync.Mutex {
	mu, _ := o.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
