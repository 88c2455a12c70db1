package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// fakeClock advances instantly on Sleep so poll loops run without waiting.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}

type probe struct {
	run contractx.EngineRun
	err error
}

type fakeEngine struct {
	created   contractx.EngineRun
	createErr error

	mu     sync.Mutex
	probes []probe
	polls  int
}

func (e *fakeEngine) CreateRun(ctx context.Context, req contractx.EngineRequest) (contractx.EngineRun, error) {
	return e.created, e.createErr
}

func (e *fakeEngine) GetRun(ctx context.Context, runID string) (contractx.EngineRun, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.polls++
	if len(e.probes) == 0 {
		return contractx.EngineRun{RunID: runID, Status: contractx.EngineStatusRunning}, nil
	}
	next := e.probes[0]
	if len(e.probes) > 1 {
		e.probes = e.probes[1:]
	}
	return next.run, next.err
}

func newTestClient(t *testing.T, engine contractx.EngineClient, cfg Config) (*Client, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	client, err := NewClient(engine, cfg,
		WithClock(clock),
		WithBackOffFactory(func() backoff.BackOff {
			return backoff.NewConstantBackOff(time.Second)
		}),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, clock
}

func TestExecuteImmediateSuccess(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{created: contractx.EngineRun{
		RunID:      "remote-1",
		Status:     contractx.EngineStatusSucceeded,
		ResultText: "Table for four booked at 7pm.",
	}}
	client, _ := newTestClient(t, engine, Config{})

	r, err := client.Execute(context.Background(), contractx.EngineRequest{Engine: "subconscious"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r.Status != StatusSucceeded || r.ResultText != "Table for four booked at 7pm." {
		t.Fatalf("unexpected run: %+v", r)
	}
	if engine.polls != 0 {
		t.Fatalf("polls = %d, want 0 for synchronous completion", engine.polls)
	}
}

func TestExecutePollsUntilSucceeded(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		created: contractx.EngineRun{RunID: "remote-2", Status: contractx.EngineStatusQueued},
		probes: []probe{
			{run: contractx.EngineRun{Status: contractx.EngineStatusQueued}},
			{run: contractx.EngineRun{Status: contractx.EngineStatusRunning}},
			{run: contractx.EngineRun{Status: contractx.EngineStatusSucceeded, ResultText: "done"}},
		},
	}
	client, _ := newTestClient(t, engine, Config{})

	r, err := client.Execute(context.Background(), contractx.EngineRequest{Engine: "subconscious"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r.Status != StatusSucceeded || r.ResultText != "done" {
		t.Fatalf("unexpected run: %+v", r)
	}
	if engine.polls != 3 {
		t.Fatalf("polls = %d, want 3", engine.polls)
	}
	if r.RemoteID != "remote-2" {
		t.Fatalf("RemoteID = %q", r.RemoteID)
	}
}

func TestExecuteTimesOutWhenBudgetExceeded(t *testing.T) {
	t.Parallel()

	// Engine never completes; the fake clock advances one second per poll, so
	// a five second budget is exhausted after a handful of probes.
	engine := &fakeEngine{created: contractx.EngineRun{RunID: "remote-3", Status: contractx.EngineStatusRunning}}
	client, clock := newTestClient(t, engine, Config{Budget: 5 * time.Second})

	start := clock.Now()
	r, err := client.Execute(context.Background(), contractx.EngineRequest{Engine: "subconscious"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r.Status != StatusTimedOut {
		t.Fatalf("Status = %s, want timed_out", r.Status)
	}
	if elapsed := clock.Now().Sub(start); elapsed < 5*time.Second {
		t.Fatalf("gave up after %s, before the budget", elapsed)
	}
	if engine.polls == 0 {
		t.Fatal("expected at least one poll before timing out")
	}
}

func TestExecuteFailsAfterConsecutiveTransientErrors(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		created: contractx.EngineRun{RunID: "remote-4", Status: contractx.EngineStatusRunning},
		probes: []probe{
			{err: fmt.Errorf("status 503: %w", contractx.ErrEngineTransient)},
		},
	}
	client, _ := newTestClient(t, engine, Config{MaxTransientFailures: 3})

	r, err := client.Execute(context.Background(), contractx.EngineRequest{Engine: "subconscious"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", r.Status)
	}
	if engine.polls != 3 {
		t.Fatalf("polls = %d, want 3", engine.polls)
	}
}

func TestExecuteRecoversFromTransientErrors(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		created: contractx.EngineRun{RunID: "remote-5", Status: contractx.EngineStatusRunning},
		probes: []probe{
			{err: fmt.Errorf("connection reset: %w", contractx.ErrEngineTransient)},
			{err: fmt.Errorf("status 502: %w", contractx.ErrEngineTransient)},
			{run: contractx.EngineRun{Status: contractx.EngineStatusSucceeded, ResultText: "recovered"}},
		},
	}
	client, _ := newTestClient(t, engine, Config{MaxTransientFailures: 3})

	r, err := client.Execute(context.Background(), contractx.EngineRequest{Engine: "subconscious"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r.Status != StatusSucceeded || r.ResultText != "recovered" {
		t.Fatalf("unexpected run: %+v", r)
	}
}

func TestExecuteSubmitFailureIsTerminal(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{createErr: errors.New("engine rejected payload")}
	client, _ := newTestClient(t, engine, Config{})

	r, err := client.Execute(context.Background(), contractx.EngineRequest{Engine: "subconscious"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r.Status != StatusFailed {
		t.Fatalf("Status = %s, want failed", r.Status)
	}
	if engine.polls != 0 {
		t.Fatalf("polls = %d, want 0 after submit failure", engine.polls)
	}
}

func TestExecuteEngineReportedFailure(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{
		created: contractx.EngineRun{RunID: "remote-6", Status: contractx.EngineStatusRunning},
		probes: []probe{
			{run: contractx.EngineRun{Status: contractx.EngineStatusFailed}},
		},
	}
	client, _ := newTestClient(t, engine, Config{})

	r, err := client.Execute(context.Background(), contractx.EngineRequest{Engine: "subconscious"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if r.Status != StatusFailed || r.ResultText != "" {
		t.Fatalf("unexpected run: %+v", r)
	}
}

func TestExecuteCancelledContextAbandonsRun(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{created: contractx.EngineRun{RunID: "remote-7", Status: contractx.EngineStatusRunning}}
	client, _ := newTestClient(t, engine, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := client.Execute(ctx, contractx.EngineRequest{Engine: "subconscious"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	// The run is abandoned in flight, not forced to a terminal state.
	if r.Status.Terminal() {
		t.Fatalf("Status = %s, want non-terminal after cancellation", r.Status)
	}
}
