package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// Config tunes the submit-and-poll loop around one engine run.
type Config struct {
	// Budget is the wall-clock ceiling for a run, submission included.
	Budget time.Duration `envconfig:"BUDGET" default:"90s"`

	// InitialInterval and MaxInterval shape the poll backoff.
	InitialInterval time.Duration `envconfig:"INITIAL_INTERVAL" default:"1500ms"`
	MaxInterval     time.Duration `envconfig:"MAX_INTERVAL" default:"10s"`

	// MaxTransientFailures caps consecutive transient poll errors before the
	// run is declared failed.
	MaxTransientFailures int `envconfig:"MAX_TRANSIENT_FAILURES" default:"5"`
}

// Client drives a reasoning-engine run to a terminal state: it submits the
// request, polls with exponential backoff, and enforces the time budget.
type Client struct {
	engine     contractx.EngineClient
	cfg        Config
	clock      Clock
	newBackOff func() backoff.BackOff
	log        zerolog.Logger
}

type Option func(*Client)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithBackOffFactory replaces the poll interval policy.
func WithBackOffFactory(factory func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = factory }
}

func NewClient(engine contractx.EngineClient, cfg Config, opts ...Option) (*Client, error) {
	if engine == nil {
		return nil, errors.New("run: engine client is required")
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 90 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 1500 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 10 * time.Second
	}
	if cfg.MaxTransientFailures <= 0 {
		cfg.MaxTransientFailures = 5
	}

	c := &Client{
		engine: engine,
		cfg:    cfg,
		clock:  SystemClock(),
		log:    log.With().Str("component", "run-client").Logger(),
	}
	c.newBackOff = func() backoff.BackOff {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = cfg.InitialInterval
		bo.MaxInterval = cfg.MaxInterval
		return bo
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Execute submits the request once and drives the resulting run to a terminal
// state. Engine-side outcomes land in the returned Run's Status; a non-nil
// error is returned only when the context is cancelled, in which case the run
// is abandoned without a terminal transition.
func (c *Client) Execute(ctx context.Context, req contractx.EngineRequest) (*Run, error) {
	r := &Run{
		ID:          uuid.NewString(),
		Status:      StatusQueued,
		SubmittedAt: c.clock.Now().UTC(),
	}
	deadline := r.SubmittedAt.Add(c.cfg.Budget)
	rlog := c.log.With().Str("run_id", r.ID).Str("engine", req.Engine).Logger()

	created, err := c.engine.CreateRun(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return r, ctx.Err()
		}
		rlog.Error().Err(err).Msg("run submission failed")
		r.fail(fmt.Sprintf("submit: %v", err))
		return r, nil
	}
	r.RemoteID = created.RunID
	rlog.Debug().Str("remote_id", r.RemoteID).Str("status", created.Status).Msg("run submitted")

	if done, err := c.absorb(r, created); done || err != nil {
		return r, err
	}

	bo := c.newBackOff()
	transient := 0
	for {
		now := c.clock.Now()
		if !now.Before(deadline) {
			rlog.Warn().Dur("budget", c.cfg.Budget).Msg("run exceeded time budget")
			r.timeout(fmt.Sprintf("budget %s exceeded", c.cfg.Budget))
			return r, nil
		}

		wait := bo.NextBackOff()
		if remaining := deadline.Sub(now); wait > remaining {
			wait = remaining
		}
		if err := c.clock.Sleep(ctx, wait); err != nil {
			rlog.Debug().Err(err).Msg("run abandoned")
			return r, err
		}

		probe, err := c.engine.GetRun(ctx, r.RemoteID)
		if err != nil {
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			if errors.Is(err, contractx.ErrEngineTransient) {
				transient++
				rlog.Warn().Err(err).Int("consecutive", transient).Msg("transient poll failure")
				if transient >= c.cfg.MaxTransientFailures {
					r.fail(fmt.Sprintf("poll: %d consecutive transient failures: %v", transient, err))
					return r, nil
				}
				continue
			}
			rlog.Error().Err(err).Msg("poll failed")
			r.fail(fmt.Sprintf("poll: %v", err))
			return r, nil
		}
		transient = 0

		if done, err := c.absorb(r, probe); done || err != nil {
			return r, err
		}
	}
}

// absorb folds an engine-reported snapshot into the local state machine.
// It reports whether the run reached a terminal state.
func (c *Client) absorb(r *Run, remote contractx.EngineRun) (bool, error) {
	switch remote.Status {
	case contractx.EngineStatusQueued:
		return false, nil
	case contractx.EngineStatusRunning:
		if err := r.start(); err != nil {
			return false, err
		}
		return false, nil
	case contractx.EngineStatusSucceeded:
		if err := r.succeed(remote.ResultText); err != nil {
			return false, err
		}
		return true, nil
	case contractx.EngineStatusFailed, contractx.EngineStatusCancelled:
		if err := r.fail(fmt.Sprintf("engine reported %s", remote.Status)); err != nil {
			return false, err
		}
		return true, nil
	default:
		if err := r.fail(fmt.Sprintf("engine reported unknown status %q", remote.Status)); err != nil {
			return false, err
		}
		return true, nil
	}
}
