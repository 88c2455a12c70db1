// Package subconscious is the HTTP client for the Subconscious reasoning
// engine: create a run, probe it until terminal, read the answer.
package subconscious

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

type Config struct {
	BaseURL string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.subconscious.dev/v1"`
	APIKey  string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Engine  string        `envconfig:"ENGINE" split_words:"true" default:"tim-large"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// Client talks to the /runs API. Retries are left to the caller's poll loop,
// so the underlying SDK transport runs with retries disabled.
type Client struct {
	api           openaisdk.Client
	defaultEngine string
	log           zerolog.Logger
}

var _ contractx.EngineClient = (*Client)(nil)

func NewClient(cfg Config, opts ...option.RequestOption) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("subconscious: api key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("subconscious: base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	requestOpts := append([]option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithBaseURL(baseURL + "/"),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}, opts...)

	return &Client{
		api:           openaisdk.NewClient(requestOpts...),
		defaultEngine: strings.TrimSpace(cfg.Engine),
		log:           log.With().Str("component", "subconscious-client").Logger(),
	}, nil
}

type runInput struct {
	Instructions string                 `json:"instructions"`
	Tools        []contractx.EngineTool `json:"tools,omitempty"`
}

type runOptions struct {
	AwaitCompletion bool `json:"await_completion"`
}

type createRunBody struct {
	Engine  string      `json:"engine"`
	Input   runInput    `json:"input"`
	Options *runOptions `json:"options,omitempty"`
}

type runResult struct {
	Answer string `json:"answer"`
}

type runEnvelope struct {
	RunID  string     `json:"runId"`
	Status string     `json:"status"`
	Error  string     `json:"error,omitempty"`
	Result *runResult `json:"result,omitempty"`
}

func (c *Client) CreateRun(ctx context.Context, req contractx.EngineRequest) (contractx.EngineRun, error) {
	engine := strings.TrimSpace(req.Engine)
	if engine == "" {
		engine = c.defaultEngine
	}

	body := createRunBody{
		Engine: engine,
		Input: runInput{
			Instructions: req.Instructions,
			Tools:        req.Tools,
		},
	}
	if req.AwaitCompletion {
		body.Options = &runOptions{AwaitCompletion: true}
	}

	var env runEnvelope
	if err := c.api.Post(ctx, "runs", body, &env); err != nil {
		return contractx.EngineRun{}, classifyErr("create run", err)
	}
	c.log.Debug().Str("run_id", env.RunID).Str("status", env.Status).Msg("run created")
	return env.toEngineRun(), nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (contractx.EngineRun, error) {
	if strings.TrimSpace(runID) == "" {
		return contractx.EngineRun{}, fmt.Errorf("%w: run id is empty", contractx.ErrValidation)
	}

	var env runEnvelope
	if err := c.api.Get(ctx, "runs/"+runID, nil, &env); err != nil {
		return contractx.EngineRun{}, classifyErr("get run", err)
	}
	if env.RunID == "" {
		env.RunID = runID
	}
	return env.toEngineRun(), nil
}

func (e runEnvelope) toEngineRun() contractx.EngineRun {
	run := contractx.EngineRun{
		RunID:  e.RunID,
		Status: normalizeStatus(e.Status),
	}
	if e.Result != nil {
		run.ResultText = e.Result.Answer
	}
	// Some synchronous responses carry only the answer.
	if run.Status == "" && run.ResultText != "" {
		run.Status = contractx.EngineStatusSucceeded
	}
	if run.Status == "" {
		run.Status = contractx.EngineStatusQueued
	}
	return run
}

func normalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "queued", "pending":
		return contractx.EngineStatusQueued
	case "running", "in_progress":
		return contractx.EngineStatusRunning
	case "succeeded", "completed":
		return contractx.EngineStatusSucceeded
	case "failed", "error":
		return contractx.EngineStatusFailed
	case "cancelled", "canceled":
		return contractx.EngineStatusCancelled
	case "":
		return ""
	default:
		return strings.ToLower(strings.TrimSpace(status))
	}
}

// classifyErr tags retryable failures with ErrEngineTransient: server-side
// errors, rate limits, and anything that never produced an HTTP response.
func classifyErr(op string, err error) error {
	var apierr *openaisdk.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode >= 500 || apierr.StatusCode == 429 {
			return fmt.Errorf("subconscious: %s: status %d: %w", op, apierr.StatusCode, contractx.ErrEngineTransient)
		}
		return fmt.Errorf("subconscious: %s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("subconscious: %s: %v: %w", op, err, contractx.ErrEngineTransient)
}
