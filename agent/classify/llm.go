package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	llmx "github.com/cememirsenyurt/subconscious/agent/llm"
)

type llmVerdict struct {
	NeedsSearch bool   `json:"needs_search"`
	Reason      string `json:"reason,omitempty"`
}

// LLM asks a chat model for the needs-search verdict and falls back to the
// rule-based classifier when the model cannot be reached or returns an
// unparseable reply. A turn never blocks on classifier trouble.
type LLM struct {
	runner   compose.Runnable[map[string]any, llmVerdict]
	fallback contractx.Classifier
	log      zerolog.Logger
}

var _ contractx.Classifier = (*LLM)(nil)

func NewLLM(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, fallback contractx.Classifier) (*LLM, error) {
	if fallback == nil {
		fallback = NewRules()
	}
	runner, err := llmx.CompileStructuredGraph[llmVerdict](ctx, chatModel, systemPrompt, "classifier.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile classifier graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LLM{
		runner:   runner,
		fallback: fallback,
		log:      log.With().Str("component", "classifier").Logger(),
	}, nil
}

func (c *LLM) NeedsSearch(ctx context.Context, utterance string, history []contractx.Turn) (bool, error) {
	if strings.TrimSpace(utterance) == "" {
		return false, nil
	}

	payload := map[string]any{
		"utterance": utterance,
		"history":   summarizeHistory(history),
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return c.fallback.NeedsSearch(ctx, utterance, history)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("model classification failed, using rule fallback")
		return c.fallback.NeedsSearch(ctx, utterance, history)
	}

	return out.NeedsSearch, nil
}

// summarizeHistory keeps the last few turns so the model can spot
// already-answered follow-ups without seeing the whole call.
func summarizeHistory(history []contractx.Turn) []map[string]string {
	const window = 6
	if len(history) > window {
		history = history[len(history)-window:]
	}
	out := make([]map[string]string, 0, len(history))
	for _, turn := range history {
		out = append(out, map[string]string{
			"role": string(turn.Role),
			"text": turn.Text,
		})
	}
	return out
}
