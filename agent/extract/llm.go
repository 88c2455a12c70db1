package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/tidwall/gjson"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	llmx "github.com/cememirsenyurt/subconscious/agent/llm"
)

// LLM asks a chat model to extract facts as a flat JSON object. Unlike the
// classifier there is no silent fallback here: a malformed reply surfaces as
// ErrExtraction so the orchestrator can keep the prior facts and move on.
type LLM struct {
	runner compose.Runnable[map[string]any, string]
}

var _ contractx.Extractor = (*LLM)(nil)

func NewLLM(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*LLM, error) {
	runner, err := llmx.CompileTextGraph(ctx, chatModel, systemPrompt, "extractor.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile extractor graph: %v", contractx.ErrModelInvoke, err)
	}
	return &LLM{runner: runner}, nil
}

func (e *LLM) Extract(ctx context.Context, utterance string, known map[string]string) (map[string]string, error) {
	if strings.TrimSpace(utterance) == "" {
		return map[string]string{}, nil
	}

	payload := map[string]any{
		"utterance":   utterance,
		"known_facts": known,
	}
	inputBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal extractor payload: %v", contractx.ErrValidation, err)
	}

	raw, err := e.runner.Invoke(ctx, map[string]any{
		"input": string(inputBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: extractor invoke: %v", contractx.ErrModelInvoke, err)
	}

	return ParseFacts(raw)
}

// ParseFacts decodes a model reply into a flat fact map. Models wrap JSON in
// code fences or prose more often than not, so the first JSON object found in
// the text is used. Non-string leaf values are stringified; nested values are
// dropped.
func ParseFacts(raw string) (map[string]string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty extractor reply", contractx.ErrExtraction)
	}

	if i := strings.IndexByte(text, '{'); i >= 0 {
		if j := strings.LastIndexByte(text, '}'); j > i {
			text = text[i : j+1]
		}
	}

	parsed := gjson.Parse(text)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("%w: %w: extractor reply is not a JSON object: %.80q",
			contractx.ErrExtraction, contractx.ErrSchemaViolation, raw)
	}

	found := map[string]string{}
	parsed.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			return true
		}
		v := strings.TrimSpace(value.String())
		if v == "" || v == "null" {
			return true
		}
		found[normalizeFactName(key.String())] = v
		return true
	})
	return found, nil
}

func normalizeFactName(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}
