package conversationnode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	extractx "github.com/cememirsenyurt/subconscious/agent/extract"
	runx "github.com/cememirsenyurt/subconscious/agent/run"
)

// Spoken fallbacks for runs that do not produce an answer.
const (
	fallbackFailed   = "I couldn't process that. Please try again."
	fallbackTimedOut = "That's taking too long. Please try again."
)

// RunExecutor drives one engine run to a terminal state.
type RunExecutor interface {
	Execute(ctx context.Context, req contractx.EngineRequest) (*runx.Run, error)
}

// InvokeEngine executes the reasoning run for this turn and settles the reply
// text. Search tools are attached only when the classifier asked for them. A
// failed or timed-out run degrades to a spoken fallback; only context
// cancellation aborts the turn.
func InvokeEngine(ctx context.Context, in *GraphState, executor RunExecutor, engine string, searchTools []contractx.EngineTool) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	req := contractx.EngineRequest{
		Engine:          engine,
		Instructions:    in.Instructions,
		AwaitCompletion: true,
	}
	if in.NeedsSearch {
		req.Tools = searchTools
	}

	run, err := executor.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("engine run: %w", err)
	}
	in.Run = run

	switch run.Status {
	case runx.StatusSucceeded:
		reply := cleanReply(run.ResultText, in.Persona.Name)
		if reply == "" {
			in.Reply = fallbackFailed
			return in, nil
		}
		in.Reply = reply
		// Details the agent just confirmed out loud become session facts.
		in.Session.MergeFacts(extractx.FromConfirmation(reply, in.Session.FactsCopy()))
	case runx.StatusTimedOut:
		log.Warn().Err(run.Err()).Str("session_id", in.SessionID).Str("run_id", run.ID).Msg("run timed out")
		in.Reply = fallbackTimedOut
	default:
		log.Warn().
			Err(run.Err()).
			Str("session_id", in.SessionID).
			Str("run_id", run.ID).
			Str("status", string(run.Status)).
			Msg("run did not succeed")
		in.Reply = fallbackFailed
	}
	return in, nil
}

// cleanReply strips speaker labels the model sometimes prepends.
func cleanReply(text, personaName string) string {
	reply := strings.TrimSpace(text)
	for _, prefix := range []string{"Agent:", "Assistant:", "You (Agent):", personaName + ":"} {
		if prefix != ":" && strings.HasPrefix(reply, prefix) {
			reply = strings.TrimSpace(strings.TrimPrefix(reply, prefix))
		}
	}
	return reply
}
