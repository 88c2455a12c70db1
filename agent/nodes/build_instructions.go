package conversationnode

import (
	"fmt"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	promptx "github.com/cememirsenyurt/subconscious/agent/prompt"
)

// BuildInstructions assembles the full instruction block for the engine:
// persona, memory summary, history, the current utterance, and the response
// rules.
func BuildInstructions(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Instructions = promptx.BuildInstructions(in.Persona.SystemPrompt, in.Session, in.History, in.Utterance)
	return in, nil
}
