package conversationnode

import (
	"fmt"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	personax "github.com/cememirsenyurt/subconscious/agent/persona"
	sessionx "github.com/cememirsenyurt/subconscious/agent/session"
)

func LoadOrCreateSession(in *GraphState, store sessionx.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Persona = personax.Lookup(in.BusinessID)
	if in.BusinessID == "" {
		in.BusinessID = in.Persona.ID
	}

	sess := store.GetOrCreate(in.SessionID, in.BusinessID, in.Now)
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}

	// Snapshot the conversation before this turn, then record the utterance.
	in.History = append([]contractx.Turn(nil), sess.Turns...)
	sess.AppendTurn(contractx.RoleUser, in.Utterance, in.Now)

	in.Session = sess
	return in, nil
}
