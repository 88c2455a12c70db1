package conversationnode

import (
	"errors"
	"time"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	personax "github.com/cememirsenyurt/subconscious/agent/persona"
	runx "github.com/cememirsenyurt/subconscious/agent/run"
	sessionx "github.com/cememirsenyurt/subconscious/agent/session"
)

var (
	ErrInvalidUtterance = errors.New("utterance is empty")
	ErrInvalidSession   = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID  string
	BusinessID string
	Utterance  string
}

type GraphOutput struct {
	Reply string
}

// GraphState is threaded through the per-turn pipeline.
type GraphState struct {
	SessionID  string
	BusinessID string
	Utterance  string
	Now        time.Time

	Persona personax.Persona
	Session *sessionx.Session

	// History is the conversation before the current utterance.
	History []contractx.Turn

	NeedsSearch  bool
	Instructions string

	Run   *runx.Run
	Reply string
}
