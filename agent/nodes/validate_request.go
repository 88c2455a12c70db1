package conversationnode

import (
	"strings"
	"time"
)

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	utterance := strings.TrimSpace(in.Utterance)
	if utterance == "" {
		return nil, ErrInvalidUtterance
	}

	return &GraphState{
		SessionID:  sessionID,
		BusinessID: strings.TrimSpace(in.BusinessID),
		Utterance:  utterance,
		Now:        nowFn().UTC(),
	}, nil
}
