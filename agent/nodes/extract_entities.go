package conversationnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// ExtractEntities merges facts found in the utterance into the session.
// Extraction trouble never blocks a turn: the prior facts stand and the
// pipeline proceeds.
func ExtractEntities(ctx context.Context, in *GraphState, extractor contractx.Extractor) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	found, err := extractor.Extract(ctx, in.Utterance, in.Session.FactsCopy())
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("extraction failed, keeping prior facts")
		return in, nil
	}

	if changed := in.Session.MergeFacts(found); len(changed) > 0 {
		log.Debug().Strs("fields", changed).Str("session_id", in.SessionID).Msg("facts updated")
	}
	return in, nil
}
