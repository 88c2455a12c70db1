package conversationnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// ClassifySearch decides whether this turn gets research tools. Classifier
// trouble falls back to the safe default: no tools.
func ClassifySearch(ctx context.Context, in *GraphState, classifier contractx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	needs, err := classifier.NeedsSearch(ctx, in.Utterance, in.History)
	if err != nil {
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("classification failed, defaulting to no search")
		in.NeedsSearch = false
		return in, nil
	}

	in.NeedsSearch = needs
	return in, nil
}
