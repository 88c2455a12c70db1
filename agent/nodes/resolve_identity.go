package conversationnode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	customerx "github.com/cememirsenyurt/subconscious/agent/customer"
)

// ResolveIdentity attempts to bind the session to a stored customer record
// once a name or phone number is known. Stored facts backfill the session but
// never override what the customer said in the current call. An ambiguous or
// missing match leaves the session unbound; the conversation proceeds either
// way.
func ResolveIdentity(ctx context.Context, in *GraphState, store customerx.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	sess := in.Session
	if sess.Bound() {
		return in, nil
	}

	facts := sess.FactsCopy()
	if facts["name"] == "" && facts["phone"] == "" {
		return in, nil
	}

	rec, err := customerx.Resolve(ctx, store, in.BusinessID, facts)
	if err != nil {
		if errors.Is(err, customerx.ErrRecordNotFound) || errors.Is(err, contractx.ErrIdentityAmbiguous) {
			return in, nil
		}
		log.Warn().Err(err).Str("session_id", in.SessionID).Msg("identity lookup failed, continuing unbound")
		return in, nil
	}

	// Backfill only the fields this call has not established yet.
	restored := make(map[string]string, len(rec.Facts))
	for name, value := range rec.Facts {
		if facts[name] == "" {
			restored[name] = value
		}
	}
	sess.MergeFacts(restored)

	if err := sess.Bind(rec.IdentityKey); err != nil {
		return nil, fmt.Errorf("bind customer: %w", err)
	}
	log.Info().
		Str("session_id", in.SessionID).
		Str("customer_key", rec.IdentityKey).
		Int("restored_facts", len(restored)).
		Msg("returning customer recognized")
	return in, nil
}
