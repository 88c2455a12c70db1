package conversationnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
	customerx "github.com/cememirsenyurt/subconscious/agent/customer"
	runx "github.com/cememirsenyurt/subconscious/agent/run"
)

// Per-turn intent flags stay in the session; they are not durable memory.
var transientFacts = map[string]bool{
	"wants_to_book":               true,
	"claims_existing_reservation": true,
}

// PersistCustomer writes the session's accumulated facts to long-term memory.
// It only runs after a successful engine reply: a turn the customer never
// heard must leave the store untouched. Store trouble is logged and absorbed.
func PersistCustomer(ctx context.Context, in *GraphState, store customerx.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Run == nil || in.Run.Status != runx.StatusSucceeded {
		return in, nil
	}
	sess := in.Session

	key := sess.CustomerKey
	if key == "" {
		facts := sess.FactsCopy()
		key = customerx.IdentityKey(in.BusinessID, facts["name"], facts["phone"])
		if key == "" {
			return in, nil
		}
		if err := sess.Bind(key); err != nil {
			return nil, fmt.Errorf("bind customer: %w", err)
		}
	}

	durable := make(map[string]string, len(sess.Facts))
	for name, value := range sess.Facts {
		if transientFacts[name] {
			continue
		}
		durable[name] = value
	}
	if len(durable) == 0 {
		return in, nil
	}

	if _, err := store.Upsert(ctx, key, in.BusinessID, durable, in.Now); err != nil {
		log.Warn().Err(err).Str("customer_key", key).Msg("customer memory write failed")
	}
	return in, nil
}
