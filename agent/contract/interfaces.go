package contract

import "context"

// Classifier decides whether a turn needs a search-augmented engine call.
type Classifier interface {
	NeedsSearch(ctx context.Context, utterance string, history []Turn) (bool, error)
}

// Extractor derives structured facts from one utterance. Returned values are
// only the fields found in this utterance; merging into session facts is the
// caller's job. Within one utterance the last mention of a field wins.
type Extractor interface {
	Extract(ctx context.Context, utterance string, known map[string]string) (map[string]string, error)
}

// EngineClient is the boundary to the external reasoning backend.
type EngineClient interface {
	CreateRun(ctx context.Context, req EngineRequest) (EngineRun, error)
	GetRun(ctx context.Context, runID string) (EngineRun, error)
}
