package contract

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one utterance within a conversation. Immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// EngineTool describes a tool made available to the reasoning engine.
// Platform tools are referenced by id only; the engine owns their execution.
type EngineTool struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// EngineRequest is the outbound payload for one reasoning-engine run.
type EngineRequest struct {
	Engine          string       `json:"engine"`
	Instructions    string       `json:"instructions"`
	Tools           []EngineTool `json:"tools,omitempty"`
	AwaitCompletion bool         `json:"await_completion,omitempty"`
}

// Remote run statuses as reported by the engine.
const (
	EngineStatusQueued    = "queued"
	EngineStatusRunning   = "running"
	EngineStatusSucceeded = "succeeded"
	EngineStatusFailed    = "failed"
	EngineStatusCancelled = "cancelled"
)

// EngineRun is the engine's view of a run: a status probe result or the
// immediate response to a create call.
type EngineRun struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	ResultText string `json:"result_text,omitempty"`
}

// Terminal reports whether the remote status permits no further transitions.
func (r EngineRun) Terminal() bool {
	switch r.Status {
	case EngineStatusSucceeded, EngineStatusFailed, EngineStatusCancelled:
		return true
	}
	return false
}
