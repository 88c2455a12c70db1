package run

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	}
	return false
}

var (
	ErrTerminalTransition = errors.New("run is already terminal")
	ErrInvalidTransition  = errors.New("invalid run transition")
)

// Run is one reasoning-engine invocation and its completion lifecycle.
// ResultText is set only on success. A terminal Run never transitions again.
type Run struct {
	ID          string    `json:"id"`
	RemoteID    string    `json:"remote_id,omitempty"`
	Status      Status    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
	ResultText  string    `json:"result_text,omitempty"`

	// FailureReason records why a run failed or timed out, for logs only.
	FailureReason string `json:"failure_reason,omitempty"`
}

// transition enforces the state machine:
// queued -> running -> succeeded|failed, queued|running -> timed_out|failed.
func (r *Run) transition(to Status) error {
	if r.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrTerminalTransition, r.Status, to)
	}
	switch to {
	case StatusRunning:
		if r.Status != StatusQueued {
			return fmt.Errorf("%w: %s -> running", ErrInvalidTransition, r.Status)
		}
	case StatusSucceeded:
		if r.Status != StatusRunning {
			return fmt.Errorf("%w: %s -> succeeded", ErrInvalidTransition, r.Status)
		}
	case StatusFailed, StatusTimedOut:
		// reachable from queued or running
	default:
		return fmt.Errorf("%w: -> %s", ErrInvalidTransition, to)
	}
	r.Status = to
	return nil
}

func (r *Run) start() error {
	if r.Status == StatusRunning {
		return nil
	}
	return r.transition(StatusRunning)
}

func (r *Run) succeed(resultText string) error {
	if err := r.start(); err != nil {
		return err
	}
	if err := r.transition(StatusSucceeded); err != nil {
		return err
	}
	r.ResultText = resultText
	return nil
}

func (r *Run) fail(reason string) error {
	if err := r.transition(StatusFailed); err != nil {
		return err
	}
	r.FailureReason = reason
	return nil
}

func (r *Run) timeout(reason string) error {
	if err := r.transition(StatusTimedOut); err != nil {
		return err
	}
	r.FailureReason = reason
	return nil
}

// Err maps a terminal failure state to an error, nil for anything else.
// Timed-out runs carry the ErrRunTimeout sentinel.
func (r *Run) Err() error {
	switch r.Status {
	case StatusTimedOut:
		return fmt.Errorf("%w: %s", contractx.ErrRunTimeout, r.FailureReason)
	case StatusFailed:
		return fmt.Errorf("run failed: %s", r.FailureReason)
	}
	return nil
}
