package model

import "time"

// Summary counts outcomes across the whole declared id set. Attempted and
// Transient only cover the current run.
type Summary struct {
	RunID             string        `json:"run_id,omitempty"`
	Total             int           `json:"total"`
	Succeeded         int           `json:"succeeded"`
	PermanentlyFailed int           `json:"permanently_failed"`
	Remaining         int           `json:"remaining"`
	Attempted         int           `json:"attempted"`
	Transient         int           `json:"transient"`
	Aborted           bool          `json:"aborted"`
	AbortedID         string        `json:"aborted_id,omitempty"`
	Elapsed           time.Duration `json:"elapsed_ns"`
}

func (s Summary) Complete() bool {
	return s.Remaining == 0
}

// ItemEvent describes one processed item for reporters.
type ItemEvent struct {
	Index    int
	Pending  int
	ID       string
	Outcome  Outcome
	Elapsed  time.Duration
	Recorded bool
}
