package tracing

import "github.com/sarchlab/cosim/sim/timing"

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Cycle timing.VCycle `json:"cycle"`
	What  string        `json:"what"`
}

// A Task is a transaction observed on a domain, such as a register write or a
// cache backend request.
type Task struct {
	ID         string        `json:"id"`
	ParentID   string        `json:"parent_id"`
	Kind       string        `json:"kind"`
	What       string        `json:"what"`
	Location   string        `json:"location"`
	StartCycle timing.VCycle `json:"start_cycle"`
	EndCycle   timing.VCycle `json:"end_cycle"`
	Steps      []TaskStep    `json:"steps"`
	Detail     any           `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool
