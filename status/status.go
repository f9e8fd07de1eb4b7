package status

import (
	"errors"
	"strings"
)

var (
	// ErrTransitionBlocked is returned when a write is not allowed from the
	// record's current status.
	ErrTransitionBlocked = errors.New("status: transition blocked")
	// ErrNotFound is returned when no record exists for the job.
	ErrNotFound = errors.New("status: not found")
)

// Status is the lifecycle state of a job.
type Status string

const (
	// None is the absence of a record.
	None       Status = ""
	Queued     Status = "QUEUED"
	Processing Status = "PROCESSING"
	Completed  Status = "COMPLETED"
	Failed     Status = "FAILED"
	Cancelled  Status = "CANCELLED"
)

// All lists every defined status.
var All = []Status{Queued, Processing, Completed, Failed, Cancelled}

// Normalize upper-cases and trims s. Unknown values are returned as-is.
func Normalize(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

func (s Status) known() bool {
	switch s {
	case Queued, Processing, Completed, Failed, Cancelled:
		return true
	}
	return false
}

var allowed = map[Status]map[Status]bool{
	None:       {Queued: true, Processing: true, Completed: true, Failed: true, Cancelled: true},
	Queued:     {Queued: true, Processing: true, Completed: true, Failed: true, Cancelled: true},
	Processing: {Processing: true, Completed: true, Failed: true, Cancelled: true},
	Completed:  {Completed: true},
	Failed:     {Failed: true},
	Cancelled:  {Cancelled: true},
}

// Allowed reports whether target may be written over current. An unknown
// current status is treated as no record.
func Allowed(current, target Status) bool {
	if target == None {
		return !current.Terminal()
	}
	set, ok := allowed[current]
	if !ok {
		set = allowed[None]
	}
	return set[target]
}

// Verdict is the outcome of checking a write against the current status.
type Verdict int

const (
	// Apply means the write goes through.
	Apply Verdict = iota
	// Ignore means the write is an idempotent rewrite of a terminal status
	// and is dropped without error.
	Ignore
	// Block means the write is rejected.
	Block
)

func (v Verdict) String() string {
	switch v {
	case Apply:
		return "apply"
	case Ignore:
		return "ignore"
	default:
		return "block"
	}
}

// Decide checks a write of target over current.
func Decide(current, target Status) Verdict {
	if target != None && current.Terminal() && current == target {
		return Ignore
	}
	if Allowed(current, target) {
		return Apply
	}
	return Block
}

// Plan returns the current statuses for which a write of target is
// ignored and those for which it is blocked. Backends that run the check
// server-side use it so the table above stays the single source.
func Plan(target Status) (ignore, block []Status) {
	for _, cur := range All {
		switch Decide(cur, target) {
		case Ignore:
			ignore = append(ignore, cur)
		case Block:
			block = append(block, cur)
		}
	}
	return ignore, block
}
