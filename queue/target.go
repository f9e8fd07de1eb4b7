package queue

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects which queues a worker consumes.
type Mode string

const (
	ModeSingle      Mode = "single"
	ModeBoth        Mode = "both"
	ModePartitioned Mode = "partitioned"
)

// ErrInvalidMode is returned for an unrecognised queue mode.
var ErrInvalidMode = errors.New("queue: mode must be one of single, both, partitioned")

// ParseMode normalises s. Empty input means single.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSingle, nil
	case ModeSingle, ModeBoth, ModePartitioned:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Target is one consumable queue and the DLQ its failures go to.
type Target struct {
	Queue string `json:"queue"`
	DLQ   string `json:"dlq"`
	Label string `json:"label"`
}

// Names carries every configurable queue and DLQ name. Only the names
// used by the selected mode need to be set.
type Names struct {
	Queue string
	DLQ   string

	LocalQueue string
	LocalDLQ   string
	CloudQueue string
	CloudDLQ   string

	OCRQueue           string
	OCRDLQ             string
	TranscriptionQueue string
	TranscriptionDLQ   string
}

// MissingError lists every required name that was not set.
type MissingError struct {
	Mode Mode
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("queue: mode %s requires %s", e.Mode, strings.Join(e.Keys, ", "))
}

// Targets is an ordered target list.
type Targets []Target

// Resolve builds the ordered target list for mode. It fails when any name
// the mode needs is blank, reporting all of them at once, and when two
// targets share a queue name.
func Resolve(mode Mode, n Names) (Targets, error) {
	type slot struct {
		key   string
		value string
	}
	build := func(label string, q, d slot) (Target, []string) {
		var missing []string
		for _, s := range []slot{q, d} {
			if strings.TrimSpace(s.value) == "" {
				missing = append(missing, s.key)
			}
		}
		return Target{Queue: strings.TrimSpace(q.value), DLQ: strings.TrimSpace(d.value), Label: label}, missing
	}

	var (
		ts      Targets
		missing []string
	)
	add := func(t Target, m []string) {
		ts = append(ts, t)
		missing = append(missing, m...)
	}

	switch mode {
	case ModeSingle, "":
		mode = ModeSingle
		add(build("single", slot{"QUEUE_NAME", n.Queue}, slot{"DLQ_NAME", n.DLQ}))
	case ModeBoth:
		add(build("local", slot{"LOCAL_QUEUE_NAME", n.LocalQueue}, slot{"LOCAL_DLQ_NAME", n.LocalDLQ}))
		add(build("cloud", slot{"CLOUD_QUEUE_NAME", n.CloudQueue}, slot{"CLOUD_DLQ_NAME", n.CloudDLQ}))
	case ModePartitioned:
		add(build("ocr", slot{"OCR_QUEUE_NAME", n.OCRQueue}, slot{"OCR_DLQ_NAME", n.OCRDLQ}))
		add(build("transcription", slot{"TRANSCRIPTION_QUEUE_NAME", n.TranscriptionQueue}, slot{"TRANSCRIPTION_DLQ_NAME", n.TranscriptionDLQ}))
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	if len(missing) > 0 {
		return nil, &MissingError{Mode: mode, Keys: missing}
	}

	seen := make(map[string]string, len(ts))
	for _, t := range ts {
		if prev, ok := seen[t.Queue]; ok {
			return nil, fmt.Errorf("queue: targets %s and %s share queue %q", prev, t.Label, t.Queue)
		}
		seen[t.Queue] = t.Label
	}
	return ts, nil
}

// Queues returns the queue names in poll order.
func (ts Targets) Queues() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Queue
	}
	return out
}

// ByQueue returns the target consuming queue.
func (ts Targets) ByQueue(queue string) (Target, bool) {
	for _, t := range ts {
		if t.Queue == queue {
			return t, true
		}
	}
	return Target{}, false
}

// ByDLQ returns the target whose dead-letter queue is dlq.
func (ts Targets) ByDLQ(dlq string) (Target, bool) {
	for _, t := range ts {
		if t.DLQ == dlq {
			return t, true
		}
	}
	return Target{}, false
}
