// Package trace records a deterministic, in-memory log of what happened
// during one graph execution: which tasks started, succeeded, failed, were
// cancelled (the action itself returned CANCEL), or were skipped (a
// producer's output was missing, so the action never ran).
//
// It is adapted from the teacher's sprint-03 trace engine, trimmed to this
// module's state machine (spec.md §4.7) and with the build-cache-specific
// event kinds (TaskCached, TaskArtifactsRestored, TaskInvalidated) removed,
// since persistent caching is out of scope here (see SPEC_FULL.md E.4).
//
// The trace is purely observational: it never affects execution behavior.
// It is held in memory by the Executor that produced it (see
// Executor.LastTrace) and is never persisted to disk.
package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ExecutionTrace is the canonical, deterministic record of a graph
// execution attempt.
type ExecutionTrace struct {
	GraphHash string
	Events    []TraceEvent
}

// TraceEventKind is the stable, canonical discriminator for TraceEvent.
type TraceEventKind string

const (
	EventTaskStarted   TraceEventKind = "TaskStarted"
	EventTaskSucceeded TraceEventKind = "TaskSucceeded"
	EventTaskFailed    TraceEventKind = "TaskFailed"
	EventTaskCancelled TraceEventKind = "TaskCancelled"
	EventTaskSkipped   TraceEventKind = "TaskSkipped"
)

// TraceEvent is a single logical transition for one task.
type TraceEvent struct {
	Kind TraceEventKind

	// TaskID identifies the task this event refers to (its identifier's
	// display string, see TaskIdentifier.String).
	TaskID string

	// Reason says why the event happened: a reason code (e.g.
	// "UpstreamFailed") or, as the taskgraph Executor records it, the
	// task's Status message.
	Reason string

	// CauseTaskID records a related upstream task, e.g. the failing
	// upstream task that caused a downstream Skip.
	CauseTaskID string
}

// Validate checks basic invariants.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphHash == "" {
		return errors.New("graphHash is required")
	}
	for i := range t.Events {
		e := t.Events[i]
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.TaskID == "" {
			return fmt.Errorf("events[%d].taskId is required for kind %q", i, e.Kind)
		}
	}
	return nil
}

// Canonicalize sorts events into a total order independent of execution
// timing or concurrency: (taskId, kindOrder, reason, causeTaskId).
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	sort.SliceStable(t.Events, func(i, j int) bool {
		a := t.Events[i]
		b := t.Events[j]
		if a.TaskID != b.TaskID {
			return a.TaskID < b.TaskID
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		return a.CauseTaskID < b.CauseTaskID
	})
}

func kindOrder(k TraceEventKind) int {
	switch k {
	case EventTaskStarted:
		return 10
	case EventTaskSucceeded:
		return 20
	case EventTaskFailed:
		return 30
	case EventTaskCancelled:
		return 40
	case EventTaskSkipped:
		return 50
	default:
		return 1000
	}
}

// CanonicalJSON returns the canonical JSON encoding of a canonicalized copy
// of the trace.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	cp := ExecutionTrace{GraphHash: t.GraphHash}
	cp.Events = make([]TraceEvent, len(t.Events))
	copy(cp.Events, t.Events)
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&cp)
}

// Hash returns the deterministic trace hash (sha256 hex) of the canonical
// JSON bytes.
func (t ExecutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON ensures canonical field ordering.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	if t.GraphHash == "" {
		return nil, errors.New("graphHash is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"graphHash":`)
	gh, _ := json.Marshal(t.GraphHash)
	buf.Write(gh)
	buf.WriteByte(',')

	buf.WriteString(`"events":[`)
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteByte(']')
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON ensures canonical field ordering and omission of empty
// optional fields.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"kind":`)
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	if e.TaskID != "" {
		buf.WriteByte(',')
		buf.WriteString(`"taskId":`)
		tb, _ := json.Marshal(e.TaskID)
		buf.Write(tb)
	}
	if e.Reason != "" {
		buf.WriteByte(',')
		buf.WriteString(`"reason":`)
		rb, _ := json.Marshal(e.Reason)
		buf.Write(rb)
	}
	if e.CauseTaskID != "" {
		buf.WriteByte(',')
		buf.WriteString(`"causeTaskId":`)
		cb, _ := json.Marshal(e.CauseTaskID)
		buf.Write(cb)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
