package taskgraph

import (
	"fmt"
	"sync"
)

// ActionFunc is the action contract: a pure callable taking a Messenger
// followed by resolved positional arguments, returning (output, Status)
// (spec.md §3, §6). Implementations must be safe to invoke from a
// goroutine worker and, for callers using ProcessSpawner, must be
// registered by name in an ActionRegistry rather than captured as a
// closure (spec.md §9 "process-transported actions" — closure capture is
// not portable across a process boundary).
type ActionFunc func(m *Messenger, args ...any) (any, Status)

// Task is an executable unit with identity, arguments, and declared
// dependencies (spec.md §3). It is immutable after construction except for
// one write-once Outputs slot.
type Task struct {
	action       ActionFunc
	actionName   string
	identifier   TaskIdentifier
	args         []any
	dependencies map[string]TaskIdentifier // set, keyed by HashString

	mu        sync.Mutex
	hasOutput bool
	output    any
}

// NewTask constructs a Task. Dependencies are auto-populated from any
// OutputFrom placeholders found in args; explicitDeps are unioned in
// (spec.md §4.3 "Dependency auto-resolution").
//
// action is the callable invoked at execution time. actionName is the
// identifier used to look it up from an ActionRegistry when the task is
// executed out-of-process via ProcessSpawner; it may be empty if the task
// will only ever run under the default GoroutineSpawner.
func NewTask(action ActionFunc, actionName string, identifier TaskIdentifier, args []any, explicitDeps ...TaskIdentifier) *Task {
	deps := make(map[string]TaskIdentifier)
	for _, a := range args {
		if of, ok := a.(OutputFrom); ok {
			deps[of.id.HashString()] = of.id
		}
	}
	for _, d := range explicitDeps {
		deps[d.HashString()] = d
	}

	return &Task{
		action:       action,
		actionName:   actionName,
		identifier:   identifier,
		args:         args,
		dependencies: deps,
	}
}

// Identifier returns the task's identity.
func (t *Task) Identifier() TaskIdentifier { return t.identifier }

// ActionName returns the registered action name, if any.
func (t *Task) ActionName() string { return t.actionName }

// Args returns the task's raw (unresolved) argument list.
func (t *Task) Args() []any { return t.args }

// Dependencies returns the set of identifiers this task depends on.
func (t *Task) Dependencies() []TaskIdentifier {
	out := make([]TaskIdentifier, 0, len(t.dependencies))
	for _, d := range t.dependencies {
		out = append(out, d)
	}
	return out
}

func (t *Task) dependencyHashSet() map[string]struct{} {
	out := make(map[string]struct{}, len(t.dependencies))
	for k := range t.dependencies {
		out[k] = struct{}{}
	}
	return out
}

// Outputs returns the task's committed output and whether one was recorded.
func (t *Task) Outputs() (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.output, t.hasOutput
}

func (t *Task) recordOutput(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasOutput {
		t.output = v
		t.hasOutput = true
	}
}

// resolveArgs substitutes OutputFrom placeholders with producer outputs
// from resources. It returns the identifier of the first unresolved
// producer, or nil if every placeholder resolved (spec.md §4.3 step 1).
func (t *Task) resolveArgs(resources *ResourcePool) ([]any, *TaskIdentifier) {
	resolved := make([]any, len(t.args))
	for i, a := range t.args {
		of, ok := a.(OutputFrom)
		if !ok {
			resolved[i] = a
			continue
		}
		v, found := resources.Get(of.id)
		if !found {
			missing := of.id
			return nil, &missing
		}
		resolved[i] = v
	}
	return resolved, nil
}

// Execute resolves arguments against resources, invokes the action, and
// records the output on success (spec.md §4.3):
//
//  1. Resolve positional arguments; a missing producer transitions the task
//     to CANCEL (spec.md §4.7) rather than invoking the action.
//  2. Invoke action(messenger, resolved...).
//  3. On SUCCESS with a present output, record it in Outputs.
//  4. A panicking action is converted to FAIL, its message prefixed with
//     the task's display identifier.
//
// missingProducer is non-nil only when status is a CANCEL caused by a
// missing producer output; callers (the Executor) use it to attribute a
// CANCEL/Skipped trace event to the upstream task that caused it.
func (t *Task) Execute(messenger *Messenger, resources *ResourcePool) (status Status, missingProducer *TaskIdentifier) {
	resolved, missing := t.resolveArgs(resources)
	if missing != nil {
		return Cancel(fmt.Sprintf("%s: missing producer output for %s", t.identifier, *missing)), missing
	}

	defer func() {
		if r := recover(); r != nil {
			status = Fail(fmt.Sprintf("%s: panic: %v", t.identifier, r))
		}
	}()

	output, st := t.action(messenger, resolved...)
	if st.IsSuccess() && output != nil {
		t.recordOutput(output)
	}
	return st, nil
}
