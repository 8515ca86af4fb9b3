package taskgraph

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/flowloom/taskgraph/internal/workerproc"
)

// RunWorkerProcess is the entry point a sibling worker binary (such as
// cmd/taskgraph-worker) calls from main: it decodes one workerproc.Request
// from in, looks the named action up in registry, executes it with a
// stderr-backed Messenger, and encodes the resulting workerproc.Response to
// out. It is the counterpart to ProcessSpawner on the supervisor side.
//
// Exactly one request is served per process invocation: ProcessSpawner
// spawns a fresh child per task (spec.md §9's full OS-process isolation),
// so there is no request loop here.
func RunWorkerProcess(registry *ActionRegistry, in io.Reader, out io.Writer, errOut io.Writer) error {
	var req workerproc.Request
	if err := gob.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("taskgraph: decoding request: %w", err)
	}

	resp := executeRegisteredAction(registry, req, errOut)

	if err := gob.NewEncoder(out).Encode(&resp); err != nil {
		return fmt.Errorf("taskgraph: encoding response: %w", err)
	}
	return nil
}

func executeRegisteredAction(registry *ActionRegistry, req workerproc.Request, errOut io.Writer) workerproc.Response {
	action, err := registry.MustLookup(req.ActionName)
	if err != nil {
		return workerproc.Response{StatusKind: string(StatusFail), StatusMessage: err.Error()}
	}

	messenger := &Messenger{taskHash: req.TaskHash, queue: nil}
	messenger.stderrOut = errOut

	output, status := invokeWithRecover(action, messenger, req.Args)
	return workerproc.Response{
		Output:        output,
		StatusKind:    string(status.Kind),
		StatusMessage: status.Message,
	}
}

func invokeWithRecover(action ActionFunc, m *Messenger, args []any) (output any, status Status) {
	defer func() {
		if r := recover(); r != nil {
			status = Fail(fmt.Sprintf("panic: %v", r))
		}
	}()
	return action(m, args...)
}
