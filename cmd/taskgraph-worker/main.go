// Command taskgraph-worker is the sibling binary ProcessSpawner execs once
// per task when a caller opts into OS-process worker isolation
// (spec.md §9). It reads one gob-encoded workerproc.Request from stdin,
// dispatches it against a small built-in action registry, and writes the
// gob-encoded workerproc.Response to stdout.
//
// A real deployment registers its own domain actions instead of (or in
// addition to) the demo ones here; see taskgraph.RunWorkerProcess.
package main

import (
	"fmt"
	"os"

	"github.com/flowloom/taskgraph"
)

func main() {
	registry := taskgraph.NewActionRegistry()
	registerDemoActions(registry)

	if err := taskgraph.RunWorkerProcess(registry, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func registerDemoActions(registry *taskgraph.ActionRegistry) {
	registry.Register("demo.fetch", func(m *taskgraph.Messenger, args ...any) (any, taskgraph.Status) {
		m.SendProgress(1.0)
		return 21, taskgraph.Success("")
	})
	registry.Register("demo.double", func(m *taskgraph.Messenger, args ...any) (any, taskgraph.Status) {
		n, ok := args[0].(int)
		if !ok {
			return nil, taskgraph.Fail("expected int input")
		}
		return n * 2, taskgraph.Success("")
	})
}
