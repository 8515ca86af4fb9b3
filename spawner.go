package taskgraph

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// taskOutcome pairs a task with the Status its Execute produced, plus the
// (partition, position) coordinates spec.md §4.6 requires results be
// tagged with: partition is the index of the group SpawnLayer placed the
// task in, position is the task's index within that group.
type taskOutcome struct {
	task        *Task
	status      Status
	partition   int
	position    int
	causeTaskID string
}

// Spawner isolates the execution of one layer's tasks from each other and
// from the supervisor (spec.md §9 "worker isolation is an implementation
// choice"). A Spawner owns how a task's action actually runs; it never
// decides scheduling, dependency resolution, or resource-pool mutation —
// those remain the supervisor's (Executor.execute's) responsibility.
type Spawner interface {
	// SpawnLayer runs every task in tasks against the given resource
	// snapshot and progress queue, with at most maxWorkers partition groups
	// running concurrently, returning one outcome per task in input order. It must not mutate resources; the supervisor commits
	// outputs after SpawnLayer returns.
	SpawnLayer(ctx context.Context, tasks []*Task, resources *ResourcePool, queue *MessageQueue, maxWorkers int) []taskOutcome
}

// partitionGroupCount picks k for Partition given maxWorkers: maxWorkers
// bounds the number of concurrent groups directly when positive; a
// non-positive maxWorkers means "unbounded," which Partition already
// expresses as one group per item (k = len(items)).
func partitionGroupCount(maxWorkers, n int) int {
	if n < 1 {
		return 1
	}
	if maxWorkers > 0 {
		return maxWorkers
	}
	return n
}

// indexTasks maps each task pointer to its position in the original,
// input-ordered slice, so a Spawner can partition tasks into groups and
// still place each outcome back at its original index.
func indexTasks(tasks []*Task) map[*Task]int {
	index := make(map[*Task]int, len(tasks))
	for i, t := range tasks {
		index[t] = i
	}
	return index
}

// GoroutineSpawner is the default Spawner: a layer's tasks are partitioned
// into at most maxWorkers groups (spec.md §4.6 step 1, via Partition), and
// each group runs inside its own errgroup-managed goroutine, executing its
// tasks one after another. This is grounded in the teacher's
// internal/core/executor.go fan-out pattern, generalized from a fixed
// worker count to a round-robin partition per worker.
type GoroutineSpawner struct{}

// NewGoroutineSpawner returns the default in-process Spawner.
func NewGoroutineSpawner() *GoroutineSpawner { return &GoroutineSpawner{} }

func (s *GoroutineSpawner) SpawnLayer(ctx context.Context, tasks []*Task, resources *ResourcePool, queue *MessageQueue, maxWorkers int) []taskOutcome {
	if len(tasks) == 0 {
		return nil
	}

	groups, err := Partition(tasks, partitionGroupCount(maxWorkers, len(tasks)))
	if err != nil {
		groups = [][]*Task{tasks}
	}

	outcomes := make([]taskOutcome, len(tasks))
	index := indexTasks(tasks)

	g, _ := errgroup.WithContext(ctx)
	for partition, group := range groups {
		partition, group := partition, group
		g.Go(func() error {
			for position, t := range group {
				messenger := NewMessenger(t.identifier.HashString(), queue)
				status, missingProducer := t.Execute(messenger, resources)
				causeID := ""
				if missingProducer != nil {
					causeID = missingProducer.String()
				}
				outcomes[index[t]] = taskOutcome{
					task:        t,
					status:      status,
					partition:   partition,
					position:    position,
					causeTaskID: causeID,
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

var _ Spawner = (*GoroutineSpawner)(nil)
