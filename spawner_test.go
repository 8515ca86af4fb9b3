package taskgraph

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoroutineSpawner_RunsAllTasksAndBoundsConcurrency(t *testing.T) {
	var inFlight, maxInFlight int32
	n := 8
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		tasks[i] = NewTask(func(m *Messenger, args ...any) (any, Status) {
			cur := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&maxInFlight)
				if cur <= max || atomic.CompareAndSwapInt32(&maxInFlight, max, cur) {
					break
				}
			}
			atomic.AddInt32(&inFlight, -1)
			return nil, Success("")
		}, "noop", NewTaskIdentifier(int64(i), "t"), nil)
	}

	spawner := NewGoroutineSpawner()
	outcomes := spawner.SpawnLayer(context.Background(), tasks, NewResourcePool(), NewMessageQueue(n), 2)

	assert.Len(t, outcomes, n)
	for _, o := range outcomes {
		assert.True(t, o.status.IsSuccess())
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}

func TestGoroutineSpawner_TagsOutcomesWithPartitionAndPosition(t *testing.T) {
	n := 4
	tasks := make([]*Task, n)
	for i := 0; i < n; i++ {
		tasks[i] = NewTask(func(m *Messenger, args ...any) (any, Status) {
			return nil, Success("")
		}, "noop", NewTaskIdentifier(int64(i), "t"), nil)
	}

	spawner := NewGoroutineSpawner()
	outcomes := spawner.SpawnLayer(context.Background(), tasks, NewResourcePool(), NewMessageQueue(n), 2)

	seen := make(map[[2]int]bool)
	for _, o := range outcomes {
		assert.Less(t, o.partition, 2)
		assert.GreaterOrEqual(t, o.partition, 0)
		seen[[2]int{o.partition, o.position}] = true
	}
	assert.Len(t, seen, n, "each outcome should have a distinct (partition, position) pair")
}

func TestGoroutineSpawner_TagsCauseTaskIDOnMissingProducer(t *testing.T) {
	producerID := NewTaskIdentifier(1, "producer")
	consumer := NewTask(func(m *Messenger, args ...any) (any, Status) {
		return args[0], Success("")
	}, "consume", NewTaskIdentifier(2, "c"), []any{From(producerID)})

	spawner := NewGoroutineSpawner()
	outcomes := spawner.SpawnLayer(context.Background(), []*Task{consumer}, NewResourcePool(), NewMessageQueue(1), 1)

	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusCancel, outcomes[0].status.Kind)
	assert.Equal(t, "producer", outcomes[0].causeTaskID)
}

func TestGoroutineSpawner_PreservesInputOrderInOutcomes(t *testing.T) {
	ids := []TaskIdentifier{
		NewTaskIdentifier(1, "a"),
		NewTaskIdentifier(2, "b"),
		NewTaskIdentifier(3, "c"),
	}
	tasks := make([]*Task, len(ids))
	for i, id := range ids {
		tasks[i] = NewTask(func(m *Messenger, args ...any) (any, Status) {
			return nil, Success("")
		}, "noop", id, nil)
	}

	spawner := NewGoroutineSpawner()
	outcomes := spawner.SpawnLayer(context.Background(), tasks, NewResourcePool(), NewMessageQueue(len(ids)), 0)

	for i, o := range outcomes {
		assert.True(t, o.task.Identifier().Equal(ids[i]))
	}
}
