package taskgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(id TaskIdentifier, deps ...TaskIdentifier) *Task {
	return NewTask(func(m *Messenger, args ...any) (any, Status) {
		return nil, Success("")
	}, "noop", id, nil, deps...)
}

func TestBuildGraph_LinearChain(t *testing.T) {
	a := noop(NewTaskIdentifier(1, "a"))
	b := NewTask(func(m *Messenger, args ...any) (any, Status) {
		return nil, Success("")
	}, "noop", NewTaskIdentifier(2, "b"), []any{From(a.Identifier())})
	c := NewTask(func(m *Messenger, args ...any) (any, Status) {
		return nil, Success("")
	}, "noop", NewTaskIdentifier(3, "c"), []any{From(b.Identifier())})

	g, err := buildGraph([]*Task{c, a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, g.TotalDepth())

	d0, _ := g.depthOf(a.Identifier())
	d1, _ := g.depthOf(b.Identifier())
	d2, _ := g.depthOf(c.Identifier())
	assert.Equal(t, 0, d0)
	assert.Equal(t, 1, d1)
	assert.Equal(t, 2, d2)
}

func TestBuildGraph_DiamondDependency(t *testing.T) {
	a := noop(NewTaskIdentifier(1, "a"))
	b := NewTask(func(m *Messenger, args ...any) (any, Status) { return nil, Success("") },
		"noop", NewTaskIdentifier(2, "b"), []any{From(a.Identifier())})
	c := NewTask(func(m *Messenger, args ...any) (any, Status) { return nil, Success("") },
		"noop", NewTaskIdentifier(3, "c"), []any{From(a.Identifier())})
	d := NewTask(func(m *Messenger, args ...any) (any, Status) { return nil, Success("") },
		"noop", NewTaskIdentifier(4, "d"), []any{From(b.Identifier()), From(c.Identifier())})

	g, err := buildGraph([]*Task{a, b, c, d})
	require.NoError(t, err)
	require.Equal(t, 2, g.TotalDepth())
	assert.Len(t, g.TasksAt(0), 1)
	assert.Len(t, g.TasksAt(1), 2)
	assert.Len(t, g.TasksAt(2), 1)
}

func TestBuildGraph_NoRootsFails(t *testing.T) {
	x := NewTaskIdentifier(1, "x")
	y := NewTaskIdentifier(2, "y")
	a := noop(x, y)
	b := noop(y, x)

	_, err := buildGraph([]*Task{a, b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRoots))
}

func TestBuildGraph_CircularDependencyFails(t *testing.T) {
	root := noop(NewTaskIdentifier(0, "root"))
	x := NewTaskIdentifier(1, "x")
	y := NewTaskIdentifier(2, "y")
	a := noop(x, y)
	b := noop(y, x)

	_, err := buildGraph([]*Task{root, a, b})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircularOrMissing))

	var ge *GraphError
	require.True(t, errors.As(err, &ge))
	assert.Contains(t, ge.Witness, "->")
	assert.Contains(t, ge.Witness, "x")
	assert.Contains(t, ge.Witness, "y")
}

func TestBuildGraph_MissingDependencyFails(t *testing.T) {
	root := noop(NewTaskIdentifier(0, "root"))
	ghost := NewTaskIdentifier(99, "ghost")
	a := noop(NewTaskIdentifier(1, "a"), ghost)

	_, err := buildGraph([]*Task{root, a})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircularOrMissing))

	var ge *GraphError
	require.True(t, errors.As(err, &ge))
	assert.NotContains(t, ge.Witness, "->")
	assert.Contains(t, ge.Witness, "a")
}

func TestBuildGraph_HashIsStableAcrossInputOrder(t *testing.T) {
	a := noop(NewTaskIdentifier(1, "a"))
	b := NewTask(func(m *Messenger, args ...any) (any, Status) { return nil, Success("") },
		"noop", NewTaskIdentifier(2, "b"), []any{From(a.Identifier())})

	g1, err := buildGraph([]*Task{a, b})
	require.NoError(t, err)
	g2, err := buildGraph([]*Task{b, a})
	require.NoError(t, err)

	assert.Equal(t, g1.Hash(), g2.Hash())
}

func TestBuildGraph_DuplicateIdentifiersAreExcessDependencies(t *testing.T) {
	dupID := NewTaskIdentifier(1, "dup")
	dup1 := noop(dupID)
	dup2 := noop(dupID)
	consumer := NewTask(func(m *Messenger, args ...any) (any, Status) { return nil, Success("") },
		"noop", NewTaskIdentifier(2, "consumer"), []any{From(dupID)})

	_, err := buildGraph([]*Task{dup1, dup2, consumer})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExcessDependencies))
}

func TestBuildGraph_SingleLayerOfIndependentRoots(t *testing.T) {
	a := noop(NewTaskIdentifier(1, "a"))
	b := noop(NewTaskIdentifier(2, "b"))
	c := noop(NewTaskIdentifier(3, "c"))

	g, err := buildGraph([]*Task{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, 0, g.TotalDepth())
	assert.Len(t, g.TasksAt(0), 3)
}
