package taskgraph

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Layer holds the ordered tasks at a given depth and links to the next
// depth. Depth 0 holds exactly the tasks with no dependencies, in
// insertion order from the input list (spec.md §3 invariant I2). Next is
// nil for the deepest layer.
//
// The teacher's original model represents the graph as a singly-linked
// chain of layer nodes; spec.md §9 notes a flat list is equivalent and
// simpler. TaskGraph keeps both views cheaply: Layers() for random access,
// and each Layer's Next pointer for callers that want to walk the chain.
type Layer struct {
	Depth int
	Tasks []*Task
	Next  *Layer
}

// TaskGraph is the immutable, layered DAG built from a task list
// (spec.md §3, §4.4). It is safe for concurrent read access once built.
type TaskGraph struct {
	root   *Layer
	layers []*Layer
	hash   string
}

// Root returns the depth-0 layer, or nil for an empty graph.
func (g *TaskGraph) Root() *Layer { return g.root }

// Layers returns the layers in depth order (0 upward).
func (g *TaskGraph) Layers() []*Layer {
	out := make([]*Layer, len(g.layers))
	copy(out, g.layers)
	return out
}

// TotalDepth returns the deepest allocated layer's depth.
func (g *TaskGraph) TotalDepth() int {
	if len(g.layers) == 0 {
		return 0
	}
	return g.layers[len(g.layers)-1].Depth
}

// TasksAt returns the tasks at the given depth, or nil if depth is out of
// range.
func (g *TaskGraph) TasksAt(depth int) []*Task {
	if depth < 0 || depth >= len(g.layers) {
		return nil
	}
	return g.layers[depth].Tasks
}

// Hash returns a stable content identity for the graph: a SHA-256 digest
// over the canonical (depth-then-identifier-hash-ordered) node list. It is
// computed fresh on every buildGraph call and is never persisted — it
// exists for memoizing/caching graph construction across calls with the
// same task set, not as persistent scheduling state (spec.md Non-goals;
// see SPEC_FULL.md E.3).
func (g *TaskGraph) Hash() string { return g.hash }

// depthOf returns the depth of the task bearing the given identifier, and
// whether it was found (spec.md I1 verification helper).
func (g *TaskGraph) depthOf(id TaskIdentifier) (int, bool) {
	want := id.HashString()
	for _, l := range g.layers {
		for _, t := range l.Tasks {
			if t.identifier.HashString() == want {
				return l.Depth, true
			}
		}
	}
	return 0, false
}

type placedTask struct {
	task  *Task
	depth int
}

// buildGraph implements the layering algorithm of spec.md §4.4 exactly:
// seed layer 0 from dependency-less tasks, then repeatedly place any
// remaining task whose full dependency set already appears among placed
// tasks, terminating after two consecutive no-progress passes.
func buildGraph(tasks []*Task) (*TaskGraph, error) {
	var layer0 []*Task
	remaining := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if len(t.dependencies) == 0 {
			layer0 = append(layer0, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	if len(layer0) == 0 {
		return nil, newGraphError(ErrNoRoots, "")
	}

	byDepth := map[int][]*Task{0: layer0}
	maxDepth := 0
	var placed []placedTask
	for _, t := range layer0 {
		placed = append(placed, placedTask{task: t, depth: 0})
	}

	noProgressPasses := 0
	for len(remaining) > 0 && noProgressPasses < 2 {
		progress := false
		var next []*Task

		for _, t := range remaining {
			deps := t.dependencyHashSet()
			found := 0
			maxParentDepth := -1
			for _, p := range placed {
				if _, ok := deps[p.task.identifier.HashString()]; ok {
					found++
					if p.depth > maxParentDepth {
						maxParentDepth = p.depth
					}
				}
			}

			switch {
			case found == len(deps):
				depth := maxParentDepth + 1
				byDepth[depth] = append(byDepth[depth], t)
				if depth > maxDepth {
					maxDepth = depth
				}
				placed = append(placed, placedTask{task: t, depth: depth})
				progress = true
			case found > len(deps):
				return nil, newGraphError(ErrExcessDependencies, "")
			default:
				next = append(next, t)
			}
		}

		remaining = next
		if progress {
			noProgressPasses = 0
		} else {
			noProgressPasses++
		}
	}

	if len(remaining) > 0 {
		return nil, newGraphError(ErrCircularOrMissing, findCycleWitness(remaining))
	}

	layers := make([]*Layer, maxDepth+1)
	for d := 0; d <= maxDepth; d++ {
		layers[d] = &Layer{Depth: d, Tasks: byDepth[d]}
	}
	for i := 0; i < len(layers)-1; i++ {
		layers[i].Next = layers[i+1]
	}

	g := &TaskGraph{layers: layers}
	if len(layers) > 0 {
		g.root = layers[0]
	}
	g.hash = computeGraphHash(layers)
	return g, nil
}

// findCycleWitness extracts one concrete cycle path among the tasks that
// buildGraph could not place, as a diagnostic witness attached to the
// GraphError (not part of the Status message itself, see SPEC_FULL.md E.3).
// It is a deterministic DFS over the unplaced tasks' dependency edges,
// grounded on the teacher's internal/dag/validate.go findCycleDeterministic:
// canonical (hash-sorted) node order, gray/black coloring, and a back-edge
// reconstructed into "a -> b -> a" form.
//
// Not every unplaced task set forms a true cycle — a task can also be stuck
// because it depends on an identifier no task in the graph ever produces.
// buildGraph rejects both cases identically (ErrCircularOrMissing), so when
// the DFS finds no back-edge, the witness falls back to a sorted list of
// the unplaced tasks' names instead of a path.
func findCycleWitness(remaining []*Task) string {
	ordered := append([]*Task(nil), remaining...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].identifier.HashString() < ordered[j].identifier.HashString()
	})

	n := len(ordered)
	index := make(map[string]int, n)
	for i, t := range ordered {
		index[t.identifier.HashString()] = i
	}

	outgoing := make([][]int, n)
	for i, t := range ordered {
		for depHash := range t.dependencies {
			if j, ok := index[depHash]; ok {
				outgoing[i] = append(outgoing[i], j)
			}
		}
		sort.Ints(outgoing[i])
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, n)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range outgoing[u] {
			if color[v] == white {
				parent[v] = u
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := 0; i < n; i++ {
		if color[i] == white && dfs(i) {
			break
		}
	}

	if len(cycle) == 0 {
		return missingDependencyWitness(ordered)
	}

	names := make([]string, len(cycle))
	for i, idx := range cycle {
		names[len(cycle)-1-i] = ordered[idx].identifier.String()
	}
	return strings.Join(names, " -> ")
}

func missingDependencyWitness(remaining []*Task) string {
	names := make([]string, 0, len(remaining))
	for _, t := range remaining {
		names = append(names, t.identifier.String())
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func computeGraphHash(layers []*Layer) string {
	h := sha256.New()
	writeField := func(b []byte) {
		var lenBytes [8]byte
		n := uint64(len(b))
		for i := 0; i < 8; i++ {
			lenBytes[7-i] = byte(n)
			n >>= 8
		}
		h.Write(lenBytes[:])
		h.Write(b)
	}

	for _, l := range layers {
		ids := make([]string, 0, len(l.Tasks))
		for _, t := range l.Tasks {
			ids = append(ids, t.identifier.HashString())
		}
		sort.Strings(ids)
		for _, id := range ids {
			writeField([]byte(id))
		}
		writeField([]byte{0xff})
	}
	return hex.EncodeToString(h.Sum(nil))
}
