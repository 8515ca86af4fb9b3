package taskgraph

import "sync"

// ResourcePool is the per-execution mapping from task-hash to committed
// output (spec.md §3). It is written by the supervisor only, only between
// layers, after a task reports SUCCESS; workers only ever read snapshots of
// it (spec.md §4.6, §5).
type ResourcePool struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewResourcePool returns an empty pool, scoped to a single Executor.execute
// invocation per spec.md §3's lifecycle rule.
func NewResourcePool() *ResourcePool {
	return &ResourcePool{data: make(map[string]any)}
}

// Get looks up a committed output by identifier.
func (p *ResourcePool) Get(id TaskIdentifier) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[id.HashString()]
	return v, ok
}

// set commits an output. Only the supervisor ever calls this, and only
// between layers (spec.md §4.6 step 5, §5 "shared-resource policy").
func (p *ResourcePool) set(id TaskIdentifier, output any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[id.HashString()] = output
}

// Snapshot returns an independent copy suitable for handing to a worker at
// spawn time. Workers never write back into the supervisor's pool; they
// operate on their own snapshot (spec.md §9 "resource pool snapshotting").
func (p *ResourcePool) Snapshot() *ResourcePool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make(map[string]any, len(p.data))
	for k, v := range p.data {
		cp[k] = v
	}
	return &ResourcePool{data: cp}
}
