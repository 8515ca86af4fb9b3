package taskgraph

// OutputFrom is a marker value placed in a task's argument list to declare
// a data dependency: "substitute the producing task's output here"
// (spec.md §3). Its presence in Task.args both declares a dependency edge
// on the referenced identifier and instructs argument resolution to
// substitute the producer's committed output at that position.
type OutputFrom struct {
	id TaskIdentifier
}

// From constructs an OutputFrom placeholder referencing the producer task's
// identifier.
func From(id TaskIdentifier) OutputFrom { return OutputFrom{id: id} }

// Identifier returns the referenced producer's identifier.
func (o OutputFrom) Identifier() TaskIdentifier { return o.id }
