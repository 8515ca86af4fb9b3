package taskgraph

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/flowloom/taskgraph/internal/trace"
)

// Executor runs one TaskGraph to completion: layer by layer, running each
// layer's tasks through the Spawner (at most maxWorkers concurrent
// partition groups), committing successful outputs to a
// ResourcePool, and only then advancing to the next layer (spec.md §4.6).
// An Executor is single-use: build a fresh one (via FromTasks) per
// execution, per spec.md §3's lifecycle rule that a ResourcePool and
// MessageQueue are scoped to a single execute call.
type Executor struct {
	graph   *TaskGraph
	spawner Spawner

	progress *ProgressMap
	results  map[string]Status

	tracer           oteltrace.Tracer
	taskDuration     metric.Float64Histogram
	taskStatusCount  metric.Int64Counter
	parallelismGauge metric.Int64UpDownCounter

	lastTrace *trace.ExecutionTrace
}

// FromTasks validates and layers tasks into a TaskGraph, then wraps it in
// an Executor using the default GoroutineSpawner. Use WithSpawner after
// construction to opt into ProcessSpawner instead.
func FromTasks(tasks []*Task) Result[*Executor] {
	graph, err := buildGraph(tasks)
	if err != nil {
		return Err[*Executor](statusFromGraphError(err))
	}

	meter := otel.GetMeterProvider().Meter("github.com/flowloom/taskgraph")
	duration, _ := meter.Float64Histogram("taskgraph_task_duration_ms")
	statusCount, _ := meter.Int64Counter("taskgraph_task_status_total")
	parallelism, _ := meter.Int64UpDownCounter("taskgraph_parallelism")

	e := &Executor{
		graph:            graph,
		spawner:          NewGoroutineSpawner(),
		progress:         NewProgressMap(),
		results:          make(map[string]Status),
		tracer:           otel.Tracer("github.com/flowloom/taskgraph"),
		taskDuration:     duration,
		taskStatusCount:  statusCount,
		parallelismGauge: parallelism,
	}
	return Ok(e)
}

// WithSpawner swaps the worker-isolation strategy (spec.md §9). It must be
// called before Execute.
func (e *Executor) WithSpawner(s Spawner) *Executor {
	e.spawner = s
	return e
}

// Graph returns the layered graph this Executor runs.
func (e *Executor) Graph() *TaskGraph { return e.graph }

// TasksProgress returns a snapshot of the last reported progress value per
// task hash (spec.md §3). Safe to call concurrently with Execute.
func (e *Executor) TasksProgress() map[string]float64 {
	return e.progress.Snapshot()
}

// Results returns the terminal Status recorded for each task hash once
// Execute has returned.
func (e *Executor) Results() map[string]Status {
	out := make(map[string]Status, len(e.results))
	for k, v := range e.results {
		out[k] = v
	}
	return out
}

// LastTrace returns the in-memory ExecutionTrace produced by the most
// recent Execute call, or nil if Execute has not run yet. The trace is
// purely observational (spec.md Non-goals; SPEC_FULL.md E.3): it never
// feeds back into scheduling decisions and is not persisted.
func (e *Executor) LastTrace() *trace.ExecutionTrace { return e.lastTrace }

// Execute runs every layer of the graph in order. Within each layer, the
// Spawner partitions tasks into at most maxWorkers groups and tags each
// outcome with the (partition, position) coordinates Partition assigned it
// (spec.md §4.6 steps 1 and 3). It returns the overall Status: the Status of
// the first task encountered in layer/index order that ended in FAIL, ERROR
// or CANCEL, or SUCCESS if no task did. A task ending in WARN, INFO or
// PENDING does not change the overall Status.
//
// A layer is executed fully even if some of its tasks individually fail;
// only tasks that depend (directly or transitively) on a failed or
// cancelled producer are affected, and that happens naturally at argument
// resolution time (Task.resolveArgs), not by the Executor skipping work
// preemptively — this resolves spec.md's Open Question (a) in favor of
// "let it fail naturally at the point of use" (SPEC_FULL.md E.3). The
// ExecutionTrace records this case as TaskSkipped, with CauseTaskID set to
// the producer that never committed output.
func (e *Executor) Execute(ctx context.Context, maxWorkers int) Status {
	runID := uuid.NewString()
	log := slog.With("component", "taskgraph.executor", "run_id", runID, "graph_hash", e.graph.Hash())

	ctx, span := e.tracer.Start(ctx, "taskgraph.execute",
		oteltrace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("graph.hash", e.graph.Hash()),
			attribute.Int("graph.depth", e.graph.TotalDepth()+1),
		),
	)
	defer span.End()

	log.Info("execution started", "max_workers", maxWorkers, "layers", len(e.graph.layers))

	resources := NewResourcePool()
	queue := NewMessageQueue(256)
	drained := make(chan struct{})
	go func() {
		e.progress.drain(queue)
		close(drained)
	}()

	var overall Status = Success("")
	overallSet := false
	recorder := trace.NewRecorder()

	for _, layer := range e.graph.layers {
		if len(layer.Tasks) == 0 {
			continue
		}

		log.Debug("layer starting", "depth", layer.Depth, "tasks", len(layer.Tasks))
		e.parallelismGauge.Add(ctx, int64(len(layer.Tasks)))
		start := time.Now()

		outcomes := e.spawner.SpawnLayer(ctx, layer.Tasks, resources.Snapshot(), queue, maxWorkers)

		e.parallelismGauge.Add(ctx, -int64(len(layer.Tasks)))
		e.taskDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.Int("layer.depth", layer.Depth)))
		log.Debug("layer finished", "depth", layer.Depth, "duration_ms", time.Since(start).Milliseconds())

		for _, o := range outcomes {
			hash := o.task.identifier.HashString()
			e.results[hash] = o.status
			e.taskStatusCount.Add(ctx, 1, metric.WithAttributes(
				attribute.String("status", string(o.status.Kind)),
			))
			recorder.Record(traceEventFor(o))

			switch o.status.Kind {
			case StatusSuccess:
				log.Debug("task succeeded", "task", o.task.identifier.String(), "partition", o.partition, "position", o.position)
			case StatusCancel:
				log.Warn("task cancelled", "task", o.task.identifier.String(), "reason", o.status.Message, "cause_task", o.causeTaskID, "partition", o.partition, "position", o.position)
			case StatusFail, StatusError:
				log.Error("task failed", "task", o.task.identifier.String(), "reason", o.status.Message, "partition", o.partition, "position", o.position)
			}

			if o.status.IsSuccess() {
				if out, ok := o.task.Outputs(); ok {
					resources.set(o.task.identifier, out)
				}
			}
			if !overallSet && o.status.IsTerminal() && !o.status.IsSuccess() {
				overall = o.status
				overallSet = true
			}
		}
	}

	queue.close()
	<-drained

	tr := recorder.Trace(e.graph.Hash())
	e.lastTrace = &tr

	span.SetAttributes(attribute.String("status", string(overall.Kind)))
	log.Info("execution finished", "status", string(overall.Kind))
	return overall
}

// traceEventFor maps one task outcome to its trace event. A CANCEL
// attributable to a specific upstream producer (resolveArgs found no
// committed output for it) is recorded as TaskSkipped with CauseTaskID set
// to that producer's identifier; a CANCEL an action returned on its own
// (not tied to any producer) is recorded as a plain TaskCancelled.
func traceEventFor(o taskOutcome) trace.TraceEvent {
	id := o.task.identifier.String()
	switch o.status.Kind {
	case StatusSuccess:
		return trace.TraceEvent{Kind: trace.EventTaskSucceeded, TaskID: id}
	case StatusCancel:
		kind := trace.EventTaskCancelled
		if o.causeTaskID != "" {
			kind = trace.EventTaskSkipped
		}
		return trace.TraceEvent{Kind: kind, TaskID: id, Reason: o.status.Message, CauseTaskID: o.causeTaskID}
	case StatusFail, StatusError:
		return trace.TraceEvent{Kind: trace.EventTaskFailed, TaskID: id, Reason: o.status.Message}
	default:
		return trace.TraceEvent{Kind: trace.EventTaskStarted, TaskID: id}
	}
}

