package orchestrator

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/probelab/probe/internal/graph"
	"github.com/probelab/probe/internal/research"
	"github.com/probelab/probe/pkg/models"
)

// SubTaskOutcome records what happened to one sub-task during an execution
// pass, including the fate of any additional tasks its result proposed.
type SubTaskOutcome struct {
	// TaskID is the executed sub-task.
	TaskID string
	// Status is the terminal status the pass left the task in.
	Status models.SubTaskStatus
	// Err is the execution error for failed tasks.
	Err error
	// Injected lists additional tasks accepted into the graph from this
	// task's result.
	Injected []*models.SubTask
	// Rejected lists additional-task proposals the graph refused, with the
	// structural reason. Rejections never abort the run.
	Rejected []graph.Rejection
}

// Executor runs a ready batch of sub-tasks with bounded concurrency.
type Executor struct {
	graph      *graph.TaskGraph
	researcher research.Researcher
	limit      int
	timeout    time.Duration
	emitter    *EventEmitter
}

// NewExecutor creates an executor over the given graph and researcher.
func NewExecutor(g *graph.TaskGraph, r research.Researcher, limit int, timeout time.Duration, emitter *EventEmitter) *Executor {
	return &Executor{
		graph:      g,
		researcher: r,
		limit:      limit,
		timeout:    timeout,
		emitter:    emitter,
	}
}

// RunReady executes one ready batch. Workers are bounded by the concurrency
// limit; each invocation carries its own timeout. Additional tasks proposed by
// results are held back until the whole batch has finished, then injected in
// batch order, so a fast-finishing task cannot jump the priority ordering of
// the pass. Cancelling ctx stops dispatching new workers; already-dispatched
// workers finish so their results are not lost.
func (e *Executor) RunReady(ctx context.Context, iteration int, issue *models.ResearchIssue, tasks []*models.SubTask) []SubTaskOutcome {
	outcomes := make([]SubTaskOutcome, len(tasks))
	sem := make(chan struct{}, e.limit)
	var wg sync.WaitGroup

dispatch:
	for i, task := range tasks {
		if ctx.Err() != nil {
			log.Printf("[executor] run cancelled, %d of %d tasks not dispatched", len(tasks)-i, len(tasks))
			break dispatch
		}
		select {
		case <-ctx.Done():
			log.Printf("[executor] run cancelled, %d of %d tasks not dispatched", len(tasks)-i, len(tasks))
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, task *models.SubTask) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = e.runOne(ctx, iteration, issue, task)
		}(i, task)
	}
	wg.Wait()

	// Deferred injection: every result's additional tasks land only after the
	// entire batch is done, in batch order.
	for i := range outcomes {
		out := &outcomes[i]
		if out.Status != models.StatusCompleted {
			continue
		}
		result, ok := e.graph.Get(out.TaskID)
		if !ok || result.Result == nil || len(result.Result.AdditionalTasks) == 0 {
			continue
		}
		accepted, rejected := e.graph.AddTasks(result.Result.AdditionalTasks, out.TaskID)
		out.Injected = accepted
		out.Rejected = rejected
		for _, rej := range rejected {
			log.Printf("[executor] proposal %q from task %s rejected: %s", rej.Proposal.Title, out.TaskID, rej.Reason)
		}
	}
	return outcomes
}

// runOne executes a single sub-task. The task's timeout is derived from a
// fresh context so run-level cancellation does not cut off a worker that was
// already dispatched.
func (e *Executor) runOne(ctx context.Context, iteration int, issue *models.ResearchIssue, task *models.SubTask) SubTaskOutcome {
	if err := e.graph.MarkRunning(task.ID); err != nil {
		return SubTaskOutcome{TaskID: task.ID, Status: task.Status, Err: err}
	}
	e.emitter.Emit(Event{
		Type:      EventTaskStarted,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Iteration: iteration,
		Timestamp: time.Now(),
	})

	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	result, err := e.researcher.Execute(taskCtx, task, issue)
	if err != nil {
		if markErr := e.graph.MarkFailed(task.ID, err.Error()); markErr != nil {
			log.Printf("[executor] mark failed %s: %v", task.ID, markErr)
		}
		e.emitter.Emit(Event{
			Type:      EventTaskFailed,
			TaskID:    task.ID,
			TaskTitle: task.Title,
			Iteration: iteration,
			Error:     err,
			Timestamp: time.Now(),
		})
		return SubTaskOutcome{TaskID: task.ID, Status: models.StatusFailed, Err: err}
	}

	if markErr := e.graph.MarkCompleted(task.ID, result); markErr != nil {
		log.Printf("[executor] mark completed %s: %v", task.ID, markErr)
		return SubTaskOutcome{TaskID: task.ID, Status: task.Status, Err: markErr}
	}
	e.emitter.Emit(Event{
		Type:      EventTaskCompleted,
		TaskID:    task.ID,
		TaskTitle: task.Title,
		Iteration: iteration,
		Timestamp: time.Now(),
	})
	return SubTaskOutcome{TaskID: task.ID, Status: models.StatusCompleted}
}
