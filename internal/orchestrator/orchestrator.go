package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/probelab/probe/internal/graph"
	"github.com/probelab/probe/internal/synthesis"
	"github.com/probelab/probe/pkg/models"
)

// Phase is a state of the orchestration state machine.
type Phase string

const (
	// PhaseSeeding is the initial decomposition of the issue.
	PhaseSeeding Phase = "seeding"
	// PhaseExecuting is an execution pass over the ready set.
	PhaseExecuting Phase = "executing"
	// PhaseEvaluating is the convergence evaluation after a pass.
	PhaseEvaluating Phase = "evaluating"
	// PhaseSynthesizing is the final report synthesis.
	PhaseSynthesizing Phase = "synthesizing"
	// PhaseDone is the terminal state.
	PhaseDone Phase = "done"
)

// RunState is the per-run mutable state. It lives for exactly one run and is
// never shared across runs.
type RunState struct {
	// RunID identifies the run.
	RunID string
	// Graph is the run's task graph.
	Graph *graph.TaskGraph
	// Iteration is the current execute/evaluate round, starting at 1.
	Iteration int
	// Progress is the latest aggregate progress estimate in [0,100].
	Progress float64
	// StartedAt is when the run began.
	StartedAt time.Time
}

// RunOutcome is everything a finished run hands back to the caller.
type RunOutcome struct {
	// Report is the synthesized report.
	Report *models.Report
	// Summary is the compact per-run record.
	Summary *models.RunSummary
	// Metadata describes how the run executed.
	Metadata *models.ExecutionMetadata
}

// Orchestrator drives one research run through the phase machine
// Seeding -> Executing -> Evaluating -> (Executing | Synthesizing) -> Done.
// A single orchestrating goroutine owns the loop; only the executor spawns
// concurrent workers.
type Orchestrator struct {
	cfg    RunConfig
	collab Collaborators

	emitter   *EventEmitter
	pauseCtrl *PauseController
	debugLog  func(format string, args ...interface{})

	mu    sync.Mutex
	phase Phase
}

// New creates an orchestrator for one run. The configuration is validated
// here; an invalid configuration aborts before any work begins.
func New(cfg RunConfig, collab Collaborators, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collab.Decomposer == nil || collab.Researcher == nil || collab.Synthesizer == nil {
		return nil, fmt.Errorf("all collaborators are required")
	}

	options := &orchestratorOptions{eventBuffer: 100}
	for _, opt := range opts {
		opt(options)
	}
	pauseCtrl := options.pauseCtrl
	if pauseCtrl == nil {
		pauseCtrl = NewPauseController()
	}

	return &Orchestrator{
		cfg:       cfg,
		collab:    collab,
		emitter:   NewEventEmitter(options.eventBuffer),
		pauseCtrl: pauseCtrl,
		debugLog:  options.debugLog,
		phase:     PhaseSeeding,
	}, nil
}

// Events returns the channel for receiving run events. The channel is closed
// when Run returns.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// DroppedEventCount returns the number of events dropped because no
// subscriber drained the channel in time.
func (o *Orchestrator) DroppedEventCount() uint64 {
	return o.emitter.DroppedCount()
}

// Pause gates the next execution pass. The pass in flight finishes first.
func (o *Orchestrator) Pause() { o.pauseCtrl.Pause() }

// Resume releases a pause.
func (o *Orchestrator) Resume() { o.pauseCtrl.Resume() }

// Run executes one complete research run. Cancellation via ctx lets dispatched
// workers finish, then short-circuits to synthesis with whatever completed.
func (o *Orchestrator) Run(ctx context.Context, issue *models.ResearchIssue) (*RunOutcome, error) {
	defer o.emitter.Close()

	state := &RunState{
		RunID:     uuid.New().String()[:8],
		Graph:     graph.New(),
		StartedAt: time.Now(),
	}
	if o.debugLog != nil {
		state.Graph.SetDebugLog(o.debugLog)
	}
	executor := NewExecutor(state.Graph, o.collab.Researcher, o.cfg.ConcurrencyLimit, o.cfg.PerTaskTimeout, o.emitter)
	evaluator := NewEvaluator(o.cfg)

	o.emitter.Emit(Event{
		Type:      EventRunStarted,
		Message:   issue.Title,
		Timestamp: time.Now(),
	})
	log.Printf("[orchestrator] run %s started: %s", state.RunID, issue.Title)

	// Seeding. A decomposer failure here is fatal: there is no graph to fall
	// back on.
	o.setPhase(PhaseSeeding)
	proposals, err := o.collab.Decomposer.Propose(ctx, issue, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("seed decomposition: %w", err)
	}
	accepted, rejected := state.Graph.AddTasks(proposals, "decomposer")
	o.emitProposed(state.Iteration, accepted, rejected)

	var ceilingReached, stalled bool
	ready := o.queueReady(state)

	for {
		if len(ready) == 0 {
			// Nothing runnable before the first pass. An empty graph, such
			// as a seed round whose every proposal was rejected, is a stall
			// too and gets disclosed the same way.
			stalled = state.Graph.Len() == 0 ||
				state.Graph.Len() > state.Graph.Snapshot().Count(models.StatusCompleted)
			break
		}
		state.Iteration++

		o.setPhase(PhaseExecuting)
		if err := o.pauseCtrl.WaitIfPaused(ctx); err != nil {
			log.Printf("[orchestrator] run %s interrupted: %v", state.RunID, err)
			break
		}
		executor.RunReady(ctx, state.Iteration, issue, ready)
		if ctx.Err() != nil {
			log.Printf("[orchestrator] run %s cancelled after iteration %d", state.RunID, state.Iteration)
			break
		}

		// Follow-up decomposition happens before scoring so the evaluation
		// accounts for the proposals it would otherwise complete over.
		o.setPhase(PhaseEvaluating)
		proposals, err := o.collab.Decomposer.Propose(ctx, issue, state.Graph.CompletedResults(), state.Iteration)
		if err != nil {
			// A failed follow-up round proposes nothing; the run can still
			// converge on what it has.
			log.Printf("[orchestrator] follow-up decomposition failed at iteration %d: %v", state.Iteration, err)
			proposals = nil
		}
		if len(proposals) > 0 {
			accepted, rejected := state.Graph.AddTasks(proposals, "decomposer")
			o.emitProposed(state.Iteration, accepted, rejected)
		}
		ready = o.queueReady(state)

		eval := evaluator.Evaluate(state.Graph.Snapshot(), state.Iteration)
		state.Progress = eval.Progress
		o.emitter.Emit(Event{
			Type:      EventIterationEvaluated,
			Iteration: state.Iteration,
			Progress:  eval.Progress,
			Message:   string(eval.Decision),
			Timestamp: time.Now(),
		})

		if eval.Decision == DecisionComplete {
			ceilingReached = eval.CeilingReached
			break
		}
		if len(ready) == 0 {
			// Continue was decided but nothing can ever run again. Forcing
			// completion here is the stall path, not an abort.
			log.Printf("[orchestrator] run %s stalled at iteration %d", state.RunID, state.Iteration)
			stalled = true
			break
		}
	}

	o.setPhase(PhaseSynthesizing)
	o.emitter.Emit(Event{Type: EventSynthesisStarted, Iteration: state.Iteration, Timestamp: time.Now()})

	completedAt := time.Now()
	meta := &models.ExecutionMetadata{
		StartedAt:          state.StartedAt,
		CompletedAt:        completedAt,
		TotalExecutionTime: completedAt.Sub(state.StartedAt),
		TotalSubTasks:      state.Graph.Len(),
		Iterations:         state.Iteration,
		CeilingReached:     ceilingReached,
		Stalled:            stalled,
	}
	completed := state.Graph.CompletedResults()

	// Synthesis still runs after a cancelled run; the report covers whatever
	// completed before the cancellation.
	report, err := o.collab.Synthesizer.Synthesize(context.WithoutCancel(ctx), issue, completed, meta)
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}
	summary := synthesis.BuildSummary(state.RunID, state.Graph.Counts(), state.Progress, completed, meta)

	o.setPhase(PhaseDone)
	o.emitter.Emit(Event{
		Type:      EventRunDone,
		Iteration: state.Iteration,
		Progress:  state.Progress,
		Message:   fmt.Sprintf("%d/%d sub-tasks completed", summary.SuccessfulTasks, summary.TotalSubTasks),
		Timestamp: time.Now(),
	})
	log.Printf("[orchestrator] run %s done: %d iterations, %d/%d completed", state.RunID, state.Iteration, summary.SuccessfulTasks, summary.TotalSubTasks)

	return &RunOutcome{Report: report, Summary: summary, Metadata: meta}, nil
}

// queueReady promotes every satisfiable pending task and announces it.
func (o *Orchestrator) queueReady(state *RunState) []*models.SubTask {
	ready := state.Graph.ReadyTasks()
	for _, task := range ready {
		o.emitter.Emit(Event{
			Type:      EventTaskQueued,
			TaskID:    task.ID,
			TaskTitle: task.Title,
			Iteration: state.Iteration,
			Timestamp: time.Now(),
		})
	}
	return ready
}

func (o *Orchestrator) emitProposed(iteration int, accepted []*models.SubTask, rejected []graph.Rejection) {
	if len(accepted) == 0 && len(rejected) == 0 {
		return
	}
	o.emitter.Emit(Event{
		Type:      EventTasksProposed,
		Iteration: iteration,
		Message:   fmt.Sprintf("%d accepted, %d rejected", len(accepted), len(rejected)),
		Timestamp: time.Now(),
	})
	for _, rej := range rejected {
		log.Printf("[orchestrator] proposal %q rejected: %s", rej.Proposal.Title, rej.Reason)
	}
}
