package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/probelab/probe/pkg/models"
)

// stubDecomposer returns a fixed seed batch and optional per-round follow-ups.
type stubDecomposer struct {
	seed     []models.SubTaskProposal
	perRound func(iteration int) []models.SubTaskProposal
	seedErr  error
	roundErr error
}

func (d *stubDecomposer) Propose(ctx context.Context, issue *models.ResearchIssue, completed []models.SubTaskResult, iteration int) ([]models.SubTaskProposal, error) {
	if iteration == 0 {
		return d.seed, d.seedErr
	}
	if d.roundErr != nil {
		return nil, d.roundErr
	}
	if d.perRound == nil {
		return nil, nil
	}
	return d.perRound(iteration), nil
}

// stubResearcher completes tasks with a fixed confidence, failing the IDs
// listed in fail. It tracks call counts and peak concurrency.
type stubResearcher struct {
	mu         sync.Mutex
	calls      map[string]int
	active     int
	peakActive int

	fail       map[string]bool
	confidence float64
	delay      time.Duration
	additional map[string][]models.SubTaskProposal
}

func newStubResearcher() *stubResearcher {
	return &stubResearcher{calls: make(map[string]int), confidence: 0.9}
}

func (r *stubResearcher) Execute(ctx context.Context, task *models.SubTask, issue *models.ResearchIssue) (*models.SubTaskResult, error) {
	r.mu.Lock()
	r.calls[task.ID]++
	r.active++
	if r.active > r.peakActive {
		r.peakActive = r.active
	}
	r.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}

	r.mu.Lock()
	r.active--
	failed := r.fail[task.ID]
	extra := r.additional[task.ID]
	r.mu.Unlock()

	if failed {
		return nil, fmt.Errorf("researcher stub failure for %s", task.ID)
	}
	return &models.SubTaskResult{
		Conclusion:      "finding for " + task.ID,
		Confidence:      r.confidence,
		AdditionalTasks: extra,
		CompletedAt:     time.Now(),
	}, nil
}

// stubSynthesizer records its inputs and returns a canned report.
type stubSynthesizer struct {
	mu        sync.Mutex
	completed []models.SubTaskResult
	meta      *models.ExecutionMetadata
}

func (s *stubSynthesizer) Synthesize(ctx context.Context, issue *models.ResearchIssue, completed []models.SubTaskResult, meta *models.ExecutionMetadata) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = completed
	s.meta = meta
	return &models.Report{Title: issue.Title, Body: "synthesized", GeneratedAt: time.Now()}, nil
}

func seedProposals(n int) []models.SubTaskProposal {
	var out []models.SubTaskProposal
	for i := 0; i < n; i++ {
		out = append(out, models.SubTaskProposal{
			ID:    fmt.Sprintf("seed-%d", i),
			Title: fmt.Sprintf("Seed task %d", i),
		})
	}
	return out
}

func testConfig() RunConfig {
	return RunConfig{
		MaxSubTasks:         8,
		MinSubTasks:         3,
		CompletionThreshold: 0.8,
		ConcurrencyLimit:    3,
		PerTaskTimeout:      5 * time.Second,
	}
}

func newTestOrchestrator(t *testing.T, cfg RunConfig, d *stubDecomposer, r *stubResearcher, s *stubSynthesizer) *Orchestrator {
	t.Helper()
	o, err := New(cfg, Collaborators{Decomposer: d, Researcher: r, Synthesizer: s})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestRunConvergesInOnePass(t *testing.T) {
	decomposer := &stubDecomposer{seed: seedProposals(5)}
	researcher := newStubResearcher()
	synthesizer := &stubSynthesizer{}

	o := newTestOrchestrator(t, testConfig(), decomposer, researcher, synthesizer)
	outcome, err := o.Run(context.Background(), &models.ResearchIssue{Title: "test issue"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if outcome.Metadata.Iterations != 1 {
		t.Errorf("expected exactly 1 iteration, got %d", outcome.Metadata.Iterations)
	}
	if outcome.Summary.Progress != 100 {
		t.Errorf("expected progress 100, got %v", outcome.Summary.Progress)
	}
	if outcome.Summary.SuccessfulTasks != 5 || outcome.Summary.TotalSubTasks != 5 {
		t.Errorf("unexpected summary: %+v", outcome.Summary)
	}
	if outcome.Metadata.CeilingReached || outcome.Metadata.Stalled {
		t.Errorf("converged run must not carry forced-stop flags: %+v", outcome.Metadata)
	}
	if len(synthesizer.completed) != 5 {
		t.Errorf("synthesizer received %d results, want 5", len(synthesizer.completed))
	}
	for id, n := range researcher.calls {
		if n != 1 {
			t.Errorf("task %s executed %d times", id, n)
		}
	}
}

func TestRunForcedCeiling(t *testing.T) {
	round := 0
	decomposer := &stubDecomposer{
		seed: seedProposals(3),
		perRound: func(iteration int) []models.SubTaskProposal {
			round++
			return []models.SubTaskProposal{{
				ID:    fmt.Sprintf("extra-%d", round),
				Title: fmt.Sprintf("Extra task %d", round),
			}}
		},
	}
	researcher := newStubResearcher()
	synthesizer := &stubSynthesizer{}

	o := newTestOrchestrator(t, testConfig(), decomposer, researcher, synthesizer)
	outcome, err := o.Run(context.Background(), &models.ResearchIssue{Title: "never enough"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !outcome.Metadata.CeilingReached {
		t.Error("ceiling flag not set")
	}
	if outcome.Metadata.Iterations != 8 {
		t.Errorf("expected 8 iterations at the ceiling, got %d", outcome.Metadata.Iterations)
	}
	if !outcome.Summary.CeilingReached {
		t.Error("summary must mirror the ceiling flag")
	}
}

func TestRunStallPath(t *testing.T) {
	decomposer := &stubDecomposer{seed: []models.SubTaskProposal{
		{ID: "a", Title: "Task A"},
		{ID: "b", Title: "Task B", DependsOn: []string{"a"}},
	}}
	researcher := newStubResearcher()
	researcher.fail = map[string]bool{"a": true}
	synthesizer := &stubSynthesizer{}

	o := newTestOrchestrator(t, testConfig(), decomposer, researcher, synthesizer)
	outcome, err := o.Run(context.Background(), &models.ResearchIssue{Title: "doomed"})
	if err != nil {
		t.Fatalf("stall must complete the run, not abort it: %v", err)
	}

	if !outcome.Metadata.Stalled {
		t.Error("stall flag not set")
	}
	if outcome.Summary.SuccessfulTasks != 0 {
		t.Errorf("expected 0 successful tasks, got %d", outcome.Summary.SuccessfulTasks)
	}
	if outcome.Summary.FailedTasks != 1 || outcome.Summary.BlockedTasks != 1 {
		t.Errorf("expected 1 failed and 1 blocked, got %+v", outcome.Summary)
	}
	if researcher.calls["b"] != 0 {
		t.Error("blocked task must never execute")
	}
}

func TestRunAllSeedsRejectedStalls(t *testing.T) {
	// Every seed names a dependency that does not exist, so the graph
	// refuses the whole batch and nothing can ever run.
	decomposer := &stubDecomposer{seed: []models.SubTaskProposal{
		{ID: "a", Title: "Task A", DependsOn: []string{"missing"}},
		{ID: "b", Title: "Task B", DependsOn: []string{"missing"}},
	}}
	researcher := newStubResearcher()
	synthesizer := &stubSynthesizer{}

	o := newTestOrchestrator(t, testConfig(), decomposer, researcher, synthesizer)
	outcome, err := o.Run(context.Background(), &models.ResearchIssue{Title: "hollow"})
	if err != nil {
		t.Fatalf("an empty graph must complete the run, not abort it: %v", err)
	}

	if !outcome.Metadata.Stalled {
		t.Error("stall flag not set for a run with no runnable tasks")
	}
	if outcome.Summary.TotalSubTasks != 0 || outcome.Summary.SuccessfulTasks != 0 {
		t.Errorf("expected an empty graph in the summary, got %+v", outcome.Summary)
	}
	if outcome.Report == nil {
		t.Fatal("report missing")
	}
	if len(researcher.calls) != 0 {
		t.Errorf("nothing should execute, got calls %+v", researcher.calls)
	}
}

func TestRunDynamicGrowthFromResults(t *testing.T) {
	decomposer := &stubDecomposer{seed: seedProposals(3)}
	researcher := newStubResearcher()
	researcher.additional = map[string][]models.SubTaskProposal{
		"seed-0": {{ID: "gap", Title: "Fill the gap"}},
	}
	synthesizer := &stubSynthesizer{}

	o := newTestOrchestrator(t, testConfig(), decomposer, researcher, synthesizer)
	outcome, err := o.Run(context.Background(), &models.ResearchIssue{Title: "growth"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if outcome.Summary.TotalSubTasks != 4 {
		t.Errorf("expected injected task in graph, got %d total", outcome.Summary.TotalSubTasks)
	}
	if outcome.Summary.SuccessfulTasks != 4 {
		t.Errorf("expected injected task executed in a later pass, got %d successful", outcome.Summary.SuccessfulTasks)
	}
	if outcome.Metadata.Iterations != 2 {
		t.Errorf("injected task must run in the next pass, got %d iterations", outcome.Metadata.Iterations)
	}
}

func TestRunToleratesFollowUpDecomposerError(t *testing.T) {
	decomposer := &stubDecomposer{seed: seedProposals(4), roundErr: fmt.Errorf("model unavailable")}
	researcher := newStubResearcher()
	synthesizer := &stubSynthesizer{}

	o := newTestOrchestrator(t, testConfig(), decomposer, researcher, synthesizer)
	outcome, err := o.Run(context.Background(), &models.ResearchIssue{Title: "resilient"})
	if err != nil {
		t.Fatalf("follow-up decomposer error must not abort the run: %v", err)
	}
	if outcome.Summary.SuccessfulTasks != 4 {
		t.Errorf("expected 4 successful tasks, got %d", outcome.Summary.SuccessfulTasks)
	}
}

func TestRunSeedDecomposerErrorIsFatal(t *testing.T) {
	decomposer := &stubDecomposer{seedErr: fmt.Errorf("no api key")}
	o := newTestOrchestrator(t, testConfig(), decomposer, newStubResearcher(), &stubSynthesizer{})
	if _, err := o.Run(context.Background(), &models.ResearchIssue{Title: "broken"}); err == nil {
		t.Fatal("expected fatal error from seed decomposition failure")
	}
}

func TestRunCancellationShortCircuitsToSynthesis(t *testing.T) {
	decomposer := &stubDecomposer{seed: seedProposals(4)}
	researcher := newStubResearcher()
	researcher.delay = 50 * time.Millisecond
	synthesizer := &stubSynthesizer{}

	cfg := testConfig()
	cfg.ConcurrencyLimit = 1
	o := newTestOrchestrator(t, cfg, decomposer, researcher, synthesizer)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()

	outcome, err := o.Run(ctx, &models.ResearchIssue{Title: "cancelled"})
	if err != nil {
		t.Fatalf("cancellation must still synthesize: %v", err)
	}
	if outcome.Report == nil {
		t.Fatal("expected a report from partial results")
	}
	if outcome.Summary.SuccessfulTasks >= 4 {
		t.Errorf("expected cancellation to stop dispatch, got %d successful", outcome.Summary.SuccessfulTasks)
	}
	// Dispatched work is never lost: whatever completed is counted.
	if outcome.Summary.SuccessfulTasks < 1 {
		t.Errorf("expected at least the dispatched task to finish, got %d", outcome.Summary.SuccessfulTasks)
	}
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	decomposer := &stubDecomposer{seed: seedProposals(3)}
	o := newTestOrchestrator(t, testConfig(), decomposer, newStubResearcher(), &stubSynthesizer{})

	if _, err := o.Run(context.Background(), &models.ResearchIssue{Title: "events"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	seen := make(map[EventType]int)
	for event := range o.Events() {
		seen[event.Type]++
	}
	for _, want := range []EventType{EventRunStarted, EventTasksProposed, EventTaskQueued, EventTaskStarted, EventTaskCompleted, EventIterationEvaluated, EventSynthesisStarted, EventRunDone} {
		if seen[want] == 0 {
			t.Errorf("missing %s event", want)
		}
	}
	if seen[EventTaskCompleted] != 3 {
		t.Errorf("expected 3 task_completed events, got %d", seen[EventTaskCompleted])
	}
	if o.Phase() != PhaseDone {
		t.Errorf("expected done phase, got %s", o.Phase())
	}
}
