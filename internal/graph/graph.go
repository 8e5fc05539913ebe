// Package graph owns the mutable set of sub-tasks and their dependency edges.
// It is the only shared mutable structure in a run; every mutation goes
// through its transition operations, which are internally serialized so
// concurrent workers need no external synchronization.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/probelab/probe/pkg/models"
)

// ErrInvalidTransition indicates a status transition that violates the
// sub-task lifecycle, such as completing a task that was never running.
var ErrInvalidTransition = errors.New("invalid sub-task transition")

// ErrUnknownTask indicates an operation referenced a sub-task ID that is not
// in the graph.
var ErrUnknownTask = errors.New("unknown sub-task")

// RejectReason classifies why a proposal was not admitted to the graph.
type RejectReason string

const (
	// ReasonUnknownDependency means a declared dependency references an ID
	// that is neither in the graph nor in the accepted part of the batch.
	ReasonUnknownDependency RejectReason = "unknown_dependency"
	// ReasonWouldCycle means admitting the proposal would make the
	// dependency relation cyclic.
	ReasonWouldCycle RejectReason = "would_cycle"
	// ReasonDuplicateID means the proposal's ID is already taken.
	ReasonDuplicateID RejectReason = "duplicate_id"
)

// Rejection records one proposal the graph refused, with the reason.
type Rejection struct {
	// Proposal is the rejected proposal, unmodified.
	Proposal models.SubTaskProposal
	// Reason classifies the rejection.
	Reason RejectReason
	// Detail names the offending dependency or ID.
	Detail string
}

func (r Rejection) Error() string {
	return fmt.Sprintf("proposal %q rejected: %s (%s)", r.Proposal.Title, r.Reason, r.Detail)
}

// TaskGraph is a directed acyclic graph of sub-tasks. Nodes live in an
// append-only store indexed by ID; edges are ID references, so dynamic growth
// never invalidates existing entries. Sub-tasks are never deleted - failed
// ones remain as a permanent record.
type TaskGraph struct {
	mu sync.Mutex
	// nodes maps sub-task ID to the sub-task itself.
	nodes map[string]*models.SubTask
	// order records insertion order for deterministic scheduling.
	order []string
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty task graph.
func New() *TaskGraph {
	return &TaskGraph{
		nodes:    make(map[string]*models.SubTask),
		debugLog: func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *TaskGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// candidate is one batch member still in the running during validation.
type candidate struct {
	id       string
	proposal models.SubTaskProposal
}

// AddTasks validates and admits a batch of proposals. A proposal's
// dependencies may reference IDs already in the graph or anywhere in the same
// batch, forward references included, but must not introduce a cycle.
// Accepted proposals become pending sub-tasks; rejected ones are returned
// with reasons and leave the graph untouched - a rejection never partially
// applies a batch member.
func (g *TaskGraph) AddTasks(proposals []models.SubTaskProposal, proposedBy string) ([]*models.SubTask, []Rejection) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var rejected []Rejection

	// Pass 1: assign IDs and reject duplicates.
	var survivors []candidate
	inBatch := make(map[string]bool)
	for _, p := range proposals {
		id := p.ID
		if id == "" {
			id = uuid.New().String()[:8]
		}
		if _, exists := g.nodes[id]; exists || inBatch[id] {
			rejected = append(rejected, Rejection{Proposal: p, Reason: ReasonDuplicateID, Detail: id})
			continue
		}
		inBatch[id] = true
		survivors = append(survivors, candidate{id: id, proposal: p})
	}

	// Pass 2: alternate unknown-dependency and cycle scans until stable.
	// Rejecting one member can orphan another's dependency, so each rejection
	// re-runs the scans over the remaining set.
	for {
		var next []candidate
		changed := false

		surviving := make(map[string]bool, len(survivors))
		for _, c := range survivors {
			surviving[c.id] = true
		}

		for _, c := range survivors {
			unknown := ""
			for _, depID := range c.proposal.DependsOn {
				if _, exists := g.nodes[depID]; !exists && !surviving[depID] {
					unknown = depID
					break
				}
			}
			if unknown != "" {
				rejected = append(rejected, Rejection{Proposal: c.proposal, Reason: ReasonUnknownDependency, Detail: unknown})
				delete(surviving, c.id)
				changed = true
				continue
			}
			next = append(next, c)
		}
		survivors = next

		// Incremental cycle scan over the prospective graph: committed
		// edges plus survivors admitted so far. A candidate that closes a
		// loop is dropped; dangling forward references simply terminate
		// the walk and are caught by the next unknown-dependency scan.
		edges := make(map[string][]string, len(g.nodes)+len(survivors))
		for id, task := range g.nodes {
			edges[id] = task.DependsOn
		}
		next = next[:0]
		for _, c := range survivors {
			edges[c.id] = c.proposal.DependsOn
			if hasCycle(edges) {
				delete(edges, c.id)
				rejected = append(rejected, Rejection{Proposal: c.proposal, Reason: ReasonWouldCycle, Detail: c.id})
				changed = true
				continue
			}
			next = append(next, c)
		}
		survivors = next

		if !changed {
			break
		}
	}

	// Commit the accepted subset.
	accepted := make([]*models.SubTask, 0, len(survivors))
	for _, c := range survivors {
		priority := c.proposal.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		task := &models.SubTask{
			ID:          c.id,
			Title:       c.proposal.Title,
			Description: c.proposal.Description,
			Priority:    priority,
			DependsOn:   append([]string(nil), c.proposal.DependsOn...),
			Status:      models.StatusPending,
			ProposedBy:  proposedBy,
			CreatedAt:   time.Now(),
		}
		g.nodes[task.ID] = task
		g.order = append(g.order, task.ID)
		accepted = append(accepted, task)
		g.debugLog("[graph] added task %s %q (deps=%v, by=%s)", task.ID, task.Title, task.DependsOn, proposedBy)
	}

	// A task depending on something already failed or blocked can never run.
	for _, task := range accepted {
		if g.hasDeadDependencyLocked(task.ID) {
			g.blockLocked(task.ID)
		}
	}

	return accepted, rejected
}

// hasCycle reports whether the dependency relation contains a cycle.
// Uses depth-first search with coloring to detect back edges. Edges to IDs
// absent from the map terminate the walk.
func hasCycle(edges map[string][]string) bool {
	// Color states: 0 = white (unvisited), 1 = gray (in progress), 2 = black (done).
	colors := make(map[string]int, len(edges))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1

		for _, depID := range edges[id] {
			if _, exists := edges[depID]; !exists {
				continue
			}
			switch colors[depID] {
			case 1:
				// Back edge - cycle detected.
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		return false
	}

	for id := range edges {
		if colors[id] == 0 {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// hasDeadDependencyLocked reports whether any dependency of the task is
// failed or blocked, making the task permanently unreachable.
func (g *TaskGraph) hasDeadDependencyLocked(id string) bool {
	task := g.nodes[id]
	for _, depID := range task.DependsOn {
		dep := g.nodes[depID]
		if dep != nil && (dep.Status == models.StatusFailed || dep.Status == models.StatusBlocked) {
			return true
		}
	}
	return false
}

// ReadyTasks returns the pending sub-tasks whose every dependency is
// completed and transitions them to ready. Ordering is deterministic:
// priority (high, medium, low), tie-broken by insertion order.
func (g *TaskGraph) ReadyTasks() []*models.SubTask {
	g.mu.Lock()
	defer g.mu.Unlock()

	var eligible []*models.SubTask
	for _, id := range g.order {
		task := g.nodes[id]
		if task.Status != models.StatusPending {
			continue
		}

		satisfied := true
		for _, depID := range task.DependsOn {
			if g.nodes[depID].Status != models.StatusCompleted {
				satisfied = false
				break
			}
		}
		if satisfied {
			eligible = append(eligible, task)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Priority.Rank() < eligible[j].Priority.Rank()
	})

	// Callers get copies; graph nodes never leave the lock.
	ready := make([]*models.SubTask, 0, len(eligible))
	for _, task := range eligible {
		task.Status = models.StatusReady
		g.debugLog("[graph] task %s ready", task.ID)
		c := copyTask(task)
		ready = append(ready, &c)
	}
	return ready
}

// MarkRunning transitions a ready sub-task to running.
func (g *TaskGraph) MarkRunning(id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("mark running %s: %w", id, ErrUnknownTask)
	}
	if task.Status != models.StatusReady {
		return fmt.Errorf("mark running %s from %s: %w", id, task.Status, ErrInvalidTransition)
	}
	task.Status = models.StatusRunning
	return nil
}

// MarkCompleted transitions a running sub-task to completed and attaches its
// result. Completed is terminal; the attached result never changes.
func (g *TaskGraph) MarkCompleted(id string, result *models.SubTaskResult) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("mark completed %s: %w", id, ErrUnknownTask)
	}
	if task.Status != models.StatusRunning {
		return fmt.Errorf("mark completed %s from %s: %w", id, task.Status, ErrInvalidTransition)
	}
	task.Status = models.StatusCompleted
	task.Result = result
	g.debugLog("[graph] task %s completed (confidence=%.2f)", id, result.Confidence)
	return nil
}

// MarkFailed transitions a running sub-task to failed and records the reason.
// Failed is terminal. Every pending sub-task that transitively depends on the
// failed one becomes blocked.
func (g *TaskGraph) MarkFailed(id, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("mark failed %s: %w", id, ErrUnknownTask)
	}
	if task.Status != models.StatusRunning && task.Status != models.StatusReady {
		return fmt.Errorf("mark failed %s from %s: %w", id, task.Status, ErrInvalidTransition)
	}
	task.Status = models.StatusFailed
	task.FailureReason = reason
	g.debugLog("[graph] task %s failed: %s", id, reason)

	g.blockDependentsLocked(id)
	return nil
}

// blockLocked marks one sub-task blocked, then propagates to its dependents.
func (g *TaskGraph) blockLocked(id string) {
	task := g.nodes[id]
	if task.Status.Terminal() || task.Status == models.StatusBlocked {
		return
	}
	task.Status = models.StatusBlocked
	g.debugLog("[graph] task %s blocked", id)
	g.blockDependentsLocked(id)
}

// blockDependentsLocked marks every non-terminal transitive dependent of the
// given sub-task as blocked.
func (g *TaskGraph) blockDependentsLocked(id string) {
	for _, depID := range g.dependentsLocked(id) {
		g.blockLocked(depID)
	}
}

// dependentsLocked returns the IDs of sub-tasks that directly depend on the
// given sub-task.
func (g *TaskGraph) dependentsLocked(id string) []string {
	var dependents []string
	for _, nodeID := range g.order {
		for _, depID := range g.nodes[nodeID].DependsOn {
			if depID == id {
				dependents = append(dependents, nodeID)
				break
			}
		}
	}
	return dependents
}

// Dependents returns the IDs of sub-tasks that directly depend on the given one.
func (g *TaskGraph) Dependents(id string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dependentsLocked(id)
}

// Get returns a copy of the sub-task with the given ID.
func (g *TaskGraph) Get(id string) (models.SubTask, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	task, ok := g.nodes[id]
	if !ok {
		return models.SubTask{}, false
	}
	return copyTask(task), true
}

// Len returns the number of sub-tasks in the graph.
func (g *TaskGraph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Counts returns the number of sub-tasks per status.
func (g *TaskGraph) Counts() map[models.SubTaskStatus]int {
	g.mu.Lock()
	defer g.mu.Unlock()

	counts := make(map[models.SubTaskStatus]int)
	for _, task := range g.nodes {
		counts[task.Status]++
	}
	return counts
}

// CompletedResults returns copies of the results of all completed sub-tasks,
// in insertion order.
func (g *TaskGraph) CompletedResults() []models.SubTaskResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	var results []models.SubTaskResult
	for _, id := range g.order {
		task := g.nodes[id]
		if task.Status == models.StatusCompleted && task.Result != nil {
			results = append(results, copyResult(task.Result))
		}
	}
	return results
}
