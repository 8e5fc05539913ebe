package graph

import "github.com/probelab/probe/pkg/models"

// Snapshot is a read-only copy of the graph at one point in time. Mutating a
// snapshot never affects the live graph.
type Snapshot struct {
	// Tasks holds deep copies of every sub-task, in insertion order.
	Tasks []models.SubTask
}

// Snapshot returns a copy-out view of the graph for evaluators and
// synthesizers.
func (g *TaskGraph) Snapshot() *Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := &Snapshot{Tasks: make([]models.SubTask, 0, len(g.order))}
	for _, id := range g.order {
		snap.Tasks = append(snap.Tasks, copyTask(g.nodes[id]))
	}
	return snap
}

// Counts returns the number of sub-tasks per status in the snapshot.
func (s *Snapshot) Counts() map[models.SubTaskStatus]int {
	counts := make(map[models.SubTaskStatus]int)
	for _, task := range s.Tasks {
		counts[task.Status]++
	}
	return counts
}

// Count returns the number of sub-tasks with the given status.
func (s *Snapshot) Count(status models.SubTaskStatus) int {
	n := 0
	for _, task := range s.Tasks {
		if task.Status == status {
			n++
		}
	}
	return n
}

// CompletedResults returns the results of completed sub-tasks in insertion
// order.
func (s *Snapshot) CompletedResults() []models.SubTaskResult {
	var results []models.SubTaskResult
	for _, task := range s.Tasks {
		if task.Status == models.StatusCompleted && task.Result != nil {
			results = append(results, *task.Result)
		}
	}
	return results
}

// copyTask deep-copies a sub-task, including its slices and result.
func copyTask(task *models.SubTask) models.SubTask {
	cp := *task
	cp.DependsOn = append([]string(nil), task.DependsOn...)
	if task.Result != nil {
		result := copyResult(task.Result)
		cp.Result = &result
	}
	return cp
}

// copyResult deep-copies a result, including its slices.
func copyResult(r *models.SubTaskResult) models.SubTaskResult {
	cp := *r
	cp.Evidence = append([]string(nil), r.Evidence...)
	cp.Sources = append([]models.Source(nil), r.Sources...)
	cp.AdditionalTasks = append([]models.SubTaskProposal(nil), r.AdditionalTasks...)
	return cp
}
