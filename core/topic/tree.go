package topic

import "math"

type (
	GoalTree struct {
		Goal
		Tasks    []Task `json:"tasks"`
		Progress int    `json:"progress"`
	}

	TopicTree struct {
		Topic
		Goals    []GoalTree `json:"goals"`
		Progress int        `json:"progress"`
	}
)

// Percent is round(100*done/total), 0 when total is 0.
func Percent(done, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(done) / float64(total)))
}

func countDone(tasks []Task) (done, total int) {
	for _, t := range tasks {
		if t.Archived {
			continue
		}
		total++
		if t.IsDone() {
			done++
		}
	}
	return done, total
}

// Recompute refreshes the progress of every goal and of the topic.
func (tr *TopicTree) Recompute() {
	var done, total int
	for i := range tr.Goals {
		d, n := countDone(tr.Goals[i].Tasks)
		tr.Goals[i].Progress = Percent(d, n)
		done += d
		total += n
	}
	tr.Progress = Percent(done, total)
}

// Goal returns the goal subtree with the given id.
func (tr *TopicTree) Goal(id string) (*GoalTree, bool) {
	for i := range tr.Goals {
		if tr.Goals[i].ID == id {
			return &tr.Goals[i], true
		}
	}
	return nil, false
}

// AttachGoal adds a freshly created goal to the tree. Goals of other topics and archived goals are ignored.
func (tr *TopicTree) AttachGoal(g Goal) bool {
	if g.TopicID != tr.ID || g.Status != StatusActive {
		return false
	}
	if _, ok := tr.Goal(g.ID); ok {
		return false
	}
	tr.Goals = append(tr.Goals, GoalTree{Goal: g, Tasks: []Task{}})
	tr.Recompute()
	return true
}

// AttachTask adds a task to its goal, or replaces the tree's copy when it is already there.
// Archived tasks are removed from the view.
func (tr *TopicTree) AttachTask(t Task) bool {
	gt, ok := tr.Goal(t.GoalID)
	if !ok {
		return false
	}
	for i := range gt.Tasks {
		if gt.Tasks[i].ID == t.ID {
			if t.Archived {
				gt.Tasks = append(gt.Tasks[:i], gt.Tasks[i+1:]...)
			} else {
				gt.Tasks[i] = t
			}
			tr.Recompute()
			return true
		}
	}
	if t.Archived {
		return false
	}
	gt.Tasks = append(gt.Tasks, t)
	tr.Recompute()
	return true
}
