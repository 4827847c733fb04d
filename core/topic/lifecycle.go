package topic

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/versioned"
)

var (
	ErrRecordRequired    = errors.New("a learning record is required to complete this task")
	ErrInvalidTransition = errors.New("invalid task status transition")
)

// transitions lists the allowed target statuses per status. Moving to done is additionally
// gated by the existence of a learning record.
var transitions = map[TaskStatus][]TaskStatus{
	TaskTodo:       {TaskInProgress, TaskDone},
	TaskInProgress: {TaskTodo, TaskDone},
	TaskDone:       {TaskTodo, TaskInProgress},
}

func CanTransition(from, to TaskStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ProgressError reports a committed transition whose progress could not be recomputed.
type ProgressError struct {
	TaskID string
	Err    error
}

func (e *ProgressError) Error() string {
	return "task " + e.TaskID + " updated, recomputing progress: " + e.Err.Error()
}

func (e *ProgressError) Unwrap() error { return e.Err }
func (e *ProgressError) Cause() error  { return e.Err }

// Transition is the outcome of a task status change.
type Transition struct {
	Task          Task      `json:"task"`
	GoalProgress  int       `json:"goal_progress"`
	TopicProgress int       `json:"topic_progress"`
	Tree          TopicTree `json:"tree"`
}

// TransitionTask moves a task to status `to` if it is still at expectedVersion.
//
// Completing requires a learning record for the task: without one it fails with ErrRecordRequired
// and leaves the task untouched. Completing stamps completed_by/completed_at; leaving done clears them.
// The goal and topic progress are recomputed after the write; a failure there is returned
// as a *ProgressError along with the already-updated task.
func (svc *Service) TransitionTask(ctx context.Context, taskID string, expectedVersion int, to TaskStatus, actorID string) (Transition, error) {
	if !to.Valid() {
		return Transition{}, errors.Wrapf(ErrInvalidTransition, "unknown status %q", to)
	}

	t, err := svc.tasks.Read(ctx, taskID)
	if err != nil {
		return Transition{}, err
	}
	if t.Version != expectedVersion {
		return Transition{}, versioned.NewConflictError(KindTask, taskID, expectedVersion, t.Version)
	}
	if !CanTransition(t.Status, to) {
		return Transition{}, errors.Wrapf(ErrInvalidTransition, "%s -> %s", t.Status, to)
	}

	patch := TaskPatch{Status: &to}
	if to == TaskDone {
		if actorID == "" {
			return Transition{}, core.NewValidationError(nil, core.FieldError{Field: "completed_by", Error: "an acting user is required"})
		}
		ok, err := svc.records.HasRecord(ctx, taskID)
		if err != nil {
			return Transition{}, errors.Wrap(err, "checking learning record")
		}
		if !ok {
			return Transition{}, ErrRecordRequired
		}
		now := nowFunc().UTC()
		patch.CompletedBy, patch.CompletedAt = &actorID, &now
	}

	t, err = svc.tasks.Update(ctx, taskID, expectedVersion, patch)
	if err != nil {
		return Transition{}, errors.Wrap(err, "updating task status")
	}

	res := Transition{Task: t}
	if err = svc.refreshProgress(ctx, &res); err != nil {
		svc.logger.Error("recomputing progress after task transition", err, map[string]interface{}{"task_id": t.ID})
		return res, &ProgressError{TaskID: t.ID, Err: err}
	}
	return res, nil
}

func (svc *Service) StartTask(ctx context.Context, taskID string, expectedVersion int, actorID string) (Transition, error) {
	return svc.TransitionTask(ctx, taskID, expectedVersion, TaskInProgress, actorID)
}

func (svc *Service) CompleteTask(ctx context.Context, taskID string, expectedVersion int, actorID string) (Transition, error) {
	return svc.TransitionTask(ctx, taskID, expectedVersion, TaskDone, actorID)
}

func (svc *Service) ReopenTask(ctx context.Context, taskID string, expectedVersion int, actorID string) (Transition, error) {
	return svc.TransitionTask(ctx, taskID, expectedVersion, TaskTodo, actorID)
}

func (svc *Service) refreshProgress(ctx context.Context, res *Transition) error {
	g, err := svc.goals.Read(ctx, res.Task.GoalID)
	if err != nil {
		return err
	}
	tree, err := svc.FetchTree(ctx, g.TopicID)
	if err != nil {
		return err
	}
	res.Tree = tree
	res.TopicProgress = tree.Progress
	if gt, ok := tree.Goal(g.ID); ok {
		res.GoalProgress = gt.Progress
		return nil
	}
	// archived goals are not part of the tree
	res.GoalProgress, err = svc.GoalProgress(ctx, g.ID)
	return err
}
