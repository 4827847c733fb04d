package topic

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core/versioned"
)

type EntityRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// PartialCascadeError reports a cascading delete that stopped partway.
// Pending lists, in deletion order, the entities still to delete; re-issuing the delete is safe.
type PartialCascadeError struct {
	Root    EntityRef
	Deleted int
	Pending []EntityRef
	Err     error
}

func (e *PartialCascadeError) Error() string {
	return fmt.Sprintf("deleting %s %s: stopped after %d deletions, %d pending: %v",
		e.Root.Kind, e.Root.ID, e.Deleted, len(e.Pending), e.Err)
}

func (e *PartialCascadeError) Unwrap() error { return e.Err }

// DeleteGoal deletes a goal and all its tasks (archived ones included), tasks first.
func (svc *Service) DeleteGoal(ctx context.Context, goalID string) error {
	if _, err := svc.goals.Read(ctx, goalID); err != nil {
		return err
	}
	plan, err := svc.planGoal(ctx, goalID)
	if err != nil {
		return err
	}
	return svc.runCascade(ctx, EntityRef{Kind: KindGoal, ID: goalID}, plan)
}

// DeleteTopic deletes a topic, its goals and their tasks, children before parents.
func (svc *Service) DeleteTopic(ctx context.Context, topicID string) error {
	if _, err := svc.topics.Read(ctx, topicID); err != nil {
		return err
	}
	goals, err := svc.goals.QueryGoals(ctx, topicID, true)
	if err != nil {
		return errors.Wrap(err, "querying goals")
	}
	var plan []EntityRef
	for _, g := range goals {
		gp, err := svc.planGoal(ctx, g.ID)
		if err != nil {
			return err
		}
		plan = append(plan, gp...)
	}
	plan = append(plan, EntityRef{Kind: KindTopic, ID: topicID})
	return svc.runCascade(ctx, EntityRef{Kind: KindTopic, ID: topicID}, plan)
}

func (svc *Service) planGoal(ctx context.Context, goalID string) ([]EntityRef, error) {
	tasks, err := svc.tasks.QueryTasks(ctx, goalID, true)
	if err != nil {
		return nil, errors.Wrapf(err, "querying tasks of goal %s", goalID)
	}
	plan := make([]EntityRef, 0, len(tasks)+1)
	for _, t := range tasks {
		plan = append(plan, EntityRef{Kind: KindTask, ID: t.ID})
	}
	return append(plan, EntityRef{Kind: KindGoal, ID: goalID}), nil
}

func (svc *Service) runCascade(ctx context.Context, root EntityRef, plan []EntityRef) error {
	for i, ref := range plan {
		if err := svc.deleteOne(ctx, ref); err != nil && !versioned.IsNotFound(err) {
			pErr := &PartialCascadeError{
				Root:    root,
				Deleted: i,
				Pending: append([]EntityRef(nil), plan[i:]...),
				Err:     err,
			}
			svc.logger.Warn("cascade delete stopped", pErr)
			return pErr
		}
	}
	return nil
}

func (svc *Service) deleteOne(ctx context.Context, ref EntityRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch ref.Kind {
	case KindTask:
		return svc.tasks.Delete(ctx, ref.ID)
	case KindGoal:
		return svc.goals.Delete(ctx, ref.ID)
	case KindTopic:
		return svc.topics.Delete(ctx, ref.ID)
	}
	return errors.Errorf("unknown entity kind %q", ref.Kind)
}
