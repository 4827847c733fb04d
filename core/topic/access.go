package topic

import (
	"context"

	"github.com/pkg/errors"
)

var ErrForbidden = errors.New("not allowed on this topic")

// Access is the level of rights an action needs on a topic.
type Access int

const (
	// AccessContribute: the owner, or anyone when the topic is collaborative.
	AccessContribute Access = iota
	// AccessOwner: the owner only.
	AccessOwner
)

// Authorize checks that actorID has access to the topic owning ref.
// Unknown entities fail with versioned.ErrNotFound.
func (svc *Service) Authorize(ctx context.Context, ref EntityRef, actorID string, access Access) error {
	topicID, err := svc.topicOf(ctx, ref)
	if err != nil {
		return err
	}
	t, err := svc.topics.Read(ctx, topicID)
	if err != nil {
		return err
	}
	if t.OwnerID == actorID || (access == AccessContribute && t.IsCollaborative) {
		return nil
	}
	return errors.Wrapf(ErrForbidden, "%s %s", ref.Kind, ref.ID)
}

func (svc *Service) topicOf(ctx context.Context, ref EntityRef) (string, error) {
	switch ref.Kind {
	case KindTopic:
		return ref.ID, nil
	case KindGoal:
		g, err := svc.goals.Read(ctx, ref.ID)
		if err != nil {
			return "", err
		}
		return g.TopicID, nil
	case KindTask:
		repos := Repositories{Topics: svc.topics, Goals: svc.goals, Tasks: svc.tasks}
		return repos.TopicOfTask(ctx, ref.ID)
	}
	return "", errors.Errorf("unknown entity kind %q", ref.Kind)
}
