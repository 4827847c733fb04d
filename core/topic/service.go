package topic

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/versioned"
)

// treeLoadLimit caps the concurrent per-goal task loads of FetchTree.
const treeLoadLimit = 8

var nowFunc = time.Now // mockable

type (
	TopicRepository interface {
		versioned.Store[Topic, TopicPatch]
		// QueryTopics returns the topics matching filter; oldest first unless filter.Orderings says otherwise.
		QueryTopics(ctx context.Context, filter TopicFilter) ([]Topic, error)
	}

	GoalRepository interface {
		versioned.Store[Goal, GoalPatch]
		// QueryGoals returns the goals of a topic by order index, then creation.
		QueryGoals(ctx context.Context, topicID string, includeArchived bool) ([]Goal, error)
	}

	TaskRepository interface {
		versioned.Store[Task, TaskPatch]
		// QueryTasks returns the tasks of a goal by order index, then creation.
		QueryTasks(ctx context.Context, goalID string, includeArchived bool) ([]Task, error)
		// QueryActiveTasks returns, in insertion order, the non-archived todo and in_progress tasks
		// under the active goals of the owner's active topics.
		QueryActiveTasks(ctx context.Context, ownerID string) ([]ActiveTask, error)
	}

	// RecordChecker tells whether a learning record exists for a task.
	RecordChecker interface {
		HasRecord(ctx context.Context, taskID string) (bool, error)
	}

	Repositories struct {
		Topics TopicRepository
		Goals  GoalRepository
		Tasks  TaskRepository
	}

	// Service manages the topic > goal > task tree and the task lifecycle.
	Service struct {
		topics  TopicRepository
		goals   GoalRepository
		tasks   TaskRepository
		records RecordChecker
		logger  core.Logger
	}
)

func NewService(repos Repositories, records RecordChecker, logger core.Logger) *Service {
	return &Service{
		topics:  repos.Topics,
		goals:   repos.Goals,
		tasks:   repos.Tasks,
		records: records,
		logger:  logger,
	}
}

// Topics

func (svc *Service) CreateTopic(ctx context.Context, nt NewTopic, ownerID string) (Topic, error) {
	t := Topic{
		Title:           nt.Title,
		Subject:         nt.Subject,
		IsCollaborative: nt.IsCollaborative,
		Status:          StatusActive,
		OwnerID:         ownerID,
	}
	t, err := svc.topics.Create(ctx, t)
	return t, errors.Wrap(err, "creating topic")
}

func (svc *Service) GetTopic(ctx context.Context, id string) (Topic, error) {
	return svc.topics.Read(ctx, id)
}

func (svc *Service) UpdateTopic(ctx context.Context, id string, expectedVersion int, patch TopicPatch) (Topic, error) {
	return svc.topics.Update(ctx, id, expectedVersion, patch)
}

func (svc *Service) QueryTopics(ctx context.Context, filter TopicFilter) ([]Topic, error) {
	topics, err := svc.topics.QueryTopics(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	if topics == nil {
		topics = []Topic{}
	}
	return topics, nil
}

// Tree

// FetchTree loads a topic with its active goals and their non-archived tasks.
// Goal task lists are loaded concurrently.
func (svc *Service) FetchTree(ctx context.Context, topicID string) (TopicTree, error) {
	t, err := svc.topics.Read(ctx, topicID)
	if err != nil {
		return TopicTree{}, err
	}
	goals, err := svc.goals.QueryGoals(ctx, topicID, false)
	if err != nil {
		return TopicTree{}, errors.Wrap(err, "querying goals")
	}

	trees := make([]GoalTree, len(goals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(treeLoadLimit)
	for i, goal := range goals {
		g.Go(func() error {
			tasks, err := svc.tasks.QueryTasks(gctx, goal.ID, false)
			if err != nil {
				return errors.Wrapf(err, "querying tasks of goal %s", goal.ID)
			}
			if tasks == nil {
				tasks = []Task{}
			}
			trees[i] = GoalTree{Goal: goal, Tasks: tasks}
			return nil
		})
	}
	if err = g.Wait(); err != nil {
		return TopicTree{}, err
	}

	tree := TopicTree{Topic: t, Goals: trees}
	tree.Recompute()
	return tree, nil
}

// AddGoal creates a goal under an existing topic.
func (svc *Service) AddGoal(ctx context.Context, topicID string, ng NewGoal, creatorID string) (Goal, error) {
	if _, err := svc.topics.Read(ctx, topicID); err != nil {
		return Goal{}, err
	}
	if ng.Priority == "" {
		ng.Priority = PriorityMedium
	}
	g := Goal{
		TopicID:     topicID,
		Title:       ng.Title,
		Description: ng.Description,
		Status:      StatusActive,
		Priority:    ng.Priority,
		OrderIndex:  ng.OrderIndex,
		CreatorID:   creatorID,
	}
	g, err := svc.goals.Create(ctx, g)
	return g, errors.Wrap(err, "creating goal")
}

// AddTask creates a todo task under an existing goal.
func (svc *Service) AddTask(ctx context.Context, goalID string, nt NewTask, creatorID string) (Task, error) {
	if _, err := svc.goals.Read(ctx, goalID); err != nil {
		return Task{}, err
	}
	if nt.Priority == "" {
		nt.Priority = PriorityMedium
	}
	t := Task{
		GoalID:           goalID,
		Title:            nt.Title,
		Description:      nt.Description,
		Status:           TaskTodo,
		Priority:         nt.Priority,
		OrderIndex:       nt.OrderIndex,
		EstimatedMinutes: nt.EstimatedMinutes,
		CreatorID:        creatorID,
	}
	t, err := svc.tasks.Create(ctx, t)
	return t, errors.Wrap(err, "creating task")
}

func (svc *Service) GetGoal(ctx context.Context, id string) (Goal, error) {
	return svc.goals.Read(ctx, id)
}

func (svc *Service) UpdateGoal(ctx context.Context, id string, expectedVersion int, patch GoalPatch) (Goal, error) {
	return svc.goals.Update(ctx, id, expectedVersion, patch)
}

func (svc *Service) GetTask(ctx context.Context, id string) (Task, error) {
	return svc.tasks.Read(ctx, id)
}

// UpdateTask edits a task's information. Status changes go through TransitionTask.
func (svc *Service) UpdateTask(ctx context.Context, id string, expectedVersion int, patch TaskPatch) (Task, error) {
	if !patch.IsInfoOnly() {
		return Task{}, errors.Wrap(ErrInvalidPatch, "task status changes must go through a transition")
	}
	return svc.tasks.Update(ctx, id, expectedVersion, patch)
}

// ReorderTasks sets the order index of each task of a goal to its position in order.
// Each move is a version-checked update; it stops at the first failure and returns the tasks moved so far.
func (svc *Service) ReorderTasks(ctx context.Context, goalID string, order []versioned.Ref) ([]Task, error) {
	if _, err := svc.goals.Read(ctx, goalID); err != nil {
		return nil, err
	}
	moved := make([]Task, 0, len(order))
	for i, ref := range order {
		t, err := svc.tasks.Read(ctx, ref.ID)
		if err != nil {
			return moved, err
		}
		if t.GoalID != goalID {
			return moved, core.NewValidationError(
				errors.Errorf("task %s does not belong to goal %s", ref.ID, goalID),
				core.FieldError{Field: "tasks", Error: "task " + ref.ID + " does not belong to this goal"},
			)
		}
		idx := i
		t, err = svc.tasks.Update(ctx, ref.ID, ref.Version, TaskPatch{OrderIndex: &idx})
		if err != nil {
			return moved, err
		}
		moved = append(moved, t)
	}
	return moved, nil
}

// Progress

// GoalProgress is the completion percentage of a goal's non-archived tasks.
func (svc *Service) GoalProgress(ctx context.Context, goalID string) (int, error) {
	if _, err := svc.goals.Read(ctx, goalID); err != nil {
		return 0, err
	}
	tasks, err := svc.tasks.QueryTasks(ctx, goalID, false)
	if err != nil {
		return 0, errors.Wrap(err, "querying tasks")
	}
	done, total := countDone(tasks)
	return Percent(done, total), nil
}

// TopicProgress is the completion percentage over every task of the topic tree.
func (svc *Service) TopicProgress(ctx context.Context, topicID string) (int, error) {
	tree, err := svc.FetchTree(ctx, topicID)
	if err != nil {
		return 0, err
	}
	return tree.Progress, nil
}

// ActiveTasksForUser lists the user's open tasks by priority (high first), then insertion order.
func (svc *Service) ActiveTasksForUser(ctx context.Context, userID string) ([]ActiveTask, error) {
	tasks, err := svc.tasks.QueryActiveTasks(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying active tasks")
	}
	if tasks == nil {
		return []ActiveTask{}, nil
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.Rank() < tasks[j].Priority.Rank()
	})
	return tasks, nil
}

// TopicOfTask resolves the topic owning a task.
func (r Repositories) TopicOfTask(ctx context.Context, taskID string) (string, error) {
	t, err := r.Tasks.Read(ctx, taskID)
	if err != nil {
		return "", err
	}
	g, err := r.Goals.Read(ctx, t.GoalID)
	if err != nil {
		return "", err
	}
	return g.TopicID, nil
}
