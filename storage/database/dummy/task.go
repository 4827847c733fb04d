package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core/topic"
)

type taskRepository struct {
	db *DB
}

var _ topic.TaskRepository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) topic.TaskRepository {
	return &taskRepository{db: db}
}

// cloneTask detaches the pointer fields so callers never share memory with the table.
func cloneTask(t topic.Task) topic.Task {
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		t.CompletedAt = &at
	}
	if t.EstimatedMinutes != nil {
		m := *t.EstimatedMinutes
		t.EstimatedMinutes = &m
	}
	if t.ActualMinutes != nil {
		m := *t.ActualMinutes
		t.ActualMinutes = &m
	}
	return t
}

func (repo *taskRepository) Create(_ context.Context, t topic.Task) (topic.Task, error) {
	now := nowFunc().UTC()
	t = cloneTask(t)
	t.ID = uuid.New().String()
	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now

	repo.db.goal.RLock()
	defer repo.db.goal.RUnlock()
	if !repo.db.goal.has(t.GoalID) {
		return topic.Task{}, missingParent(topic.KindTask, topic.KindGoal, t.GoalID)
	}

	repo.db.task.Lock()
	defer repo.db.task.Unlock()
	repo.db.task.insert(t.ID, t)
	return cloneTask(t), nil
}

func (repo *taskRepository) Read(_ context.Context, id string) (topic.Task, error) {
	t, err := repo.db.task.get(topic.KindTask, id)
	return cloneTask(t), err
}

func (repo *taskRepository) Update(_ context.Context, id string, expectedVersion int, patch topic.TaskPatch) (topic.Task, error) {
	if err := patch.CheckCompletion(); err != nil {
		return topic.Task{}, errors.Wrapf(err, "updating task %s", id)
	}
	now := nowFunc().UTC()
	t, err := repo.db.task.update(topic.KindTask, id, expectedVersion,
		func(t topic.Task) int { return t.Version },
		func(t *topic.Task) {
			*t = cloneTask(*t)
			patch.Apply(t)
			t.Version++
			t.UpdatedAt = now
		},
	)
	return cloneTask(t), err
}

func (repo *taskRepository) Delete(_ context.Context, id string) error {
	return repo.db.task.delete(topic.KindTask, id, nil)
}

func (repo *taskRepository) QueryTasks(_ context.Context, goalID string, includeArchived bool) ([]topic.Task, error) {
	tasks := repo.db.task.query(func(t topic.Task) bool {
		return t.GoalID == goalID && (includeArchived || !t.Archived)
	})
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].OrderIndex < tasks[j].OrderIndex })
	for i := range tasks {
		tasks[i] = cloneTask(tasks[i])
	}
	return tasks, nil
}

func (repo *taskRepository) QueryActiveTasks(_ context.Context, ownerID string) ([]topic.ActiveTask, error) {
	repo.db.topic.RLock()
	defer repo.db.topic.RUnlock()
	repo.db.goal.RLock()
	defer repo.db.goal.RUnlock()
	repo.db.task.RLock()
	defer repo.db.task.RUnlock()

	topics := make(map[string]topic.Topic)
	for _, t := range repo.db.topic.selectRows(func(t topic.Topic) bool {
		return t.OwnerID == ownerID && t.Status == topic.StatusActive
	}) {
		topics[t.ID] = t
	}
	goals := make(map[string]topic.Goal)
	for _, g := range repo.db.goal.selectRows(func(g topic.Goal) bool {
		_, ok := topics[g.TopicID]
		return ok && g.Status == topic.StatusActive
	}) {
		goals[g.ID] = g
	}

	tasks := repo.db.task.selectRows(func(t topic.Task) bool {
		_, ok := goals[t.GoalID]
		return ok && !t.Archived && (t.Status == topic.TaskTodo || t.Status == topic.TaskInProgress)
	})
	views := make([]topic.ActiveTask, 0, len(tasks))
	for _, t := range tasks {
		g := goals[t.GoalID]
		tp := topics[g.TopicID]
		views = append(views, topic.ActiveTask{
			TaskID:       t.ID,
			Title:        t.Title,
			Status:       t.Status,
			Priority:     t.Priority,
			Version:      t.Version,
			NeedHelp:     t.NeedHelp,
			GoalID:       g.ID,
			GoalTitle:    g.Title,
			TopicID:      tp.ID,
			TopicTitle:   tp.Title,
			TopicSubject: tp.Subject,
			CreatedAt:    t.CreatedAt,
		})
	}
	return views, nil
}
