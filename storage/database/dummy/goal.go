package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/studywall/core/topic"
)

type goalRepository struct {
	db *DB
}

var _ topic.GoalRepository = (*goalRepository)(nil) // interface compliance check

func NewGoalRepository(db *DB) topic.GoalRepository {
	return &goalRepository{db: db}
}

func (repo *goalRepository) Create(_ context.Context, g topic.Goal) (topic.Goal, error) {
	now := nowFunc().UTC()
	g.ID = uuid.New().String()
	g.Version = 1
	g.CreatedAt, g.UpdatedAt = now, now

	repo.db.topic.RLock()
	defer repo.db.topic.RUnlock()
	if !repo.db.topic.has(g.TopicID) {
		return topic.Goal{}, missingParent(topic.KindGoal, topic.KindTopic, g.TopicID)
	}

	repo.db.goal.Lock()
	defer repo.db.goal.Unlock()
	repo.db.goal.insert(g.ID, g)
	return g, nil
}

func (repo *goalRepository) Read(_ context.Context, id string) (topic.Goal, error) {
	return repo.db.goal.get(topic.KindGoal, id)
}

func (repo *goalRepository) Update(_ context.Context, id string, expectedVersion int, patch topic.GoalPatch) (topic.Goal, error) {
	now := nowFunc().UTC()
	return repo.db.goal.update(topic.KindGoal, id, expectedVersion,
		func(g topic.Goal) int { return g.Version },
		func(g *topic.Goal) {
			patch.Apply(g)
			g.Version++
			g.UpdatedAt = now
		},
	)
}

func (repo *goalRepository) Delete(_ context.Context, id string) error {
	return repo.db.goal.delete(topic.KindGoal, id, func() bool {
		return repo.db.task.refers(func(t topic.Task) bool { return t.GoalID == id })
	})
}

func (repo *goalRepository) QueryGoals(_ context.Context, topicID string, includeArchived bool) ([]topic.Goal, error) {
	goals := repo.db.goal.query(func(g topic.Goal) bool {
		return g.TopicID == topicID && (includeArchived || g.Status != topic.StatusArchived)
	})
	sort.SliceStable(goals, func(i, j int) bool { return goals[i].OrderIndex < goals[j].OrderIndex })
	return goals, nil
}
