package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/topic"
)

type topicRepository struct {
	db *DB
}

var _ topic.TopicRepository = (*topicRepository)(nil) // interface compliance check

func NewTopicRepository(db *DB) topic.TopicRepository {
	return &topicRepository{db: db}
}

func (repo *topicRepository) Create(_ context.Context, t topic.Topic) (topic.Topic, error) {
	now := nowFunc().UTC()
	t.ID = uuid.New().String()
	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now

	repo.db.topic.Lock()
	defer repo.db.topic.Unlock()
	repo.db.topic.insert(t.ID, t)
	return t, nil
}

func (repo *topicRepository) Read(_ context.Context, id string) (topic.Topic, error) {
	return repo.db.topic.get(topic.KindTopic, id)
}

func (repo *topicRepository) Update(_ context.Context, id string, expectedVersion int, patch topic.TopicPatch) (topic.Topic, error) {
	now := nowFunc().UTC()
	return repo.db.topic.update(topic.KindTopic, id, expectedVersion,
		func(t topic.Topic) int { return t.Version },
		func(t *topic.Topic) {
			patch.Apply(t)
			t.Version++
			t.UpdatedAt = now
		},
	)
}

func (repo *topicRepository) Delete(_ context.Context, id string) error {
	return repo.db.topic.delete(topic.KindTopic, id, func() bool {
		return repo.db.goal.refers(func(g topic.Goal) bool { return g.TopicID == id })
	})
}

func (repo *topicRepository) QueryTopics(_ context.Context, filter topic.TopicFilter) ([]topic.Topic, error) {
	topics := repo.db.topic.query(func(t topic.Topic) bool {
		if filter.OwnerID != "" && t.OwnerID != filter.OwnerID {
			return false
		}
		return filter.Status == nil || t.Status == *filter.Status
	})
	sortTopics(topics, core.CleanOrderings(filter.Orderings, topic.TopicOrderingFields))
	return topics, nil
}

// sortTopics applies the orderings on top of insertion order.
func sortTopics(topics []topic.Topic, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		return
	}
	sort.SliceStable(topics, func(i, j int) bool {
		for _, ord := range orderings {
			c := compareTopics(topics[i], topics[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func compareTopics(a, b topic.Topic, field string) int {
	switch field {
	case "title":
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case "subject":
		return strings.Compare(strings.ToLower(a.Subject), strings.ToLower(b.Subject))
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}
