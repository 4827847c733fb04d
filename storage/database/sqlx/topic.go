package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core"
	"github.com/trezcool/studywall/core/topic"
)

var topicTable = table{
	kind:    topic.KindTopic,
	name:    "topics",
	columns: "id, title, subject, is_collaborative, status, owner_id, version, created_at, updated_at",
}

type topicRow struct {
	ID              string    `db:"id"`
	Title           string    `db:"title"`
	Subject         string    `db:"subject"`
	IsCollaborative bool      `db:"is_collaborative"`
	Status          string    `db:"status"`
	OwnerID         string    `db:"owner_id"`
	Version         int       `db:"version"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type topicRepository struct {
	db *sqlx.DB
}

var _ topic.TopicRepository = (*topicRepository)(nil) // interface compliance check

func NewTopicRepository(db *sqlx.DB) topic.TopicRepository {
	return &topicRepository{db: db}
}

func (repo topicRepository) boil(t topic.Topic) topicRow {
	return topicRow{
		ID:              t.ID,
		Title:           t.Title,
		Subject:         t.Subject,
		IsCollaborative: t.IsCollaborative,
		Status:          string(t.Status),
		OwnerID:         t.OwnerID,
		Version:         t.Version,
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
}

func (repo topicRepository) unboil(r topicRow) topic.Topic {
	return topic.Topic{
		ID:              r.ID,
		Title:           r.Title,
		Subject:         r.Subject,
		IsCollaborative: r.IsCollaborative,
		Status:          topic.Status(r.Status),
		OwnerID:         r.OwnerID,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func (repo topicRepository) Create(ctx context.Context, t topic.Topic) (topic.Topic, error) {
	now := nowFunc().UTC()
	t.ID = newID()
	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now

	q := `INSERT INTO topics (id, title, subject, is_collaborative, status, owner_id, version, created_at, updated_at)
		VALUES (:id, :title, :subject, :is_collaborative, :status, :owner_id, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(t)); err != nil {
		return topic.Topic{}, errors.Wrap(err, "inserting topic")
	}
	return t, nil
}

func (repo topicRepository) Read(ctx context.Context, id string) (topic.Topic, error) {
	var r topicRow
	if err := topicTable.read(ctx, repo.db, &r, id); err != nil {
		return topic.Topic{}, err
	}
	return repo.unboil(r), nil
}

func (repo topicRepository) Update(ctx context.Context, id string, expectedVersion int, patch topic.TopicPatch) (topic.Topic, error) {
	var cs changeSet
	setIf(&cs, "title", patch.Title)
	setIf(&cs, "subject", patch.Subject)
	setIf(&cs, "is_collaborative", patch.IsCollaborative)
	if patch.Status != nil {
		cs.set("status", string(*patch.Status))
	}

	var r topicRow
	if err := topicTable.update(ctx, repo.db, &r, id, expectedVersion, cs); err != nil {
		return topic.Topic{}, err
	}
	return repo.unboil(r), nil
}

func (repo topicRepository) Delete(ctx context.Context, id string) error {
	return topicTable.delete(ctx, repo.db, id)
}

func (repo topicRepository) QueryTopics(ctx context.Context, filter topic.TopicFilter) ([]topic.Topic, error) {
	q := "SELECT " + topicTable.columns + " FROM topics WHERE 1 = 1"
	var args []interface{}
	if filter.OwnerID != "" {
		q += " AND owner_id = ?"
		args = append(args, filter.OwnerID)
	}
	if filter.Status != nil {
		q += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	orderings := core.CleanOrderings(filter.Orderings, topic.TopicOrderingFields)
	q += " ORDER BY " + core.OrderBy(orderings, "id ASC")

	var rows []topicRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying topics")
	}
	topics := make([]topic.Topic, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, repo.unboil(r))
	}
	return topics, nil
}
