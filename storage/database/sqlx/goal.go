package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studywall/core/topic"
)

var goalTable = table{
	kind: topic.KindGoal,
	name: "goals",
	columns: "id, topic_id, title, description, status, priority, order_index, need_help, " +
		"help_message, reply_message, creator_id, version, created_at, updated_at",
}

type goalRow struct {
	ID           string      `db:"id"`
	TopicID      string      `db:"topic_id"`
	Title        string      `db:"title"`
	Description  string      `db:"description"`
	Status       string      `db:"status"`
	Priority     string      `db:"priority"`
	OrderIndex   int         `db:"order_index"`
	NeedHelp     bool        `db:"need_help"`
	HelpMessage  null.String `db:"help_message"`
	ReplyMessage null.String `db:"reply_message"`
	CreatorID    string      `db:"creator_id"`
	Version      int         `db:"version"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type goalRepository struct {
	db *sqlx.DB
}

var _ topic.GoalRepository = (*goalRepository)(nil) // interface compliance check

func NewGoalRepository(db *sqlx.DB) topic.GoalRepository {
	return &goalRepository{db: db}
}

func (repo goalRepository) boil(g topic.Goal) goalRow {
	return goalRow{
		ID:           g.ID,
		TopicID:      g.TopicID,
		Title:        g.Title,
		Description:  g.Description,
		Status:       string(g.Status),
		Priority:     string(g.Priority),
		OrderIndex:   g.OrderIndex,
		NeedHelp:     g.NeedHelp,
		HelpMessage:  nullString(g.HelpMessage),
		ReplyMessage: nullString(g.ReplyMessage),
		CreatorID:    g.CreatorID,
		Version:      g.Version,
		CreatedAt:    g.CreatedAt.UTC(),
		UpdatedAt:    g.UpdatedAt.UTC(),
	}
}

func (repo goalRepository) unboil(r goalRow) topic.Goal {
	return topic.Goal{
		ID:           r.ID,
		TopicID:      r.TopicID,
		Title:        r.Title,
		Description:  r.Description,
		Status:       topic.Status(r.Status),
		Priority:     topic.Priority(r.Priority),
		OrderIndex:   r.OrderIndex,
		NeedHelp:     r.NeedHelp,
		HelpMessage:  r.HelpMessage.String,
		ReplyMessage: r.ReplyMessage.String,
		CreatorID:    r.CreatorID,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (repo goalRepository) Create(ctx context.Context, g topic.Goal) (topic.Goal, error) {
	now := nowFunc().UTC()
	g.ID = newID()
	g.Version = 1
	g.CreatedAt, g.UpdatedAt = now, now

	q := `INSERT INTO goals (id, topic_id, title, description, status, priority, order_index, need_help,
			help_message, reply_message, creator_id, version, created_at, updated_at)
		VALUES (:id, :topic_id, :title, :description, :status, :priority, :order_index, :need_help,
			:help_message, :reply_message, :creator_id, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(g)); err != nil {
		return topic.Goal{}, trapConstraintErr(err, "inserting goal")
	}
	return g, nil
}

func (repo goalRepository) Read(ctx context.Context, id string) (topic.Goal, error) {
	var r goalRow
	if err := goalTable.read(ctx, repo.db, &r, id); err != nil {
		return topic.Goal{}, err
	}
	return repo.unboil(r), nil
}

func (repo goalRepository) Update(ctx context.Context, id string, expectedVersion int, patch topic.GoalPatch) (topic.Goal, error) {
	var cs changeSet
	setIf(&cs, "title", patch.Title)
	setIf(&cs, "description", patch.Description)
	if patch.Status != nil {
		cs.set("status", string(*patch.Status))
	}
	if patch.Priority != nil {
		cs.set("priority", string(*patch.Priority))
	}
	setIf(&cs, "order_index", patch.OrderIndex)
	setIf(&cs, "need_help", patch.NeedHelp)
	if patch.HelpMessage != nil {
		cs.set("help_message", nullString(*patch.HelpMessage))
	}
	if patch.ReplyMessage != nil {
		cs.set("reply_message", nullString(*patch.ReplyMessage))
	}

	var r goalRow
	if err := goalTable.update(ctx, repo.db, &r, id, expectedVersion, cs); err != nil {
		return topic.Goal{}, err
	}
	return repo.unboil(r), nil
}

func (repo goalRepository) Delete(ctx context.Context, id string) error {
	return goalTable.delete(ctx, repo.db, id)
}

func (repo goalRepository) QueryGoals(ctx context.Context, topicID string, includeArchived bool) ([]topic.Goal, error) {
	q := goalTable.selectQuery("topic_id = ?")
	args := []interface{}{topicID}
	if !includeArchived {
		q += " AND status <> ?"
		args = append(args, string(topic.StatusArchived))
	}
	q += " ORDER BY order_index ASC, id ASC"

	var rows []goalRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying goals")
	}
	goals := make([]topic.Goal, 0, len(rows))
	for _, r := range rows {
		goals = append(goals, repo.unboil(r))
	}
	return goals, nil
}
