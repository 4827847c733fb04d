package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studywall/core/topic"
)

var taskTable = table{
	kind: topic.KindTask,
	name: "tasks",
	columns: "id, goal_id, title, description, status, priority, order_index, archived, need_help, " +
		"help_message, reply_message, replied_by, completed_by, completed_at, estimated_minutes, actual_minutes, " +
		"creator_id, version, created_at, updated_at",
}

type taskRow struct {
	ID               string      `db:"id"`
	GoalID           string      `db:"goal_id"`
	Title            string      `db:"title"`
	Description      string      `db:"description"`
	Status           string      `db:"status"`
	Priority         string      `db:"priority"`
	OrderIndex       int         `db:"order_index"`
	Archived         bool        `db:"archived"`
	NeedHelp         bool        `db:"need_help"`
	HelpMessage      null.String `db:"help_message"`
	ReplyMessage     null.String `db:"reply_message"`
	RepliedBy        null.String `db:"replied_by"`
	CompletedBy      null.String `db:"completed_by"`
	CompletedAt      null.Time   `db:"completed_at"`
	EstimatedMinutes null.Int    `db:"estimated_minutes"`
	ActualMinutes    null.Int    `db:"actual_minutes"`
	CreatorID        string      `db:"creator_id"`
	Version          int         `db:"version"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

type activeTaskRow struct {
	TaskID       string    `db:"task_id"`
	Title        string    `db:"title"`
	Status       string    `db:"status"`
	Priority     string    `db:"priority"`
	Version      int       `db:"version"`
	NeedHelp     bool      `db:"need_help"`
	GoalID       string    `db:"goal_id"`
	GoalTitle    string    `db:"goal_title"`
	TopicID      string    `db:"topic_id"`
	TopicTitle   string    `db:"topic_title"`
	TopicSubject string    `db:"topic_subject"`
	CreatedAt    time.Time `db:"created_at"`
}

type taskRepository struct {
	db *sqlx.DB
}

var _ topic.TaskRepository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) topic.TaskRepository {
	return &taskRepository{db: db}
}

func nullString(s string) null.String { return null.NewString(s, s != "") }

func nullIntPtr(i *int) null.Int {
	if i == nil {
		return null.Int{}
	}
	return null.IntFrom(*i)
}

func intPtrFrom(i null.Int) *int {
	if !i.Valid {
		return nil
	}
	v := i.Int
	return &v
}

func (repo taskRepository) boil(t topic.Task) taskRow {
	r := taskRow{
		ID:               t.ID,
		GoalID:           t.GoalID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		Priority:         string(t.Priority),
		OrderIndex:       t.OrderIndex,
		Archived:         t.Archived,
		NeedHelp:         t.NeedHelp,
		HelpMessage:      nullString(t.HelpMessage),
		ReplyMessage:     nullString(t.ReplyMessage),
		RepliedBy:        nullString(t.RepliedBy),
		CompletedBy:      nullString(t.CompletedBy),
		EstimatedMinutes: nullIntPtr(t.EstimatedMinutes),
		ActualMinutes:    nullIntPtr(t.ActualMinutes),
		CreatorID:        t.CreatorID,
		Version:          t.Version,
		CreatedAt:        t.CreatedAt.UTC(),
		UpdatedAt:        t.UpdatedAt.UTC(),
	}
	if t.CompletedAt != nil {
		r.CompletedAt = null.TimeFrom(t.CompletedAt.UTC())
	}
	return r
}

func (repo taskRepository) unboil(r taskRow) topic.Task {
	t := topic.Task{
		ID:               r.ID,
		GoalID:           r.GoalID,
		Title:            r.Title,
		Description:      r.Description,
		Status:           topic.TaskStatus(r.Status),
		Priority:         topic.Priority(r.Priority),
		OrderIndex:       r.OrderIndex,
		Archived:         r.Archived,
		NeedHelp:         r.NeedHelp,
		HelpMessage:      r.HelpMessage.String,
		ReplyMessage:     r.ReplyMessage.String,
		RepliedBy:        r.RepliedBy.String,
		CompletedBy:      r.CompletedBy.String,
		EstimatedMinutes: intPtrFrom(r.EstimatedMinutes),
		ActualMinutes:    intPtrFrom(r.ActualMinutes),
		CreatorID:        r.CreatorID,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if r.CompletedAt.Valid {
		at := r.CompletedAt.Time.UTC()
		t.CompletedAt = &at
	}
	return t
}

func (repo taskRepository) Create(ctx context.Context, t topic.Task) (topic.Task, error) {
	now := nowFunc().UTC()
	t.ID = newID()
	t.Version = 1
	t.CreatedAt, t.UpdatedAt = now, now

	q := `INSERT INTO tasks (id, goal_id, title, description, status, priority, order_index, archived, need_help,
			help_message, reply_message, replied_by, completed_by, completed_at, estimated_minutes, actual_minutes,
			creator_id, version, created_at, updated_at)
		VALUES (:id, :goal_id, :title, :description, :status, :priority, :order_index, :archived, :need_help,
			:help_message, :reply_message, :replied_by, :completed_by, :completed_at, :estimated_minutes, :actual_minutes,
			:creator_id, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.boil(t)); err != nil {
		return topic.Task{}, trapConstraintErr(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) Read(ctx context.Context, id string) (topic.Task, error) {
	var r taskRow
	if err := taskTable.read(ctx, repo.db, &r, id); err != nil {
		return topic.Task{}, err
	}
	return repo.unboil(r), nil
}

func (repo taskRepository) Update(ctx context.Context, id string, expectedVersion int, patch topic.TaskPatch) (topic.Task, error) {
	if err := patch.CheckCompletion(); err != nil {
		return topic.Task{}, err
	}

	var cs changeSet
	setIf(&cs, "title", patch.Title)
	setIf(&cs, "description", patch.Description)
	if patch.Priority != nil {
		cs.set("priority", string(*patch.Priority))
	}
	setIf(&cs, "order_index", patch.OrderIndex)
	setIf(&cs, "archived", patch.Archived)
	setIf(&cs, "need_help", patch.NeedHelp)
	if patch.HelpMessage != nil {
		cs.set("help_message", nullString(*patch.HelpMessage))
	}
	if patch.ReplyMessage != nil {
		cs.set("reply_message", nullString(*patch.ReplyMessage))
	}
	if patch.RepliedBy != nil {
		cs.set("replied_by", nullString(*patch.RepliedBy))
	}
	if patch.EstimatedMinutes != nil {
		cs.set("estimated_minutes", *patch.EstimatedMinutes)
	}
	if patch.ActualMinutes != nil {
		cs.set("actual_minutes", *patch.ActualMinutes)
	}
	if patch.Status != nil {
		cs.set("status", string(*patch.Status))
		if *patch.Status == topic.TaskDone {
			cs.set("completed_by", *patch.CompletedBy)
			cs.set("completed_at", patch.CompletedAt.UTC())
		} else {
			cs.set("completed_by", null.String{})
			cs.set("completed_at", null.Time{})
		}
	}

	var r taskRow
	if err := taskTable.update(ctx, repo.db, &r, id, expectedVersion, cs); err != nil {
		return topic.Task{}, err
	}
	return repo.unboil(r), nil
}

func (repo taskRepository) Delete(ctx context.Context, id string) error {
	return taskTable.delete(ctx, repo.db, id)
}

func (repo taskRepository) QueryTasks(ctx context.Context, goalID string, includeArchived bool) ([]topic.Task, error) {
	q := taskTable.selectQuery("goal_id = ?")
	args := []interface{}{goalID}
	if !includeArchived {
		q += " AND archived = ?"
		args = append(args, false)
	}
	q += " ORDER BY order_index ASC, id ASC"

	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	tasks := make([]topic.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, repo.unboil(r))
	}
	return tasks, nil
}

func (repo taskRepository) QueryActiveTasks(ctx context.Context, ownerID string) ([]topic.ActiveTask, error) {
	q := `SELECT t.id AS task_id, t.title, t.status, t.priority, t.version, t.need_help,
			g.id AS goal_id, g.title AS goal_title,
			p.id AS topic_id, p.title AS topic_title, p.subject AS topic_subject,
			t.created_at
		FROM tasks t
		JOIN goals g ON g.id = t.goal_id
		JOIN topics p ON p.id = g.topic_id
		WHERE p.owner_id = ? AND p.status = ? AND g.status = ?
			AND t.archived = ? AND t.status IN (?, ?)
		ORDER BY t.id ASC`
	args := []interface{}{
		ownerID, string(topic.StatusActive), string(topic.StatusActive),
		false, string(topic.TaskTodo), string(topic.TaskInProgress),
	}

	var rows []activeTaskRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying active tasks")
	}
	tasks := make([]topic.ActiveTask, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, topic.ActiveTask{
			TaskID:       r.TaskID,
			Title:        r.Title,
			Status:       topic.TaskStatus(r.Status),
			Priority:     topic.Priority(r.Priority),
			Version:      r.Version,
			NeedHelp:     r.NeedHelp,
			GoalID:       r.GoalID,
			GoalTitle:    r.GoalTitle,
			TopicID:      r.TopicID,
			TopicTitle:   r.TopicTitle,
			TopicSubject: r.TopicSubject,
			CreatedAt:    r.CreatedAt.UTC(),
		})
	}
	return tasks, nil
}
