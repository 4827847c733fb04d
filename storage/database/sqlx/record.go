package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studywall/core/record"
)

const recordColumns = "id, task_id, topic_id, author_id, title, message, difficulty, completion_minutes, tags, week, created_at"

type recordRow struct {
	ID                string         `db:"id"`
	TaskID            string         `db:"task_id"`
	TopicID           string         `db:"topic_id"`
	AuthorID          string         `db:"author_id"`
	Title             string         `db:"title"`
	Message           string         `db:"message"`
	Difficulty        string         `db:"difficulty"`
	CompletionMinutes null.Int       `db:"completion_minutes"`
	Tags              types.JSONText `db:"tags"`
	Week              string         `db:"week"`
	CreatedAt         time.Time      `db:"created_at"`
}

type recordRepository struct {
	db *sqlx.DB
}

var _ record.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *sqlx.DB) record.Repository {
	return &recordRepository{db: db}
}

func (repo recordRepository) boil(rec record.Record) (recordRow, error) {
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return recordRow{}, errors.Wrap(err, "encoding record tags")
	}
	return recordRow{
		ID:                rec.ID,
		TaskID:            rec.TaskID,
		TopicID:           rec.TopicID,
		AuthorID:          rec.AuthorID,
		Title:             rec.Title,
		Message:           rec.Message,
		Difficulty:        string(rec.Difficulty),
		CompletionMinutes: nullIntPtr(rec.CompletionMinutes),
		Tags:              types.JSONText(raw),
		Week:              rec.Week,
		CreatedAt:         rec.CreatedAt.UTC(),
	}, nil
}

func (repo recordRepository) unboil(r recordRow) (record.Record, error) {
	tags := []string{}
	if len(r.Tags) > 0 {
		if err := r.Tags.Unmarshal(&tags); err != nil {
			return record.Record{}, errors.Wrapf(err, "decoding tags of record %s", r.ID)
		}
	}
	return record.Record{
		ID:                r.ID,
		TaskID:            r.TaskID,
		TopicID:           r.TopicID,
		AuthorID:          r.AuthorID,
		Title:             r.Title,
		Message:           r.Message,
		Difficulty:        record.Difficulty(r.Difficulty),
		CompletionMinutes: intPtrFrom(r.CompletionMinutes),
		Tags:              tags,
		Week:              r.Week,
		CreatedAt:         r.CreatedAt.UTC(),
	}, nil
}

func (repo recordRepository) CreateRecord(ctx context.Context, rec record.Record) (record.Record, error) {
	rec.ID = newID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = nowFunc().UTC()
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	row, err := repo.boil(rec)
	if err != nil {
		return record.Record{}, err
	}

	q := `INSERT INTO task_records (id, task_id, topic_id, author_id, title, message, difficulty,
			completion_minutes, tags, week, created_at)
		VALUES (:id, :task_id, :topic_id, :author_id, :title, :message, :difficulty,
			:completion_minutes, :tags, :week, :created_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return record.Record{}, errors.Wrap(err, "inserting record")
	}
	return rec, nil
}

func (repo recordRepository) QueryRecords(ctx context.Context, filter record.QueryFilter) ([]record.Record, error) {
	q := "SELECT " + recordColumns + " FROM task_records WHERE 1 = 1"
	var args []interface{}
	for _, f := range []struct{ col, val string }{
		{"task_id", filter.TaskID},
		{"topic_id", filter.TopicID},
		{"author_id", filter.AuthorID},
		{"week", filter.Week},
	} {
		if f.val != "" {
			q += " AND " + f.col + " = ?"
			args = append(args, f.val)
		}
	}
	q += " ORDER BY created_at DESC, id DESC"

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	recs := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		rec, err := repo.unboil(r)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (repo recordRepository) CountTaskRecords(ctx context.Context, taskID string) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, repo.db.Rebind("SELECT COUNT(*) FROM task_records WHERE task_id = ?"), taskID)
	if err != nil {
		return 0, errors.Wrap(err, "counting records")
	}
	return n, nil
}
