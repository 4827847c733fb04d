package record

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core/week"
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		// CreateRecord assigns the record id.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		// QueryRecords returns the matching records, newest first.
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		CountTaskRecords(ctx context.Context, taskID string) (int, error)
	}

	// TaskLocator resolves the topic of a task. It fails with versioned.ErrNotFound for unknown tasks.
	TaskLocator interface {
		TopicOfTask(ctx context.Context, taskID string) (string, error)
	}

	Service struct {
		repo     Repository
		tasks    TaskLocator
		calendar week.Calendar
	}
)

func NewService(repo Repository, tasks TaskLocator, calendar week.Calendar) *Service {
	return &Service{repo: repo, tasks: tasks, calendar: calendar}
}

// Create records what authorID learned on a task.
func (svc *Service) Create(ctx context.Context, taskID string, nr NewRecord, authorID string) (Record, error) {
	topicID, err := svc.tasks.TopicOfTask(ctx, taskID)
	if err != nil {
		return Record{}, err
	}
	now := nowFunc().UTC()
	tags := nr.Tags
	if tags == nil {
		tags = []string{}
	}
	rec := Record{
		TaskID:            taskID,
		TopicID:           topicID,
		AuthorID:          authorID,
		Title:             nr.Title,
		Message:           nr.Message,
		Difficulty:        nr.Difficulty,
		CompletionMinutes: nr.CompletionMinutes,
		Tags:              tags,
		Week:              svc.calendar.IDFor(now),
		CreatedAt:         now,
	}
	rec, err = svc.repo.CreateRecord(ctx, rec)
	return rec, errors.Wrap(err, "creating record")
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	recs, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs, nil
}

// HasRecord reports whether at least one learning record exists for the task.
func (svc *Service) HasRecord(ctx context.Context, taskID string) (bool, error) {
	n, err := svc.repo.CountTaskRecords(ctx, taskID)
	if err != nil {
		return false, errors.Wrap(err, "counting task records")
	}
	return n > 0, nil
}
