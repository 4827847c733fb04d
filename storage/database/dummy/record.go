package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/studywall/core/record"
)

type recordRepository struct {
	db *table[record.Record]
}

var _ record.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *DB) record.Repository {
	return &recordRepository{db: db.record}
}

func cloneRecord(rec record.Record) record.Record {
	rec.Tags = append([]string{}, rec.Tags...)
	if rec.CompletionMinutes != nil {
		m := *rec.CompletionMinutes
		rec.CompletionMinutes = &m
	}
	return rec
}

func (repo *recordRepository) CreateRecord(_ context.Context, rec record.Record) (record.Record, error) {
	rec = cloneRecord(rec)
	rec.ID = uuid.New().String()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = nowFunc().UTC()
	}

	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.insert(rec.ID, rec)
	return cloneRecord(rec), nil
}

func (repo *recordRepository) QueryRecords(_ context.Context, filter record.QueryFilter) ([]record.Record, error) {
	recs := repo.db.query(func(rec record.Record) bool {
		return (filter.TaskID == "" || rec.TaskID == filter.TaskID) &&
			(filter.TopicID == "" || rec.TopicID == filter.TopicID) &&
			(filter.AuthorID == "" || rec.AuthorID == filter.AuthorID) &&
			(filter.Week == "" || rec.Week == filter.Week)
	})
	// newest first
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	for i := range recs {
		recs[i] = cloneRecord(recs[i])
	}
	return recs, nil
}

func (repo *recordRepository) CountTaskRecords(_ context.Context, taskID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	var n int
	for _, r := range repo.db.rows {
		if r.val.TaskID == taskID {
			n++
		}
	}
	return n, nil
}
