package dummydb

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studywall/core/record"
	"github.com/trezcool/studywall/core/topic"
	"github.com/trezcool/studywall/core/versioned"
)

var nowFunc = time.Now // mockable

type (
	// DB is an in-memory database. Each table guards its rows with its own lock;
	// operations spanning tables lock them in topic, goal, task order.
	// Parents cannot be deleted while children reference them, as with the SQL foreign keys.
	DB struct {
		topic  *table[topic.Topic]
		goal   *table[topic.Goal]
		task   *table[topic.Task]
		record *table[record.Record]
	}

	table[E any] struct {
		sync.RWMutex
		seq  int64
		rows map[string]*row[E]
	}

	row[E any] struct {
		seq int64 // insertion order
		val E
	}
)

func Open() (*DB, error) {
	db := &DB{
		topic:  newTable[topic.Topic](),
		goal:   newTable[topic.Goal](),
		task:   newTable[topic.Task](),
		record: newTable[record.Record](),
	}
	return db, nil
}

func newTable[E any]() *table[E] {
	return &table[E]{rows: make(map[string]*row[E])}
}

// callers hold the lock
func (t *table[E]) insert(id string, val E) {
	t.seq++
	t.rows[id] = &row[E]{seq: t.seq, val: val}
}

func (t *table[E]) get(kind, id string) (E, error) {
	t.RLock()
	defer t.RUnlock()
	if r, ok := t.rows[id]; ok {
		return r.val, nil
	}
	var zero E
	return zero, versioned.NotFound(kind, id)
}

// update applies mutate to the row if its version (as read by version) still equals expected.
// The check and the write happen under the table's write lock.
func (t *table[E]) update(kind, id string, expected int, version func(E) int, mutate func(*E)) (E, error) {
	t.Lock()
	defer t.Unlock()

	var zero E
	r, ok := t.rows[id]
	if !ok {
		return zero, versioned.NotFound(kind, id)
	}
	if current := version(r.val); current != expected {
		return zero, versioned.NewConflictError(kind, id, expected, current)
	}
	val := r.val
	mutate(&val)
	r.val = val
	return val, nil
}

// delete removes a row. referenced, when set, runs under the write lock and blocks the delete
// while rows of a child table still point to id.
func (t *table[E]) delete(kind, id string, referenced func() bool) error {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.rows[id]; !ok {
		return versioned.NotFound(kind, id)
	}
	if referenced != nil && referenced() {
		return errors.Wrapf(versioned.ErrIntegrity, "%s %s is still referenced", kind, id)
	}
	delete(t.rows, id)
	return nil
}

// refers reports whether any row matches.
func (t *table[E]) refers(match func(E) bool) bool {
	t.RLock()
	defer t.RUnlock()
	for _, r := range t.rows {
		if match(r.val) {
			return true
		}
	}
	return false
}

// has reports whether id exists. Callers hold at least the read lock.
func (t *table[E]) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

func missingParent(kind, parentKind, parentID string) error {
	return errors.Wrapf(versioned.ErrIntegrity, "%s references unknown %s %s", kind, parentKind, parentID)
}

// selectRows returns the values kept by keep, in insertion order. Callers hold at least the read lock.
func (t *table[E]) selectRows(keep func(E) bool) []E {
	rows := make([]*row[E], 0, len(t.rows))
	for _, r := range t.rows {
		if keep == nil || keep(r.val) {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	vals := make([]E, len(rows))
	for i, r := range rows {
		vals[i] = r.val
	}
	return vals
}

func (t *table[E]) query(keep func(E) bool) []E {
	t.RLock()
	defer t.RUnlock()
	return t.selectRows(keep)
}
