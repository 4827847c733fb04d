package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/studywall/core/versioned"
)

var nowFunc = time.Now // mockable

// newID returns a time-ordered id, so ordering by id follows insertion order.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// trapNoRowsErr maps sql "no rows" errors to versioned.ErrNotFound.
func trapNoRowsErr(err error, kind, id, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return versioned.NotFound(kind, id)
	}
	return errors.Wrap(err, msg)
}

const pqForeignKeyViolation = "23503"

// trapConstraintErr maps foreign key violations of both drivers to versioned.ErrIntegrity.
func trapConstraintErr(err error, msg string) error {
	var (
		pqErr     *pq.Error
		sqliteErr *sqlite.Error
	)
	switch {
	case errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation,
		errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return errors.Wrapf(versioned.ErrIntegrity, "%s: %v", msg, err)
	}
	return errors.Wrap(err, msg)
}

// changeSet accumulates the SET clause of a patch.
type changeSet struct {
	cols []string
	args []interface{}
}

func (cs *changeSet) set(col string, val interface{}) {
	cs.cols = append(cs.cols, col+" = ?")
	cs.args = append(cs.args, val)
}

func setIf[T any](cs *changeSet, col string, val *T) {
	if val != nil {
		cs.set(col, *val)
	}
}

// table describes a versioned table.
type table struct {
	kind    string
	name    string
	columns string // selected columns, matching the row struct
}

func (t table) selectQuery(where string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", t.columns, t.name, where)
}

func (t table) read(ctx context.Context, db *sqlx.DB, dest interface{}, id string) error {
	err := db.GetContext(ctx, dest, db.Rebind(t.selectQuery("id = ?")), id)
	if err != nil {
		return trapNoRowsErr(err, t.kind, id, "reading "+t.kind)
	}
	return nil
}

// update is the single conditional write behind versioned updates:
// the row only changes if its version still equals expected. The new row is read back in the same
// transaction and scanned into dest. When no row matched, the current version tells NotFound apart from a conflict.
func (t table) update(ctx context.Context, db *sqlx.DB, dest interface{}, id string, expected int, cs changeSet) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "updating %s", t.kind)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sets := append(cs.cols, "version = version + 1", "updated_at = ?")
	args := append(cs.args, nowFunc().UTC(), id, expected)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND version = ?", t.name, strings.Join(sets, ", "))

	res, err := tx.ExecContext(ctx, tx.Rebind(q), args...)
	if err != nil {
		return errors.Wrapf(err, "updating %s", t.kind)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "updating %s", t.kind)
	}

	if n == 0 {
		var current int
		err = tx.GetContext(ctx, &current, tx.Rebind(fmt.Sprintf("SELECT version FROM %s WHERE id = ?", t.name)), id)
		if err != nil {
			return trapNoRowsErr(err, t.kind, id, "reading "+t.kind+" version")
		}
		err = versioned.NewConflictError(t.kind, id, expected, current)
		return err
	}

	if err = tx.GetContext(ctx, dest, tx.Rebind(t.selectQuery("id = ?")), id); err != nil {
		return errors.Wrapf(err, "reading updated %s", t.kind)
	}
	return errors.Wrapf(tx.Commit(), "committing %s update", t.kind)
}

func (t table) delete(ctx context.Context, db *sqlx.DB, id string) error {
	res, err := db.ExecContext(ctx, db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name)), id)
	if err != nil {
		return trapConstraintErr(err, "deleting "+t.kind+" "+id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "deleting %s", t.kind)
	}
	if n == 0 {
		return versioned.NotFound(t.kind, id)
	}
	return nil
}
