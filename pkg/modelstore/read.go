package modelstore

import (
	"database/sql"
	"errors"

	"github.com/koba/modelstore/pkg/schema"
)

// ReadByKey reads the single instance with the given primary-key value.
// Only available when the table's primary key is the single column "id";
// anything else is rejected as misuse before submission. The completion
// receives a nil record when no row matches.
func (db *DB) ReadByKey(desc *schema.Descriptor, id any, complete func(*Record, error)) {
	if !desc.HasSingleIDKey() {
		if complete != nil {
			complete(nil, newError(KindMisuse, "read", desc.Table,
				errors.New(`keyed read requires a single-column primary key named "id"`)))
		}
		return
	}
	if id == nil {
		if complete != nil {
			complete(nil, newError(KindMisuse, "read", desc.Table,
				errors.New("keyed read requires a non-nil id")))
		}
		return
	}

	ok := db.exec.submit(func() {
		rec, err := db.readByKey(desc, id)
		if complete != nil {
			complete(rec, err)
		}
	})
	if !ok && complete != nil {
		complete(nil, closedErr("read", desc.Table))
	}
}

// ReadByKeySync is the blocking form of ReadByKey.
//
// Deadlock hazard: must not be called from a completion callback; see
// ResolveSync.
func (db *DB) ReadByKeySync(desc *schema.Descriptor, id any) (*Record, error) {
	type result struct {
		rec *Record
		err error
	}
	done := make(chan result, 1)
	db.ReadByKey(desc, id, func(rec *Record, err error) {
		done <- result{rec, err}
	})
	r := <-done
	return r.rec, r.err
}

// ReadWhere reads the instances matching a raw SQL fragment — the text
// after WHERE — with positional arguments for its placeholders. The
// caller owns fragment correctness; malformed SQL surfaces as a query
// error. No matches is an empty slice, not an error.
func (db *DB) ReadWhere(desc *schema.Descriptor, where string, args []any, complete func([]*Record, error)) {
	if where == "" {
		if complete != nil {
			complete(nil, newError(KindMisuse, "read", desc.Table,
				errors.New("empty predicate fragment")))
		}
		return
	}

	ok := db.exec.submit(func() {
		recs, err := db.readWhere(desc, where, args)
		if complete != nil {
			complete(recs, err)
		}
	})
	if !ok && complete != nil {
		complete(nil, closedErr("read", desc.Table))
	}
}

// ReadWhereSync is the blocking form of ReadWhere.
//
// Deadlock hazard: must not be called from a completion callback; see
// ResolveSync.
func (db *DB) ReadWhereSync(desc *schema.Descriptor, where string, args []any) ([]*Record, error) {
	type result struct {
		recs []*Record
		err  error
	}
	done := make(chan result, 1)
	db.ReadWhere(desc, where, args, func(recs []*Record, err error) {
		done <- result{recs, err}
	})
	r := <-done
	return r.recs, r.err
}

func (db *DB) readByKey(desc *schema.Descriptor, id any) (*Record, error) {
	if err := db.ensureResolved(desc); err != nil {
		return nil, err
	}

	scanned := make([]any, len(desc.Columns))
	ptrs := make([]any, len(desc.Columns))
	for i := range scanned {
		ptrs[i] = &scanned[i]
	}

	err := db.sqldb.QueryRow(db.dialect.SelectByKeySQL(desc), id).Scan(ptrs...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, newError(KindQuery, "read", desc.Table, err)
	}
	return decodeRow(desc, scanned), nil
}

func (db *DB) readWhere(desc *schema.Descriptor, where string, args []any) ([]*Record, error) {
	if err := db.ensureResolved(desc); err != nil {
		return nil, err
	}

	rows, err := db.sqldb.Query(db.dialect.SelectWhereSQL(desc, where), args...)
	if err != nil {
		return nil, newError(KindQuery, "read", desc.Table, err)
	}
	defer rows.Close()

	records := make([]*Record, 0)
	for rows.Next() {
		scanned := make([]any, len(desc.Columns))
		ptrs := make([]any, len(desc.Columns))
		for i := range scanned {
			ptrs[i] = &scanned[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, newError(KindQuery, "read", desc.Table, err)
		}
		records = append(records, decodeRow(desc, scanned))
	}
	if err := rows.Err(); err != nil {
		return nil, newError(KindQuery, "read", desc.Table, err)
	}
	return records, nil
}
