package modelstore

import (
	"log/slog"
)

// Write upserts the record's full column set keyed by its primary key —
// insert-or-replace semantics. On commit, a change event naming the
// affected key is published to the handle's sink.
func (db *DB) Write(rec *Record, complete func(error)) {
	keys, err := rec.primaryKeyValues()
	if err != nil {
		if complete != nil {
			complete(newError(KindMisuse, "write", rec.desc.Table, err))
		}
		return
	}

	ok := db.exec.submit(func() {
		err := db.write(rec, keys)
		if complete != nil {
			complete(err)
		}
	})
	if !ok && complete != nil {
		complete(closedErr("write", rec.desc.Table))
	}
}

// WriteSync is the blocking form of Write.
//
// Deadlock hazard: must not be called from a completion callback; see
// ResolveSync.
func (db *DB) WriteSync(rec *Record) error {
	done := make(chan error, 1)
	db.Write(rec, func(err error) { done <- err })
	return <-done
}

// Delete removes the row matching the record's primary-key value.
// Deleting an absent row succeeds as a no-op. On commit, a change event
// naming the key is published.
func (db *DB) Delete(rec *Record, complete func(error)) {
	keys, err := rec.primaryKeyValues()
	if err != nil {
		if complete != nil {
			complete(newError(KindMisuse, "delete", rec.desc.Table, err))
		}
		return
	}

	ok := db.exec.submit(func() {
		err := db.delete(rec, keys)
		if complete != nil {
			complete(err)
		}
	})
	if !ok && complete != nil {
		complete(closedErr("delete", rec.desc.Table))
	}
}

// DeleteSync is the blocking form of Delete.
//
// Deadlock hazard: must not be called from a completion callback; see
// ResolveSync.
func (db *DB) DeleteSync(rec *Record) error {
	done := make(chan error, 1)
	db.Delete(rec, func(err error) { done <- err })
	return <-done
}

func (db *DB) write(rec *Record, keys []any) error {
	if err := db.ensureResolved(rec.desc); err != nil {
		return err
	}

	tx, err := db.sqldb.Begin()
	if err != nil {
		return newError(KindConnection, "write", rec.desc.Table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(db.dialect.UpsertSQL(rec.desc), rec.orderedValues()...); err != nil {
		return newError(KindQuery, "write", rec.desc.Table, err)
	}
	if err := tx.Commit(); err != nil {
		return newError(KindConnection, "write", rec.desc.Table, err)
	}

	// Publish strictly after commit, never on rollback.
	db.publish(rec.desc.Table, keys)
	return nil
}

func (db *DB) delete(rec *Record, keys []any) error {
	if err := db.ensureResolved(rec.desc); err != nil {
		return err
	}

	tx, err := db.sqldb.Begin()
	if err != nil {
		return newError(KindConnection, "delete", rec.desc.Table, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(db.dialect.DeleteSQL(rec.desc), keys...); err != nil {
		return newError(KindQuery, "delete", rec.desc.Table, err)
	}
	if err := tx.Commit(); err != nil {
		return newError(KindConnection, "delete", rec.desc.Table, err)
	}

	db.publish(rec.desc.Table, keys)
	return nil
}

func (db *DB) publish(table string, keys []any) {
	change := Change{Table: table, Keys: []any{changeKey(keys)}}
	db.log.Debug("change committed",
		slog.String("table", table), slog.Int("keys", len(change.Keys)))
	db.sink.Publish(change)
}
