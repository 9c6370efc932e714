package modelstore

import (
	"github.com/koba/modelstore/internal/archive"
)

// Archive dumps live tables into a standalone SQLite file at path. An
// empty tables list archives every table on the connection; a limit above
// zero caps the rows stored per table. Runs through the executor, so the
// archive sees no in-flight writes.
func (db *DB) Archive(path string, tables []string, limit int, complete func(error)) {
	ok := db.exec.submit(func() {
		err := archive.Create(db.sqldb, db.dialect, tables, path, limit)
		if err != nil {
			err = newError(KindQuery, "archive", "", err)
		}
		if complete != nil {
			complete(err)
		}
	})
	if !ok && complete != nil {
		complete(closedErr("archive", ""))
	}
}

// ArchiveSync is the blocking form of Archive.
//
// Must not be called from a completion callback; see the deadlock
// contract on ResolveSync.
func (db *DB) ArchiveSync(path string, tables []string, limit int) error {
	done := make(chan error, 1)
	db.Archive(path, tables, limit, func(err error) { done <- err })
	return <-done
}
