package modelstore

import (
	"github.com/koba/modelstore/pkg/schema"
)

// TableState is the introspected shape of a live table, independent of
// any descriptor.
type TableState struct {
	Name       string          `json:"name"`
	Columns    []schema.Column `json:"columns"`
	PrimaryKey []string        `json:"primary_key"`
	Indexes    []string        `json:"indexes,omitempty"`
}

// Inspect introspects a live table. The completion receives nil when the
// table does not exist.
func (db *DB) Inspect(table string, complete func(*TableState, error)) {
	ok := db.exec.submit(func() {
		state, err := db.inspect(table)
		if complete != nil {
			complete(state, err)
		}
	})
	if !ok && complete != nil {
		complete(nil, closedErr("inspect", table))
	}
}

func (db *DB) inspect(table string) (*TableState, error) {
	info, err := db.dialect.TableInfo(db.sqldb, table)
	if err != nil {
		return nil, newError(KindConnection, "inspect", table, err)
	}
	if info == nil {
		return nil, nil
	}
	return &TableState{
		Name:       info.Name,
		Columns:    info.Columns,
		PrimaryKey: info.PrimaryKey,
		Indexes:    info.IndexNames,
	}, nil
}

// InspectSync is the blocking form of Inspect.
//
// Must not be called from a completion callback; see the deadlock
// contract on ResolveSync.
func (db *DB) InspectSync(table string) (*TableState, error) {
	type result struct {
		state *TableState
		err   error
	}
	done := make(chan result, 1)
	db.Inspect(table, func(state *TableState, err error) {
		done <- result{state, err}
	})
	r := <-done
	return r.state, r.err
}
