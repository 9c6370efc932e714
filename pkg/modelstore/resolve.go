package modelstore

import (
	"errors"
	"log/slog"

	"github.com/koba/modelstore/internal/migrate"
	"github.com/koba/modelstore/pkg/schema"
)

// Resolve performs setup and any pending schema migration for a table.
// Optional: if never called, resolution happens when the table's first
// operation runs. The completion may be invoked on the handle's execution
// goroutine.
//
// Resolution is idempotent per handle: once a table has resolved, later
// calls return immediately with nil. A failed resolution leaves the table
// unresolved; the next operation re-attempts after the conflict is
// corrected.
func (db *DB) Resolve(desc *schema.Descriptor, complete func(error)) {
	ok := db.exec.submit(func() {
		err := db.ensureResolved(desc)
		if complete != nil {
			complete(err)
		}
	})
	if !ok && complete != nil {
		complete(closedErr("resolve", desc.Table))
	}
}

// ResolveSync is the blocking form of Resolve.
//
// Deadlock hazard: never call any ...Sync method from a completion
// callback. Completions run on the handle's single execution goroutine,
// and a synchronous wrapper there would wait forever on work that
// goroutine alone can run. There is no runtime guard; the contract is
// the only defense.
func (db *DB) ResolveSync(desc *schema.Descriptor) error {
	done := make(chan error, 1)
	db.Resolve(desc, func(err error) { done <- err })
	return <-done
}

// ensureResolved migrates the table if this handle has not already done
// so. Runs only on the executor goroutine, which owns the resolution map;
// that ownership is what makes first-use racing safe without locks.
func (db *DB) ensureResolved(desc *schema.Descriptor) error {
	switch db.resolution[desc.Table] {
	case stateResolved:
		return nil
	case stateResolving:
		// A unit of work re-entered resolution for its own table. The
		// async-only rule for nested work makes this unreachable from the
		// public surface.
		return newError(KindMisuse, "resolve", desc.Table,
			errors.New("re-entrant resolution"))
	}

	if err := desc.Validate(); err != nil {
		return newError(KindMisuse, "resolve", desc.Table, err)
	}

	db.resolution[desc.Table] = stateResolving
	if err := db.migrateTable(desc); err != nil {
		db.resolution[desc.Table] = stateUnresolved
		return err
	}
	db.resolution[desc.Table] = stateResolved
	return nil
}

// migrateTable introspects the live table, diffs it against the
// descriptor, and applies the additive DDL plan in one transaction.
func (db *DB) migrateTable(desc *schema.Descriptor) error {
	live, err := db.dialect.TableInfo(db.sqldb, desc.Table)
	if err != nil {
		return newError(KindConnection, "resolve", desc.Table, err)
	}

	plan, err := migrate.Compare(db.dialect, live, desc)
	if err != nil {
		return newError(KindSchema, "resolve", desc.Table, err)
	}
	if plan.Empty() {
		db.log.Debug("table already resolved", slog.String("table", desc.Table))
		return nil
	}

	db.log.Debug("migrating table",
		slog.String("table", desc.Table),
		slog.Bool("create", plan.CreateTable),
		slog.Int("statements", len(plan.Statements)))

	if err := migrate.Apply(db.sqldb, plan); err != nil {
		return newError(KindSchema, "resolve", desc.Table, err)
	}
	return nil
}
