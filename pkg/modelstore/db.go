package modelstore

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/koba/modelstore/internal/dialect"
)

// resolutionState tracks one table's migration progress on a handle.
type resolutionState int8

const (
	stateUnresolved resolutionState = iota
	stateResolving
	stateResolved
)

// DB is a database handle: one open connection, the resolution state of
// every table used through it, and the executor that serializes all
// access. A handle is safe to share across model types and goroutines;
// every operation funnels through its executor.
type DB struct {
	sqldb    *sql.DB
	dialect  dialect.Dialect
	log      *slog.Logger
	sink     ChangeSink
	notifier *Notifier
	exec     *executor

	// resolution is touched only on the executor goroutine.
	resolution map[string]resolutionState
}

// Option configures a handle at open time.
type Option func(*DB)

// WithLogger sets the handle's structured logger. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(db *DB) { db.log = log }
}

// WithChangeSink replaces the default fan-out notifier with an injected
// sink. Useful for tests that capture events deterministically.
func WithChangeSink(sink ChangeSink) Option {
	return func(db *DB) { db.sink = sink }
}

// Open creates or opens an embedded SQLite database at the given path and
// returns its handle. The connection is configured with WAL mode, a busy
// timeout, and foreign key enforcement.
func Open(path string, opts ...Option) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, newError(KindConnection, "open", "", err)
	}
	db, err := newDB(sqldb, dialect.SQLite{}, opts)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	if err := db.applySQLitePragmas(); err != nil {
		db.exec.close()
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// OpenDSN opens a handle on a named dialect ("sqlite", "mysql",
// "postgres") with a driver DSN.
func OpenDSN(dialectName, dsn string, opts ...Option) (*DB, error) {
	q, err := dialect.Lookup(dialectName)
	if err != nil {
		return nil, newError(KindMisuse, "open", "", err)
	}
	sqldb, err := sql.Open(q.DriverName(), dsn)
	if err != nil {
		return nil, newError(KindConnection, "open", "", err)
	}
	db, err := newDB(sqldb, q, opts)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	return db, nil
}

// New wraps an already-open connection. The caller picks the dialect by
// name; the handle takes ownership of the connection and closes it on
// Close.
func New(sqldb *sql.DB, dialectName string, opts ...Option) (*DB, error) {
	q, err := dialect.Lookup(dialectName)
	if err != nil {
		return nil, newError(KindMisuse, "open", "", err)
	}
	return newDB(sqldb, q, opts)
}

func newDB(sqldb *sql.DB, q dialect.Dialect, opts []Option) (*DB, error) {
	if err := sqldb.Ping(); err != nil {
		return nil, newError(KindConnection, "open", "", err)
	}

	// One connection: the executor is the single writer, and a second
	// pooled connection would reintroduce the races it exists to prevent.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	db := &DB{
		sqldb:      sqldb,
		dialect:    q,
		notifier:   NewNotifier(),
		resolution: make(map[string]resolutionState),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.log == nil {
		db.log = slog.Default()
	}
	if db.sink == nil {
		db.sink = db.notifier
	}
	db.exec = newExecutor()
	return db, nil
}

func (db *DB) applySQLitePragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.sqldb.Exec(pragma); err != nil {
			return newError(KindConnection, "open", "", fmt.Errorf("%s: %w", pragma, err))
		}
	}
	return nil
}

// Notifier returns the handle's built-in change notifier. It receives
// events unless WithChangeSink replaced it.
func (db *DB) Notifier() *Notifier { return db.notifier }

// Close stops accepting new operations, lets already-submitted work run
// to completion, and closes the connection. Operations submitted after
// Close complete with a connection error.
func (db *DB) Close() error {
	db.exec.close()
	return db.sqldb.Close()
}

// ListTables returns the user tables visible on the handle's connection.
// Runs through the executor like every other operation.
func (db *DB) ListTables(complete func([]string, error)) {
	ok := db.exec.submit(func() {
		tables, err := db.dialect.ListTables(db.sqldb)
		if err != nil {
			tables, err = nil, newError(KindConnection, "list tables", "", err)
		}
		if complete != nil {
			complete(tables, err)
		}
	})
	if !ok && complete != nil {
		complete(nil, closedErr("list tables", ""))
	}
}

// ListTablesSync is the blocking form of ListTables.
//
// Must not be called from a completion callback; see the deadlock
// contract on the synchronous wrappers in this package.
func (db *DB) ListTablesSync() ([]string, error) {
	type result struct {
		tables []string
		err    error
	}
	done := make(chan result, 1)
	db.ListTables(func(tables []string, err error) {
		done <- result{tables, err}
	})
	r := <-done
	return r.tables, r.err
}

// closedErr builds the error reported for work submitted after Close.
func closedErr(op, table string) error {
	return newError(KindConnection, op, table, fmt.Errorf("database handle is closed"))
}
