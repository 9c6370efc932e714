// Package dialect isolates the per-engine SQL: introspection queries, DDL
// text, identifier quoting, placeholder style, and the upsert form. The
// rest of the engine speaks only in terms of schema descriptors and the
// Dialect interface.
package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/koba/modelstore/pkg/schema"
)

// TableInfo is the introspected shape of a live table. Column types are
// normalized to the descriptor vocabulary before comparison.
type TableInfo struct {
	Name       string          `json:"name"`
	Columns    []schema.Column `json:"columns"`
	PrimaryKey []string        `json:"primary_key"`
	IndexNames []string        `json:"index_names,omitempty"`
}

// Column returns the named live column, or nil if the table lacks it.
func (t *TableInfo) Column(name string) *schema.Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// HasIndex reports whether the live table carries an index with this name.
func (t *TableInfo) HasIndex(name string) bool {
	for _, n := range t.IndexNames {
		if n == name {
			return true
		}
	}
	return false
}

// Dialect describes one supported storage engine.
type Dialect interface {
	// Name is the dialect's registry name ("sqlite", "mysql", "postgres").
	Name() string
	// DriverName is the database/sql driver to open connections with.
	DriverName() string

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string
	// Placeholder returns the 1-based positional parameter marker.
	Placeholder(n int) string

	// ListTables returns the user tables visible on the connection.
	ListTables(db *sql.DB) ([]string, error)
	// TableInfo introspects one table. Returns (nil, nil) when the table
	// does not exist.
	TableInfo(db *sql.DB, table string) (*TableInfo, error)

	// CreateTableSQL renders the full CREATE TABLE statement, primary key
	// included. Indexes are created separately via CreateIndexSQL.
	CreateTableSQL(d *schema.Descriptor) string
	// AddColumnSQL renders an ALTER TABLE ... ADD COLUMN statement.
	AddColumnSQL(table string, col schema.Column) string
	// CreateIndexSQL renders a CREATE [UNIQUE] INDEX statement.
	CreateIndexSQL(table string, idx schema.Index) string

	// UpsertSQL renders the insert-or-replace statement covering every
	// descriptor column, parameterized in declaration order.
	UpsertSQL(d *schema.Descriptor) string
	// DeleteSQL renders the delete-by-primary-key statement, parameterized
	// in primary-key order.
	DeleteSQL(d *schema.Descriptor) string
	// SelectByKeySQL renders the single-row lookup on the "id" column.
	SelectByKeySQL(d *schema.Descriptor) string
	// SelectWhereSQL renders a query with the caller's raw fragment after
	// WHERE. The fragment's placeholders must match this dialect's style.
	SelectWhereSQL(d *schema.Descriptor, where string) string
}

// Lookup resolves a dialect by registry name.
func Lookup(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mysql":
		return MySQL{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", name)
	}
}

// selectColumns renders the quoted, comma-joined column list in
// declaration order. Queries never use SELECT *; the decode path relies
// on descriptor order.
func selectColumns(q Dialect, d *schema.Descriptor) string {
	names := d.ColumnNames()
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = q.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(q Dialect, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = q.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// keyPredicate renders "pk1 = ? AND pk2 = ?" for the descriptor's primary
// key, with placeholders numbered from start.
func keyPredicate(q Dialect, d *schema.Descriptor, start int) string {
	parts := make([]string, len(d.PrimaryKey))
	for i, name := range d.PrimaryKey {
		parts[i] = fmt.Sprintf("%s = %s", q.QuoteIdentifier(name), q.Placeholder(start+i))
	}
	return strings.Join(parts, " AND ")
}

// columnDefinition renders one column clause for CREATE TABLE or ADD COLUMN.
func columnDefinition(q Dialect, col schema.Column, typeSQL string) string {
	def := q.QuoteIdentifier(col.Name) + " " + typeSQL
	if !col.Nullable {
		def += " NOT NULL"
	}
	if col.DefaultValue != nil {
		def += " DEFAULT " + *col.DefaultValue
	}
	return def
}

// createTable assembles the shared CREATE TABLE shape; dialects differ only
// in quoting and type names.
func createTable(q Dialect, d *schema.Descriptor, typeSQL func(schema.ColumnType) string) string {
	parts := make([]string, 0, len(d.Columns)+1)
	for _, col := range d.Columns {
		parts = append(parts, columnDefinition(q, col, typeSQL(col.Type)))
	}
	pk := make([]string, len(d.PrimaryKey))
	for i, name := range d.PrimaryKey {
		pk[i] = q.QuoteIdentifier(name)
	}
	parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pk, ", ")))
	return fmt.Sprintf("CREATE TABLE %s (%s)", q.QuoteIdentifier(d.Table), strings.Join(parts, ", "))
}

func createIndex(q Dialect, table string, idx schema.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = q.QuoteIdentifier(c)
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, q.QuoteIdentifier(idx.Name), q.QuoteIdentifier(table), strings.Join(cols, ", "))
}
