package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/koba/modelstore/pkg/schema"
)

// Postgres speaks to a PostgreSQL server through information_schema and
// pg_indexes. Introspection is scoped to the connection's current schema.
type Postgres struct{}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "postgres" }

func (Postgres) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (p Postgres) ListTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (p Postgres) TableInfo(db *sql.DB, table string) (*TableInfo, error) {
	info := &TableInfo{Name: table}

	rows, err := db.Query(`
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			colName, colType, nullable string
			dflt                       sql.NullString
		)
		if err := rows.Scan(&colName, &colType, &nullable, &dflt); err != nil {
			return nil, fmt.Errorf("failed to scan column for %s: %w", table, err)
		}
		col := schema.Column{
			Name:     colName,
			Type:     schema.NormalizeType(colType),
			Nullable: nullable == "YES",
		}
		if dflt.Valid {
			col.DefaultValue = &dflt.String
		}
		info.Columns = append(info.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(info.Columns) == 0 {
		return nil, nil
	}

	pkRows, err := db.Query(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = current_schema()
		  AND tc.table_name = $1
		ORDER BY kcu.ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get primary key for %s: %w", table, err)
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var colName string
		if err := pkRows.Scan(&colName); err != nil {
			return nil, fmt.Errorf("failed to scan primary key for %s: %w", table, err)
		}
		info.PrimaryKey = append(info.PrimaryKey, colName)
	}
	if err := pkRows.Err(); err != nil {
		return nil, err
	}

	idxRows, err := db.Query(`
		SELECT indexname
		FROM pg_indexes
		WHERE schemaname = current_schema() AND tablename = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes for %s: %w", table, err)
	}
	defer idxRows.Close()

	for idxRows.Next() {
		var idxName string
		if err := idxRows.Scan(&idxName); err != nil {
			return nil, fmt.Errorf("failed to scan index for %s: %w", table, err)
		}
		// The primary key's backing index shows up in pg_indexes too.
		if strings.HasSuffix(idxName, "_pkey") {
			continue
		}
		info.IndexNames = append(info.IndexNames, idxName)
	}
	return info, idxRows.Err()
}

func (p Postgres) typeSQL(t schema.ColumnType) string {
	switch t {
	case schema.TypeText:
		return "TEXT"
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeReal:
		return "DOUBLE PRECISION"
	case schema.TypeBlob:
		return "BYTEA"
	}
	return string(t)
}

func (p Postgres) CreateTableSQL(d *schema.Descriptor) string {
	return createTable(p, d, p.typeSQL)
}

func (p Postgres) AddColumnSQL(table string, col schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		p.QuoteIdentifier(table), columnDefinition(p, col, p.typeSQL(col.Type)))
}

func (p Postgres) CreateIndexSQL(table string, idx schema.Index) string {
	return createIndex(p, table, idx)
}

func (p Postgres) UpsertSQL(d *schema.Descriptor) string {
	assignments := make([]string, 0, len(d.Columns))
	for _, col := range d.Columns {
		if d.IsPrimaryKey(col.Name) {
			continue
		}
		q := p.QuoteIdentifier(col.Name)
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	pk := make([]string, len(d.PrimaryKey))
	for i, name := range d.PrimaryKey {
		pk[i] = p.QuoteIdentifier(name)
	}
	conflict := fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(pk, ", "), strings.Join(assignments, ", "))
	if len(assignments) == 0 {
		// Every column is part of the key; nothing to update.
		conflict = fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(pk, ", "))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		p.QuoteIdentifier(d.Table), selectColumns(p, d), placeholders(p, len(d.Columns)), conflict)
}

func (p Postgres) DeleteSQL(d *schema.Descriptor) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s",
		p.QuoteIdentifier(d.Table), keyPredicate(p, d, 1))
}

func (p Postgres) SelectByKeySQL(d *schema.Descriptor) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		selectColumns(p, d), p.QuoteIdentifier(d.Table), p.QuoteIdentifier("id"))
}

func (p Postgres) SelectWhereSQL(d *schema.Descriptor, where string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		selectColumns(p, d), p.QuoteIdentifier(d.Table), where)
}
