package dialect

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/koba/modelstore/pkg/schema"
)

// SQLite is the embedded default engine, backed by the pure-Go driver.
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite" }

func (SQLite) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (SQLite) Placeholder(int) string { return "?" }

func (s SQLite) ListTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
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

func (s SQLite) TableInfo(db *sql.DB, table string) (*TableInfo, error) {
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check table %s: %w", table, err)
	}

	info := &TableInfo{Name: table}

	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", s.QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for %s: %w", table, err)
	}
	defer rows.Close()

	// pk holds 1-based primary key positions; table_info reports them in
	// column order, not key order.
	type pkCol struct {
		name string
		pos  int
	}
	var pks []pkCol
	for rows.Next() {
		var (
			cid, notNull, pk int
			colName, colType string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column for %s: %w", table, err)
		}
		col := schema.Column{
			Name:     colName,
			Type:     schema.NormalizeType(colType),
			Nullable: notNull == 0,
		}
		if dflt.Valid {
			col.DefaultValue = &dflt.String
		}
		info.Columns = append(info.Columns, col)
		if pk > 0 {
			pks = append(pks, pkCol{name: colName, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(pks, func(i, j int) bool { return pks[i].pos < pks[j].pos })
	for _, p := range pks {
		info.PrimaryKey = append(info.PrimaryKey, p.name)
	}

	idxRows, err := db.Query(fmt.Sprintf("PRAGMA index_list(%s)", s.QuoteIdentifier(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes for %s: %w", table, err)
	}
	defer idxRows.Close()

	for idxRows.Next() {
		var (
			seq, unique, partial int
			idxName, origin      string
		)
		if err := idxRows.Scan(&seq, &idxName, &unique, &origin, &partial); err != nil {
			return nil, fmt.Errorf("failed to scan index for %s: %w", table, err)
		}
		// origin "pk" and "u" rows are implementation indexes backing
		// constraints, not declared secondary indexes.
		if origin == "c" {
			info.IndexNames = append(info.IndexNames, idxName)
		}
	}
	return info, idxRows.Err()
}

func (s SQLite) typeSQL(t schema.ColumnType) string { return string(t) }

func (s SQLite) CreateTableSQL(d *schema.Descriptor) string {
	return createTable(s, d, s.typeSQL)
}

func (s SQLite) AddColumnSQL(table string, col schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		s.QuoteIdentifier(table), columnDefinition(s, col, s.typeSQL(col.Type)))
}

func (s SQLite) CreateIndexSQL(table string, idx schema.Index) string {
	return createIndex(s, table, idx)
}

func (s SQLite) UpsertSQL(d *schema.Descriptor) string {
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		s.QuoteIdentifier(d.Table), selectColumns(s, d), placeholders(s, len(d.Columns)))
}

func (s SQLite) DeleteSQL(d *schema.Descriptor) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s",
		s.QuoteIdentifier(d.Table), keyPredicate(s, d, 1))
}

func (s SQLite) SelectByKeySQL(d *schema.Descriptor) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectColumns(s, d), s.QuoteIdentifier(d.Table), s.QuoteIdentifier("id"))
}

func (s SQLite) SelectWhereSQL(d *schema.Descriptor, where string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		selectColumns(s, d), s.QuoteIdentifier(d.Table), where)
}
