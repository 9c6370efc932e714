package dialect

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/koba/modelstore/pkg/schema"
)

// MySQL speaks to a MySQL/MariaDB server through information_schema.
// Introspection is scoped to the connection's current database.
type MySQL struct{}

func (MySQL) Name() string       { return "mysql" }
func (MySQL) DriverName() string { return "mysql" }

func (MySQL) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (MySQL) Placeholder(int) string { return "?" }

func (m MySQL) ListTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = DATABASE()
		ORDER BY TABLE_NAME`)
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

func (m MySQL) TableInfo(db *sql.DB, table string) (*TableInfo, error) {
	info := &TableInfo{Name: table}

	rows, err := db.Query(`
		SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, table)
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

	idxRows, err := db.Query(`
		SELECT INDEX_NAME, COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to get indexes for %s: %w", table, err)
	}
	defer idxRows.Close()

	seen := make(map[string]bool)
	for idxRows.Next() {
		var idxName, colName string
		if err := idxRows.Scan(&idxName, &colName); err != nil {
			return nil, fmt.Errorf("failed to scan index for %s: %w", table, err)
		}
		if idxName == "PRIMARY" {
			info.PrimaryKey = append(info.PrimaryKey, colName)
			continue
		}
		if !seen[idxName] {
			seen[idxName] = true
			info.IndexNames = append(info.IndexNames, idxName)
		}
	}
	return info, idxRows.Err()
}

// typeSQL maps descriptor types to MySQL column types. TEXT maps to
// VARCHAR(255) so text columns can participate in primary keys and
// indexes without a prefix length.
func (m MySQL) typeSQL(t schema.ColumnType) string {
	switch t {
	case schema.TypeText:
		return "VARCHAR(255)"
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeReal:
		return "DOUBLE"
	case schema.TypeBlob:
		return "BLOB"
	}
	return string(t)
}

func (m MySQL) CreateTableSQL(d *schema.Descriptor) string {
	return createTable(m, d, m.typeSQL)
}

func (m MySQL) AddColumnSQL(table string, col schema.Column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		m.QuoteIdentifier(table), columnDefinition(m, col, m.typeSQL(col.Type)))
}

func (m MySQL) CreateIndexSQL(table string, idx schema.Index) string {
	return createIndex(m, table, idx)
}

func (m MySQL) UpsertSQL(d *schema.Descriptor) string {
	return fmt.Sprintf("REPLACE INTO %s (%s) VALUES (%s)",
		m.QuoteIdentifier(d.Table), selectColumns(m, d), placeholders(m, len(d.Columns)))
}

func (m MySQL) DeleteSQL(d *schema.Descriptor) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s",
		m.QuoteIdentifier(d.Table), keyPredicate(m, d, 1))
}

func (m MySQL) SelectByKeySQL(d *schema.Descriptor) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectColumns(m, d), m.QuoteIdentifier(d.Table), m.QuoteIdentifier("id"))
}

func (m MySQL) SelectWhereSQL(d *schema.Descriptor, where string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		selectColumns(m, d), m.QuoteIdentifier(d.Table), where)
}
