// Package archive dumps live tables into a standalone SQLite file. The
// container holds three tables: archive_meta (creation info), archive_tables
// (one JSON shape per archived table), and archive_rows (one JSON document
// per data row). An archive is self-contained and can be inspected or
// reloaded without access to the source database.
package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/koba/modelstore/internal/dialect"
	"github.com/koba/modelstore/pkg/schema"
)

var containerDDL = []string{
	`CREATE TABLE archive_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE archive_tables (
		name       TEXT PRIMARY KEY,
		shape_json TEXT NOT NULL
	)`,
	`CREATE TABLE archive_rows (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		table_name TEXT NOT NULL REFERENCES archive_tables(name),
		row_json   TEXT NOT NULL
	)`,
	`CREATE INDEX archive_rows_by_table ON archive_rows (table_name)`,
}

// Archive is a loaded archive file.
type Archive struct {
	Metadata map[string]string
	Tables   map[string]*Table
}

// Table is one archived table: its introspected shape plus its rows in
// archive order.
type Table struct {
	Shape *dialect.TableInfo
	Rows  []schema.Row
}

// Create archives the named tables from db into a SQLite file at
// outputPath, replacing any file already there. An empty tables list
// archives every table the dialect can see. A limit above zero caps the
// rows stored per table. The container is written in one transaction.
func Create(db *sql.DB, q dialect.Dialect, tables []string, outputPath string, limit int) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("archive directory: %w", err)
	}
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replace %s: %w", outputPath, err)
	}

	if len(tables) == 0 {
		var err error
		if tables, err = q.ListTables(db); err != nil {
			return fmt.Errorf("list source tables: %w", err)
		}
	}

	out, err := sql.Open("sqlite", outputPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", outputPath, err)
	}
	defer out.Close()

	tx, err := out.Begin()
	if err != nil {
		return fmt.Errorf("begin archive: %w", err)
	}
	defer tx.Rollback()

	for _, ddl := range containerDDL {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("container DDL: %w", err)
		}
	}
	if err := writeMeta(tx, q); err != nil {
		return err
	}
	for _, table := range tables {
		if err := writeTable(tx, db, q, table, limit); err != nil {
			return fmt.Errorf("table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	return nil
}

func writeMeta(tx *sql.Tx, q dialect.Dialect) error {
	meta := map[string]string{
		"created_at": time.Now().Format(time.RFC3339),
		"dialect":    q.Name(),
	}
	for key, value := range meta {
		if _, err := tx.Exec(
			"INSERT INTO archive_meta (key, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("meta %s: %w", key, err)
		}
	}
	return nil
}

func writeTable(tx *sql.Tx, db *sql.DB, q dialect.Dialect, table string, limit int) error {
	shape, err := q.TableInfo(db, table)
	if err != nil {
		return fmt.Errorf("introspect: %w", err)
	}
	if shape == nil {
		return fmt.Errorf("not found in source database")
	}

	shapeJSON, err := json.Marshal(shape)
	if err != nil {
		return fmt.Errorf("encode shape: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO archive_tables (name, shape_json) VALUES (?, ?)",
		table, string(shapeJSON)); err != nil {
		return fmt.Errorf("store shape: %w", err)
	}

	rows, err := readRows(db, q, shape, limit)
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	for _, row := range rows {
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO archive_rows (table_name, row_json) VALUES (?, ?)",
			table, string(rowJSON)); err != nil {
			return fmt.Errorf("store row: %w", err)
		}
	}
	return nil
}

// readRows selects every column of the live table in introspection order.
func readRows(db *sql.DB, q dialect.Dialect, shape *dialect.TableInfo, limit int) ([]schema.Row, error) {
	cols := make([]string, len(shape.Columns))
	for i, col := range shape.Columns {
		cols[i] = q.QuoteIdentifier(col.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(cols, ", "), q.QuoteIdentifier(shape.Name))
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schema.Row
	for rows.Next() {
		values := make([]any, len(shape.Columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(schema.Row, len(values))
		for i, col := range shape.Columns {
			if b, ok := values[i].([]byte); ok {
				row[col.Name] = string(b)
			} else {
				row[col.Name] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Load reads an archive file back into memory.
func Load(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("archive %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer db.Close()

	a := &Archive{
		Metadata: make(map[string]string),
		Tables:   make(map[string]*Table),
	}
	if err := loadMeta(db, a); err != nil {
		return nil, err
	}
	if err := loadShapes(db, a); err != nil {
		return nil, err
	}
	if err := loadRows(db, a); err != nil {
		return nil, err
	}
	return a, nil
}

func loadMeta(db *sql.DB, a *Archive) error {
	rows, err := db.Query("SELECT key, value FROM archive_meta")
	if err != nil {
		return fmt.Errorf("read meta: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan meta: %w", err)
		}
		a.Metadata[key] = value
	}
	return rows.Err()
}

func loadShapes(db *sql.DB, a *Archive) error {
	rows, err := db.Query("SELECT name, shape_json FROM archive_tables")
	if err != nil {
		return fmt.Errorf("read shapes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, shapeJSON string
		if err := rows.Scan(&name, &shapeJSON); err != nil {
			return fmt.Errorf("scan shape: %w", err)
		}
		var shape dialect.TableInfo
		if err := json.Unmarshal([]byte(shapeJSON), &shape); err != nil {
			return fmt.Errorf("table %s: decode shape: %w", name, err)
		}
		a.Tables[name] = &Table{Shape: &shape}
	}
	return rows.Err()
}

// loadRows walks archive_rows once in seq order, so each table's rows come
// back in the order they were archived.
func loadRows(db *sql.DB, a *Archive) error {
	rows, err := db.Query("SELECT table_name, row_json FROM archive_rows ORDER BY seq")
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, rowJSON string
		if err := rows.Scan(&name, &rowJSON); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		t, ok := a.Tables[name]
		if !ok {
			return fmt.Errorf("row for unarchived table %s", name)
		}
		var row schema.Row
		if err := json.Unmarshal([]byte(rowJSON), &row); err != nil {
			return fmt.Errorf("table %s: decode row: %w", name, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return rows.Err()
}
