// Package schema defines the declarative table descriptions that model
// types provide. A Descriptor is the single source of truth for a table's
// physical shape: its columns, primary key, and secondary indexes.
package schema

import (
	"fmt"
	"strings"
)

// ColumnType enumerates the storage types a column may declare.
type ColumnType string

const (
	TypeText    ColumnType = "TEXT"
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
	TypeBlob    ColumnType = "BLOB"
)

// Valid reports whether t is one of the supported column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeText, TypeInteger, TypeReal, TypeBlob:
		return true
	}
	return false
}

// Column describes one table column.
type Column struct {
	Name         string     `json:"name" yaml:"name"`
	Type         ColumnType `json:"type" yaml:"type"`
	Nullable     bool       `json:"nullable" yaml:"nullable"`
	DefaultValue *string    `json:"default_value,omitempty" yaml:"default,omitempty"`
}

// Index describes a secondary index over one or more columns.
type Index struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique" yaml:"unique"`
}

// Descriptor is the full declarative definition of one table. Model types
// construct exactly one Descriptor each and treat it as immutable after
// construction; the engine never mutates it.
type Descriptor struct {
	Table      string   `json:"table" yaml:"table"`
	Columns    []Column `json:"columns" yaml:"columns"`
	PrimaryKey []string `json:"primary_key" yaml:"primary_key"`
	Indexes    []Index  `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Row holds one row's column values keyed by column name.
type Row map[string]any

// Validate checks the descriptor's structural invariants: a table name,
// at least one column, unique column names, a non-empty primary key that
// references declared non-nullable columns, and index columns that exist.
func (d *Descriptor) Validate() error {
	if d.Table == "" {
		return fmt.Errorf("descriptor has no table name")
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("table %s: no columns declared", d.Table)
	}

	byName := make(map[string]*Column, len(d.Columns))
	for i := range d.Columns {
		col := &d.Columns[i]
		if col.Name == "" {
			return fmt.Errorf("table %s: column %d has no name", d.Table, i)
		}
		if !col.Type.Valid() {
			return fmt.Errorf("table %s: column %s has unsupported type %q", d.Table, col.Name, col.Type)
		}
		if _, dup := byName[col.Name]; dup {
			return fmt.Errorf("table %s: duplicate column %s", d.Table, col.Name)
		}
		byName[col.Name] = col
	}

	if len(d.PrimaryKey) == 0 {
		return fmt.Errorf("table %s: no primary key declared", d.Table)
	}
	seen := make(map[string]bool, len(d.PrimaryKey))
	for _, name := range d.PrimaryKey {
		col, ok := byName[name]
		if !ok {
			return fmt.Errorf("table %s: primary key references unknown column %s", d.Table, name)
		}
		if seen[name] {
			return fmt.Errorf("table %s: primary key repeats column %s", d.Table, name)
		}
		if col.Nullable {
			return fmt.Errorf("table %s: primary key column %s must not be nullable", d.Table, name)
		}
		seen[name] = true
	}

	for _, idx := range d.Indexes {
		if idx.Name == "" {
			return fmt.Errorf("table %s: index with no name", d.Table)
		}
		if len(idx.Columns) == 0 {
			return fmt.Errorf("table %s: index %s has no columns", d.Table, idx.Name)
		}
		for _, name := range idx.Columns {
			if _, ok := byName[name]; !ok {
				return fmt.Errorf("table %s: index %s references unknown column %s", d.Table, idx.Name, name)
			}
		}
	}

	return nil
}

// Column returns the named column, or nil if the descriptor does not
// declare it.
func (d *Descriptor) Column(name string) *Column {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the declared column names in declaration order.
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// HasSingleIDKey reports whether the primary key is exactly the single
// column "id". Keyed reads are only available for such tables.
func (d *Descriptor) HasSingleIDKey() bool {
	return len(d.PrimaryKey) == 1 && d.PrimaryKey[0] == "id"
}

// IsPrimaryKey reports whether the named column is part of the primary key.
func (d *Descriptor) IsPrimaryKey(name string) bool {
	for _, pk := range d.PrimaryKey {
		if pk == name {
			return true
		}
	}
	return false
}

// NormalizeType maps a live column type string, as reported by an engine's
// introspection, onto the descriptor type vocabulary. Engines decorate types
// with lengths and synonyms (VARCHAR(255), BIGINT, DOUBLE PRECISION); the
// comparison that matters for compatibility is the storage class.
func NormalizeType(raw string) ColumnType {
	t := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch {
	case strings.Contains(t, "INT"):
		return TypeInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return TypeText
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return TypeReal
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BYTEA"), strings.Contains(t, "BINARY"):
		return TypeBlob
	}
	return ColumnType(t)
}
