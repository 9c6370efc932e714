package modelstore

import (
	"fmt"

	"github.com/koba/modelstore/pkg/schema"
)

// Model is the boundary with descriptor providers: one pure method per
// model type returning its table definition. Implementations must be
// idempotent and perform no I/O.
type Model interface {
	Table() *schema.Descriptor
}

// Record is one row bound to its descriptor — a model instance. Callers
// build records for writes; reads decode query rows into records. A
// record never holds a live connection; the database handle is always
// passed to the operation.
type Record struct {
	desc   *schema.Descriptor
	Values schema.Row
}

// NewRecord binds a value map to a descriptor. The map is used as-is.
func NewRecord(desc *schema.Descriptor, values schema.Row) *Record {
	if values == nil {
		values = make(schema.Row)
	}
	return &Record{desc: desc, Values: values}
}

// NewRecordFor builds an empty record for a model type's table.
func NewRecordFor(m Model) *Record {
	return NewRecord(m.Table(), nil)
}

// Descriptor returns the record's table definition.
func (r *Record) Descriptor() *schema.Descriptor { return r.desc }

// Get returns the value stored for a column, or nil.
func (r *Record) Get(column string) any { return r.Values[column] }

// Set stores a column value.
func (r *Record) Set(column string, v any) { r.Values[column] = v }

// primaryKeyValues returns the record's key values in primary-key column
// order. A missing or nil key value is a caller error.
func (r *Record) primaryKeyValues() ([]any, error) {
	keys := make([]any, len(r.desc.PrimaryKey))
	for i, name := range r.desc.PrimaryKey {
		v, ok := r.Values[name]
		if !ok || v == nil {
			return nil, fmt.Errorf("record for table %s is missing primary key value %s", r.desc.Table, name)
		}
		keys[i] = v
	}
	return keys, nil
}

// changeKey is the value published in a change event: the scalar for a
// single-column key, an ordered tuple for a composite key.
func changeKey(keys []any) any {
	if len(keys) == 1 {
		return keys[0]
	}
	return keys
}

// orderedValues binds the record's values in column declaration order for
// the upsert statement. Columns without a value bind NULL; NOT NULL
// violations surface from the engine as query errors.
func (r *Record) orderedValues() []any {
	vals := make([]any, len(r.desc.Columns))
	for i, col := range r.desc.Columns {
		vals[i] = r.Values[col.Name]
	}
	return vals
}

// decodeRow converts one scanned row into a record, coercing driver
// values onto the descriptor's type vocabulary.
func decodeRow(desc *schema.Descriptor, scanned []any) *Record {
	values := make(schema.Row, len(desc.Columns))
	for i, col := range desc.Columns {
		values[col.Name] = coerceValue(col.Type, scanned[i])
	}
	return &Record{desc: desc, Values: values}
}

// coerceValue maps the driver's scan result onto the declared column
// type. Drivers disagree on TEXT ([]byte vs string) and on integer
// widths; records always hold string/int64/float64/[]byte/nil.
func coerceValue(t schema.ColumnType, v any) any {
	if v == nil {
		return nil
	}
	switch t {
	case schema.TypeText:
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		return v
	case schema.TypeInteger:
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case int32:
			return int64(n)
		case bool:
			if n {
				return int64(1)
			}
			return int64(0)
		}
		return v
	case schema.TypeReal:
		switch n := v.(type) {
		case float64:
			return n
		case float32:
			return float64(n)
		case int64:
			return float64(n)
		}
		return v
	case schema.TypeBlob:
		if b, ok := v.([]byte); ok {
			// The driver may reuse the scan buffer between rows.
			out := make([]byte, len(b))
			copy(out, b)
			return out
		}
		return v
	}
	return v
}
