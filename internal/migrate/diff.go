// Package migrate computes the DDL needed to reconcile a live table with
// its descriptor and applies it in a single transaction. Reconciliation is
// strictly additive: missing tables are created, missing columns and
// indexes are added, and anything that would require dropping or narrowing
// an existing column is reported as an incompatibility instead.
package migrate

import (
	"errors"
	"fmt"

	"github.com/koba/modelstore/internal/dialect"
	"github.com/koba/modelstore/pkg/schema"
)

// ErrIncompatible marks a live table that cannot be reconciled with its
// descriptor by additive DDL alone. Callers match it with errors.Is.
var ErrIncompatible = errors.New("incompatible table schema")

// Plan is the ordered DDL batch that reconciles one table.
type Plan struct {
	Table       string
	CreateTable bool
	Statements  []string
}

// Empty reports whether the live table already matches the descriptor.
func (p *Plan) Empty() bool {
	return len(p.Statements) == 0
}

// Compare diffs a live table against its descriptor and produces the
// additive DDL plan. live is nil when the table does not exist yet.
func Compare(q dialect.Dialect, live *dialect.TableInfo, want *schema.Descriptor) (*Plan, error) {
	plan := &Plan{Table: want.Table}

	if live == nil {
		plan.CreateTable = true
		plan.Statements = append(plan.Statements, q.CreateTableSQL(want))
		for _, idx := range want.Indexes {
			plan.Statements = append(plan.Statements, q.CreateIndexSQL(want.Table, idx))
		}
		return plan, nil
	}

	if err := comparePrimaryKey(live, want); err != nil {
		return nil, err
	}

	for _, col := range want.Columns {
		existing := live.Column(col.Name)
		if existing == nil {
			plan.Statements = append(plan.Statements, q.AddColumnSQL(want.Table, col))
			continue
		}
		if existing.Type != col.Type {
			return nil, fmt.Errorf("table %s: column %s has type %s, descriptor wants %s: %w",
				want.Table, col.Name, existing.Type, col.Type, ErrIncompatible)
		}
		// A live NOT NULL column cannot accept the NULLs a nullable
		// descriptor column permits. The wider direction (live nullable,
		// descriptor not) is accepted: it cannot be tightened in place
		// and does not reject any descriptor-conforming value.
		if !existing.Nullable && col.Nullable && !want.IsPrimaryKey(col.Name) {
			return nil, fmt.Errorf("table %s: column %s is NOT NULL, descriptor wants nullable: %w",
				want.Table, col.Name, ErrIncompatible)
		}
	}

	// Live-only columns are left untouched: additive migration never drops.

	for _, idx := range want.Indexes {
		if !live.HasIndex(idx.Name) {
			plan.Statements = append(plan.Statements, q.CreateIndexSQL(want.Table, idx))
		}
	}

	return plan, nil
}

func comparePrimaryKey(live *dialect.TableInfo, want *schema.Descriptor) error {
	if len(live.PrimaryKey) != len(want.PrimaryKey) {
		return fmt.Errorf("table %s: primary key is %v, descriptor wants %v: %w",
			want.Table, live.PrimaryKey, want.PrimaryKey, ErrIncompatible)
	}
	for i, name := range want.PrimaryKey {
		if live.PrimaryKey[i] != name {
			return fmt.Errorf("table %s: primary key is %v, descriptor wants %v: %w",
				want.Table, live.PrimaryKey, want.PrimaryKey, ErrIncompatible)
		}
	}
	return nil
}
