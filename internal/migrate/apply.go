package migrate

import (
	"database/sql"
	"fmt"
)

// Apply executes the plan's DDL inside one transaction, so a table is
// either fully reconciled or untouched.
func Apply(db *sql.DB, plan *Plan) error {
	if plan.Empty() {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("table %s: begin migration: %w", plan.Table, err)
	}
	defer tx.Rollback()

	for _, stmt := range plan.Statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("table %s: %q: %w", plan.Table, stmt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("table %s: commit migration: %w", plan.Table, err)
	}
	return nil
}
