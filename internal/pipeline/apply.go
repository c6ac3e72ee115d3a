package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/job-portal-api/pkg/errors"
)

// Querier is satisfied by *sqlx.DB and *sqlx.Tx.
type Querier interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

// Execer is satisfied by *sqlx.DB and *sqlx.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// UpdateSQL renders the parameterised UPDATE for m. Column and table names
// come from the registry; values are only ever bound.
func (m *Mutation) UpdateSQL() (string, []interface{}) {
	sets := make([]string, 0, len(m.Clauses)+1)
	args := make([]interface{}, 0, len(m.Clauses)+1)
	for i, c := range m.Clauses {
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Field, i+1))
		args = append(args, c.Value)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, m.TargetID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING updated_at", m.Table, strings.Join(sets, ", "), len(args))
	return query, args
}

// DeleteSQL renders the DELETE for a row of table.
func DeleteSQL(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
}

// Apply executes m and returns the row's new updated_at. Driver errors are
// wrapped as internal errors whose text never reaches clients.
func Apply(ctx context.Context, q Querier, m *Mutation) (time.Time, error) {
	if m.Empty() {
		return time.Time{}, ErrNoFields
	}
	if err := m.checkIdentifiers(); err != nil {
		return time.Time{}, appErrors.Internal(err, "refusing to build update")
	}
	query, args := m.UpdateSQL()
	var updatedAt time.Time
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, appErrors.ErrNotFound
		}
		return time.Time{}, appErrors.Internal(err, fmt.Sprintf("failed to update %s", m.Table))
	}
	return updatedAt, nil
}

// ApplyDelete removes the row id from table.
func ApplyDelete(ctx context.Context, e Execer, table, id string) error {
	if !identPattern.MatchString(table) {
		return appErrors.Internal(fmt.Errorf("invalid table %q", table), "failed to delete")
	}
	res, err := e.ExecContext(ctx, DeleteSQL(table), id)
	if err != nil {
		return appErrors.Internal(err, fmt.Sprintf("failed to delete from %s", table))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return appErrors.Internal(err, fmt.Sprintf("failed to delete from %s", table))
	}
	if affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

func (m *Mutation) checkIdentifiers() error {
	if !identPattern.MatchString(m.Table) {
		return fmt.Errorf("invalid table %q", m.Table)
	}
	for _, c := range m.Clauses {
		if !identPattern.MatchString(c.Field) {
			return fmt.Errorf("invalid column %q", c.Field)
		}
	}
	return nil
}
