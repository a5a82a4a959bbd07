package postgres

import (
	"Inkwell/internal/core/comments"
	"context"
	"fmt"
)

// writeGuard issues statements that only apply when the row still carries the
// updated_at baseline recorded for it.
type writeGuard struct {
	baselines *baselineTracker
}

// exec runs query with id and the consumed baseline appended as its last two
// parameters. The query must end in "WHERE id = $n AND updated_at = $n+1".
//
// No baseline returns RepositoryMisuseError without touching the database.
// Zero affected rows returns ConcurrencyConflictError. The baseline is
// consumed either way once a statement is attempted.
func (g *writeGuard) exec(ctx context.Context, conn DBTX, op, id string, subject *comments.Comment, query string, args ...interface{}) error {
	baseline, ok := g.baselines.take(id)
	if !ok {
		return &comments.RepositoryMisuseError{Op: op, ID: id}
	}

	args = append(args, id, baseline)
	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(op+" comment", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s result: %w", op, err)
	}

	switch affected {
	case 1:
		return nil
	case 0:
		return &comments.ConcurrencyConflictError{Op: op, ID: id, Comment: subject}
	default:
		return fmt.Errorf("%s comment %s: affected %d rows", op, id, affected)
	}
}
