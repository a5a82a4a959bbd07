package postgres

import (
	"Inkwell/internal/core/comments"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// translateError maps driver errors onto comment domain errors.
// Anything unrecognized is wrapped with op for context.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%s: %w", op, comments.ErrCommentAlreadyExists)
		case "foreign_key_violation":
			return fmt.Errorf("%s: %w", op, comments.ErrParentNotFound)
		case "invalid_text_representation":
			// a non-uuid id can never match a row
			return fmt.Errorf("%s: %w", op, comments.ErrCommentNotFound)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
