package comments

import (
	"errors"
	"fmt"
)

var (
	// ErrCommentNotFound indicates the requested comment doesn't exist
	ErrCommentNotFound = errors.New("comment not found")

	// ErrInvalidReply indicates the reply reference is malformed or invalid
	ErrInvalidReply = errors.New("invalid reply reference")

	// ErrParentNotFound indicates the parent post/comment doesn't exist
	ErrParentNotFound = errors.New("parent post or comment not found")

	// ErrContentTooLong indicates comment content exceeds 10000 graphemes
	ErrContentTooLong = errors.New("comment content exceeds 10000 graphemes")

	// ErrContentEmpty indicates comment content is empty
	ErrContentEmpty = errors.New("comment content is required")

	// ErrNotAuthorized indicates the user is not authorized to perform this action
	ErrNotAuthorized = errors.New("not authorized")

	// ErrCommentDeleted indicates the comment is soft-deleted and cannot be edited
	ErrCommentDeleted = errors.New("comment has been deleted")

	// ErrCommentAlreadyExists indicates a comment with this id already exists
	ErrCommentAlreadyExists = errors.New("comment already exists")

	// ErrConcurrencyConflict indicates the comment was modified since it was loaded
	ErrConcurrencyConflict = errors.New("comment was modified by another operation")

	// ErrRepositoryMisuse indicates a conditional write was attempted without a loaded baseline
	ErrRepositoryMisuse = errors.New("repository misuse")

	// ErrMalformedCursor indicates a pagination cursor could not be decoded
	ErrMalformedCursor = errors.New("malformed cursor")

	// ErrCursorScopeMismatch indicates a cursor was issued for a different listing
	ErrCursorScopeMismatch = errors.New("cursor does not belong to this listing")
)

// ConcurrencyConflictError is returned when a conditional write matched no row:
// the comment changed (or vanished) after its baseline was recorded.
// Comment is the entity the caller tried to write, when the operation had one.
type ConcurrencyConflictError struct {
	Comment *Comment
	ID      string
	Op      string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("%s comment %s: %v", e.Op, e.ID, ErrConcurrencyConflict)
}

func (e *ConcurrencyConflictError) Unwrap() error {
	return ErrConcurrencyConflict
}

// RepositoryMisuseError is returned when a write targets an id whose
// baseline was never recorded (or was already consumed) in the current scope.
// It is a programming error, not a user-facing condition.
type RepositoryMisuseError struct {
	Op string
	ID string
}

func (e *RepositoryMisuseError) Error() string {
	return fmt.Sprintf("repository misuse: %s(%s) requires a prior FindByIDForUpdate in the same scope", e.Op, e.ID)
}

func (e *RepositoryMisuseError) Unwrap() error {
	return ErrRepositoryMisuse
}

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCommentNotFound) ||
		errors.Is(err, ErrParentNotFound)
}

// IsConflict checks if an error is a conflict/already exists error
func IsConflict(err error) bool {
	return errors.Is(err, ErrCommentAlreadyExists) ||
		errors.Is(err, ErrConcurrencyConflict)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr) ||
		errors.Is(err, ErrInvalidReply) ||
		errors.Is(err, ErrContentTooLong) ||
		errors.Is(err, ErrContentEmpty) ||
		errors.Is(err, ErrMalformedCursor) ||
		errors.Is(err, ErrCursorScopeMismatch)
}

// IsMisuse checks if an error reports a repository contract violation
func IsMisuse(err error) bool {
	return errors.Is(err, ErrRepositoryMisuse)
}
