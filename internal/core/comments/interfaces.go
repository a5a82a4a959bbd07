package comments

import (
	"context"
	"time"
)

// Reader is the read side of the comment repository.
// Soft-deleted comments are returned with a nil Body.
type Reader interface {
	// ListTopLevel returns one page of top-level comments on a post.
	// When opts.PreviewCap > 0 every returned comment carries a reply preview,
	// built for the whole page in one additional query.
	ListTopLevel(ctx context.Context, postID string, opts TopLevelOptions) (*TopLevelPage, error)

	// ListReplies returns one page of direct replies of a parent comment.
	// Cursors issued by reply previews of that parent are accepted here.
	ListReplies(ctx context.Context, parentID string, opts ListOptions) (*RepliesPage, error)

	// GetByID returns a single comment with a bounded reply preview.
	// previewCap == 0 skips the preview.
	GetByID(ctx context.Context, id string, previewCap int) (*CommentView, error)

	// GetByIDsBatch retrieves multiple comments in a single query plus a single
	// preview query. Missing ids are absent from the map.
	GetByIDsBatch(ctx context.Context, ids []string, previewCap int) (map[string]*CommentView, error)

	// ReplyPreviews returns up to previewCap oldest replies per parent in one query.
	// Parents without replies are absent from the map. When cursor is non-nil
	// parentIDs must hold exactly the parent the cursor was issued for and the
	// preview continues after it.
	ReplyPreviews(ctx context.Context, parentIDs []string, previewCap int, cursor *string) (map[string]*ReplyPreview, error)
}

// Writer is the write side of the comment repository. Every write on an
// existing comment is conditional on the updated_at baseline recorded by the
// last FindByIDForUpdate (or write) for that id in the same scope.
type Writer interface {
	// FindByIDForUpdate loads a comment and records its baseline.
	// Returns (nil, nil) when the comment does not exist.
	FindByIDForUpdate(ctx context.Context, id string) (*Comment, error)

	// Insert stores a new comment and returns the stored row; its baseline is recorded.
	Insert(ctx context.Context, comment *Comment) (*Comment, error)

	// Update writes the comment's body conditionally and returns the re-read row.
	Update(ctx context.Context, comment *Comment) (*Comment, error)

	// SoftDelete marks the comment deleted conditionally and returns the re-read row.
	SoftDelete(ctx context.Context, id string) (*Comment, error)

	// Restore clears the deleted flag conditionally and returns the re-read row.
	Restore(ctx context.Context, id string) (*Comment, error)

	// DeletePermanently removes the row conditionally. Replies go with it.
	DeletePermanently(ctx context.Context, id string) error
}

// Repository combines the read and write sides of comment storage
type Repository interface {
	Reader
	Writer
}

// Store hands out repositories bound to a unit of work. Baselines recorded by
// one repository are never visible to another.
type Store interface {
	// Open returns a repository for one request. release drops its baselines.
	Open() (repo Repository, release func())

	// InTx runs fn in a database transaction with a repository scoped to it.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Clock supplies insert-time timestamps
type Clock interface {
	Now() time.Time
}

// IDGenerator supplies ids for new comments
type IDGenerator interface {
	NewID() (string, error)
}
