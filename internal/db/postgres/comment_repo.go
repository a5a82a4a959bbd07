package postgres

import (
	"Inkwell/internal/core/comments"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
)

// commentColumns selects a comment with the body redacted in SQL when the
// comment is soft-deleted, so a deleted body never leaves the database.
const commentColumns = `c.id, c.post_id, c.author_id,
		CASE WHEN c.is_deleted THEN NULL ELSE c.body END AS body,
		c.parent_comment_id, c.is_deleted, c.created_at, c.updated_at`

const replyCountColumn = `(SELECT COUNT(*) FROM comments r WHERE r.parent_comment_id = c.id) AS reply_count`

// touchUpdatedAt always moves updated_at forward, even when two writes land
// within the same clock tick.
const touchUpdatedAt = `updated_at = GREATEST(clock_timestamp(), updated_at + INTERVAL '1 microsecond')`

type postgresCommentRepo struct {
	resolver  *Resolver
	codec     *comments.CursorCodec
	clock     comments.Clock
	ids       comments.IDGenerator
	baselines *baselineTracker
	guard     *writeGuard
}

// NewCommentRepository creates a PostgreSQL comment repository with its own
// baseline scope. Most callers should go through CommentStore instead.
func NewCommentRepository(resolver *Resolver, codec *comments.CursorCodec, clock comments.Clock, ids comments.IDGenerator) comments.Repository {
	return newCommentRepo(resolver, codec, clock, ids)
}

func newCommentRepo(resolver *Resolver, codec *comments.CursorCodec, clock comments.Clock, ids comments.IDGenerator) *postgresCommentRepo {
	baselines := newBaselineTracker()
	return &postgresCommentRepo{
		resolver:  resolver,
		codec:     codec,
		clock:     clock,
		ids:       ids,
		baselines: baselines,
		guard:     &writeGuard{baselines: baselines},
	}
}

// commentRow is the scan target for commentColumns
type commentRow struct {
	createdAt time.Time
	updatedAt time.Time
	body      sql.NullString
	parentID  sql.NullString
	id        string
	postID    string
	authorID  string
	isDeleted bool
}

func (r *commentRow) dest() []interface{} {
	return []interface{}{
		&r.id, &r.postID, &r.authorID, &r.body,
		&r.parentID, &r.isDeleted, &r.createdAt, &r.updatedAt,
	}
}

func (r *commentRow) toComment() *comments.Comment {
	c := &comments.Comment{
		ID:              r.id,
		PostID:          r.postID,
		AuthorID:        r.authorID,
		Body:            nullStringPtr(r.body),
		ParentCommentID: nullStringPtr(r.parentID),
		IsDeleted:       r.isDeleted,
		CreatedAt:       r.createdAt,
		UpdatedAt:       r.updatedAt,
	}
	c.Redact()
	return c
}

// viewRow is the scan target for commentColumns followed by replyCountColumn
type viewRow struct {
	commentRow
	replyCount int
}

func (r *viewRow) dest() []interface{} {
	return append(r.commentRow.dest(), &r.replyCount)
}

func (r *viewRow) toView() *comments.CommentView {
	return comments.NewCommentView(*r.toComment(), r.replyCount)
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Printf("Failed to close rows: %v", err)
	}
}

// GetByID retrieves a comment with its reply count and, when previewCap > 0,
// its oldest replies.
func (r *postgresCommentRepo) GetByID(ctx context.Context, id string, previewCap int) (*comments.CommentView, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM comments c
		WHERE c.id = $1
	`, commentColumns, replyCountColumn)

	var row viewRow
	err := r.resolver.Conn(ctx).QueryRowContext(ctx, query, id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, comments.ErrCommentNotFound
	}
	if err != nil {
		return nil, translateError("get comment", err)
	}

	view := row.toView()
	if err := r.attachPreviews(ctx, []*comments.CommentView{view}, previewCap); err != nil {
		return nil, err
	}
	return view, nil
}

// GetByIDsBatch retrieves multiple comments by id in a single query
func (r *postgresCommentRepo) GetByIDsBatch(ctx context.Context, ids []string, previewCap int) (map[string]*comments.CommentView, error) {
	result := make(map[string]*comments.CommentView, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM comments c
		WHERE c.id = ANY($1::uuid[])
	`, commentColumns, replyCountColumn)

	rows, err := r.resolver.Conn(ctx).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, translateError("batch get comments", err)
	}
	defer closeRows(rows)

	views := make([]*comments.CommentView, 0, len(ids))
	for rows.Next() {
		var row viewRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		view := row.toView()
		views = append(views, view)
		result[view.ID] = view
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	if err := r.attachPreviews(ctx, views, previewCap); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByIDForUpdate loads a comment and records its updated_at as the
// baseline for the next write on that id.
func (r *postgresCommentRepo) FindByIDForUpdate(ctx context.Context, id string) (*comments.Comment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM comments c
		WHERE c.id = $1
	`, commentColumns)

	var row commentRow
	err := r.resolver.Conn(ctx).QueryRowContext(ctx, query, id).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "invalid_text_representation" {
			return nil, nil
		}
		return nil, translateError("load comment", err)
	}

	r.baselines.record(row.id, row.updatedAt)
	return row.toComment(), nil
}

// reload re-reads a comment after a write so the caller gets the stored
// timestamps and a fresh baseline.
func (r *postgresCommentRepo) reload(ctx context.Context, id string) (*comments.Comment, error) {
	c, err := r.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, comments.ErrCommentNotFound
	}
	return c, nil
}

// Insert stores a new comment. A reply is only accepted when its parent is a
// comment on the same post.
func (r *postgresCommentRepo) Insert(ctx context.Context, comment *comments.Comment) (*comments.Comment, error) {
	if comment == nil {
		return nil, comments.NewValidationError("comment", "required")
	}
	if comment.Body == nil {
		return nil, comments.ErrContentEmpty
	}
	if comment.PostID == "" {
		return nil, comments.NewValidationError("postId", "required")
	}
	if comment.AuthorID == "" {
		return nil, comments.NewValidationError("authorId", "required")
	}

	id := comment.ID
	if id == "" {
		generated, err := r.ids.NewID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate comment id: %w", err)
		}
		id = generated
	}

	createdAt := comment.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.clock.Now()
	}

	query := `
		INSERT INTO comments (id, post_id, author_id, body, parent_comment_id, is_deleted, created_at, updated_at)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::uuid, FALSE, $6::timestamptz, $6::timestamptz
		WHERE $5::uuid IS NULL
		   OR EXISTS (SELECT 1 FROM comments p WHERE p.id = $5::uuid AND p.post_id = $2::uuid)
	`

	var parentID interface{}
	if comment.ParentCommentID != nil {
		parentID = *comment.ParentCommentID
	}

	result, err := r.resolver.Conn(ctx).ExecContext(ctx, query,
		id, comment.PostID, comment.AuthorID, *comment.Body, parentID, createdAt.UTC())
	if err != nil {
		return nil, translateError("insert comment", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check insert result: %w", err)
	}
	if affected == 0 {
		return nil, comments.ErrInvalidReply
	}

	return r.reload(ctx, id)
}

// Update writes the comment's body. A nil Body leaves the stored body unchanged
// and only bumps updated_at.
func (r *postgresCommentRepo) Update(ctx context.Context, comment *comments.Comment) (*comments.Comment, error) {
	if comment == nil || comment.ID == "" {
		return nil, comments.NewValidationError("id", "required")
	}

	query := `
		UPDATE comments
		SET body = COALESCE($1, body), ` + touchUpdatedAt + `
		WHERE id = $2 AND updated_at = $3
	`
	if err := r.guard.exec(ctx, r.resolver.Conn(ctx), "update", comment.ID, comment, query, comment.Body); err != nil {
		return nil, err
	}
	return r.reload(ctx, comment.ID)
}

// SoftDelete marks a comment deleted; it stays in listings with its body hidden
func (r *postgresCommentRepo) SoftDelete(ctx context.Context, id string) (*comments.Comment, error) {
	query := `
		UPDATE comments
		SET is_deleted = TRUE, ` + touchUpdatedAt + `
		WHERE id = $1 AND updated_at = $2
	`
	if err := r.guard.exec(ctx, r.resolver.Conn(ctx), "soft_delete", id, nil, query); err != nil {
		return nil, err
	}
	return r.reload(ctx, id)
}

// Restore clears the deleted flag, making the stored body visible again
func (r *postgresCommentRepo) Restore(ctx context.Context, id string) (*comments.Comment, error) {
	query := `
		UPDATE comments
		SET is_deleted = FALSE, ` + touchUpdatedAt + `
		WHERE id = $1 AND updated_at = $2
	`
	if err := r.guard.exec(ctx, r.resolver.Conn(ctx), "restore", id, nil, query); err != nil {
		return nil, err
	}
	return r.reload(ctx, id)
}

// DeletePermanently removes a comment row; its replies cascade with it
func (r *postgresCommentRepo) DeletePermanently(ctx context.Context, id string) error {
	query := `DELETE FROM comments WHERE id = $1 AND updated_at = $2`
	return r.guard.exec(ctx, r.resolver.Conn(ctx), "delete_permanently", id, nil, query)
}
