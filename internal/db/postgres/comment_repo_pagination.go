package postgres

import (
	"Inkwell/internal/core/comments"
	"context"
	"fmt"

	"github.com/lib/pq"
)

// sortOrders whitelists the ORDER BY direction and the matching keyset
// comparison for each sort; nothing user-supplied reaches the SQL text.
var sortOrders = map[comments.SortDirection]struct {
	order string
	cmp   string
}{
	comments.SortAsc:  {order: "ASC", cmp: ">"},
	comments.SortDesc: {order: "DESC", cmp: "<"},
}

// pageScope is the fixed part of a keyset listing: which rows belong to it
// and which cursors it accepts.
type pageScope struct {
	arg    interface{}
	filter string
	cursor comments.CursorScope
}

// keysetFilter continues strictly after the cursor row in the page's direction.
// The row-value comparison keeps (created_at, id) ties in a total order.
func keysetFilter(cmp string, tsParam, idParam int) string {
	return fmt.Sprintf("AND (c.created_at, c.id) %s ($%d::timestamptz, $%d::uuid)", cmp, tsParam, idParam)
}

// maxPagePrealloc bounds the capacity reserved up front for one page;
// larger pages grow as rows arrive.
const maxPagePrealloc = 128

// newPageBuffer reserves room for a page of limit rows plus the lookahead row
func newPageBuffer(limit int) []*comments.CommentView {
	return make([]*comments.CommentView, 0, min(limit, maxPagePrealloc-1)+1)
}

// trimPage drops the lookahead row fetched past limit and reports whether it existed
func trimPage(views []*comments.CommentView, limit int) ([]*comments.CommentView, bool) {
	if len(views) > limit {
		return views[:limit], true
	}
	return views, false
}

func (r *postgresCommentRepo) listPage(ctx context.Context, scope pageScope, opts comments.ListOptions) ([]*comments.CommentView, *string, error) {
	sort := opts.Sort
	if sort == "" {
		sort = comments.SortAsc
	}
	order, ok := sortOrders[sort]
	if !ok {
		return nil, nil, comments.NewValidationError("sort", fmt.Sprintf("unsupported sort %q", opts.Sort))
	}
	if opts.Limit < 1 {
		return nil, nil, comments.NewValidationError("limit", "must be positive")
	}

	args := []interface{}{scope.arg}
	keyset := ""
	if opts.Cursor != nil {
		cur, err := r.codec.Decode(*opts.Cursor, scope.cursor)
		if err != nil {
			return nil, nil, err
		}
		keyset = keysetFilter(order.cmp, len(args)+1, len(args)+2)
		args = append(args, cur.AfterTimestamp, cur.AfterID)
	}
	args = append(args, opts.Limit+1)

	query := fmt.Sprintf(`
		SELECT %s, %s
		FROM comments c
		WHERE %s
			%s
		ORDER BY c.created_at %s, c.id %s
		LIMIT $%d
	`, commentColumns, replyCountColumn, scope.filter, keyset, order.order, order.order, len(args))

	rows, err := r.resolver.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, translateError("list comments", err)
	}
	defer closeRows(rows)

	views := newPageBuffer(opts.Limit)
	for rows.Next() {
		var row viewRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		views = append(views, row.toView())
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating comments: %w", err)
	}

	views, hasMore := trimPage(views, opts.Limit)
	if !hasMore {
		return views, nil, nil
	}

	last := views[len(views)-1]
	next := r.codec.Encode(comments.Cursor{
		ParentID:       scope.cursor.ParentID,
		AfterTimestamp: last.CreatedAt,
		AfterID:        last.ID,
	})
	return views, &next, nil
}

// ListTopLevel lists a post's top-level comments, each with a reply preview
// when opts.PreviewCap > 0.
func (r *postgresCommentRepo) ListTopLevel(ctx context.Context, postID string, opts comments.TopLevelOptions) (*comments.TopLevelPage, error) {
	views, next, err := r.listPage(ctx, pageScope{
		filter: "c.post_id = $1 AND c.parent_comment_id IS NULL",
		arg:    postID,
		cursor: comments.TopLevelScope(),
	}, opts.ListOptions)
	if err != nil {
		return nil, err
	}

	if err := r.attachPreviews(ctx, views, opts.PreviewCap); err != nil {
		return nil, err
	}
	return &comments.TopLevelPage{Comments: views, NextCursor: next}, nil
}

// ListReplies lists the direct replies of one parent comment
func (r *postgresCommentRepo) ListReplies(ctx context.Context, parentID string, opts comments.ListOptions) (*comments.RepliesPage, error) {
	views, next, err := r.listPage(ctx, pageScope{
		filter: "c.parent_comment_id = $1",
		arg:    parentID,
		cursor: comments.RepliesScope(parentID),
	}, opts)
	if err != nil {
		return nil, err
	}
	return &comments.RepliesPage{Replies: views, NextCursor: next}, nil
}

// rankedReply is one row of the preview query: a reply with its position
// among its siblings and the size of the sibling window it was ranked in.
type rankedReply struct {
	view  *comments.CommentView
	rank  int
	total int
}

// ReplyPreviews fetches up to previewCap oldest replies for every parent in a
// single windowed query.
func (r *postgresCommentRepo) ReplyPreviews(ctx context.Context, parentIDs []string, previewCap int, cursor *string) (map[string]*comments.ReplyPreview, error) {
	if previewCap < 0 {
		return nil, comments.NewValidationError("previewCap", "must not be negative")
	}
	parents := dedupe(parentIDs)
	if cursor != nil && len(parents) != 1 {
		return nil, fmt.Errorf("%w: a preview cursor requires exactly one parent, got %d", comments.ErrCursorScopeMismatch, len(parents))
	}
	if len(parents) == 0 || previewCap == 0 {
		return make(map[string]*comments.ReplyPreview), nil
	}

	args := []interface{}{pq.Array(parents), previewCap}
	keyset := ""
	if cursor != nil {
		cur, err := r.codec.Decode(*cursor, comments.RepliesScope(parents[0]))
		if err != nil {
			return nil, err
		}
		keyset = keysetFilter(">", 3, 4)
		args = append(args, cur.AfterTimestamp, cur.AfterID)
	}

	query := fmt.Sprintf(`
		SELECT ranked.id, ranked.post_id, ranked.author_id, ranked.body,
			ranked.parent_comment_id, ranked.is_deleted, ranked.created_at, ranked.updated_at,
			(SELECT COUNT(*) FROM comments r WHERE r.parent_comment_id = ranked.id) AS reply_count,
			ranked.rn, ranked.total
		FROM (
			SELECT %s,
				ROW_NUMBER() OVER (PARTITION BY c.parent_comment_id ORDER BY c.created_at ASC, c.id ASC) AS rn,
				COUNT(*) OVER (PARTITION BY c.parent_comment_id) AS total
			FROM comments c
			WHERE c.parent_comment_id = ANY($1::uuid[])
				%s
		) ranked
		WHERE ranked.rn <= $2
		ORDER BY ranked.parent_comment_id, ranked.rn
	`, commentColumns, keyset)

	rows, err := r.resolver.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError("load reply previews", err)
	}
	defer closeRows(rows)

	var replies []rankedReply
	for rows.Next() {
		var row viewRow
		var rr rankedReply
		dest := append(row.dest(), &rr.rank, &rr.total)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan reply preview: %w", err)
		}
		rr.view = row.toView()
		replies = append(replies, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reply previews: %w", err)
	}

	return assemblePreviews(replies, previewCap, r.codec), nil
}

// assemblePreviews groups ranked replies by parent. Rows must arrive ordered by
// parent then rank. A parent whose window held more than previewCap replies
// gets a cursor positioned on its last shown reply.
func assemblePreviews(replies []rankedReply, previewCap int, codec *comments.CursorCodec) map[string]*comments.ReplyPreview {
	previews := make(map[string]*comments.ReplyPreview)
	for _, rr := range replies {
		if rr.rank > previewCap || rr.view.ParentCommentID == nil {
			continue
		}
		parentID := *rr.view.ParentCommentID

		preview, ok := previews[parentID]
		if !ok {
			preview = &comments.ReplyPreview{Replies: make([]*comments.CommentView, 0, previewCap)}
			previews[parentID] = preview
		}
		preview.Replies = append(preview.Replies, rr.view)

		if rr.total > previewCap && len(preview.Replies) == previewCap {
			next := codec.Encode(comments.Cursor{
				ParentID:       &parentID,
				AfterTimestamp: rr.view.CreatedAt,
				AfterID:        rr.view.ID,
			})
			preview.NextCursor = &next
		}
	}
	return previews
}

// attachPreviews fills Preview on every view. Views without replies get an
// empty preview without querying.
func (r *postgresCommentRepo) attachPreviews(ctx context.Context, views []*comments.CommentView, previewCap int) error {
	if previewCap <= 0 || len(views) == 0 {
		return nil
	}

	parentIDs := make([]string, 0, len(views))
	for _, v := range views {
		if v.HasReplies {
			parentIDs = append(parentIDs, v.ID)
		}
	}

	previews := map[string]*comments.ReplyPreview{}
	if len(parentIDs) > 0 {
		var err error
		previews, err = r.ReplyPreviews(ctx, parentIDs, previewCap, nil)
		if err != nil {
			return err
		}
	}

	for _, v := range views {
		if p, ok := previews[v.ID]; ok {
			v.Preview = p
		} else {
			v.Preview = comments.EmptyPreview()
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
