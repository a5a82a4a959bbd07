package postgres

import (
	"Inkwell/internal/core/comments"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testID(n int) string {
	return fmt.Sprintf("01890a5d-ac96-7b3e-9f3a-%012d", n)
}

func strPtr(s string) *string {
	return &s
}

func replyView(id, parent string, createdAt time.Time) *comments.CommentView {
	return &comments.CommentView{Comment: comments.Comment{
		ID:              id,
		ParentCommentID: strPtr(parent),
		CreatedAt:       createdAt,
	}}
}

func TestKeysetFilter(t *testing.T) {
	assert.Equal(t, "AND (c.created_at, c.id) > ($2::timestamptz, $3::uuid)", keysetFilter(">", 2, 3))
	assert.Equal(t, "AND (c.created_at, c.id) < ($3::timestamptz, $4::uuid)", keysetFilter("<", 3, 4))
}

func TestSortOrders(t *testing.T) {
	assert.Equal(t, "ASC", sortOrders[comments.SortAsc].order)
	assert.Equal(t, ">", sortOrders[comments.SortAsc].cmp)
	assert.Equal(t, "DESC", sortOrders[comments.SortDesc].order)
	assert.Equal(t, "<", sortOrders[comments.SortDesc].cmp)
	_, ok := sortOrders[comments.SortDirection("sideways")]
	assert.False(t, ok)
}

func TestTrimPage(t *testing.T) {
	views := make([]*comments.CommentView, 4)
	for i := range views {
		views[i] = &comments.CommentView{Comment: comments.Comment{ID: testID(i)}}
	}

	page, more := trimPage(views, 3)
	assert.True(t, more)
	assert.Len(t, page, 3)
	assert.Equal(t, testID(2), page[2].ID)

	page, more = trimPage(views[:3], 3)
	assert.False(t, more)
	assert.Len(t, page, 3)

	page, more = trimPage(nil, 3)
	assert.False(t, more)
	assert.Empty(t, page)
}

func TestAssemblePreviews(t *testing.T) {
	codec := comments.NewCursorCodec("")
	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	p1, p2 := testID(100), testID(200)

	// p1 has 5 replies ranked in a window of 5, p2 has 2
	replies := []rankedReply{
		{view: replyView(testID(1), p1, base), rank: 1, total: 5},
		{view: replyView(testID(2), p1, base.Add(time.Second)), rank: 2, total: 5},
		{view: replyView(testID(3), p1, base.Add(2*time.Second)), rank: 3, total: 5},
		{view: replyView(testID(4), p2, base), rank: 1, total: 2},
		{view: replyView(testID(5), p2, base.Add(time.Second)), rank: 2, total: 2},
	}

	previews := assemblePreviews(replies, 3, codec)
	require.Len(t, previews, 2)

	first := previews[p1]
	require.NotNil(t, first)
	require.Len(t, first.Replies, 3)
	assert.Equal(t, testID(1), first.Replies[0].ID)
	assert.Equal(t, testID(3), first.Replies[2].ID)
	require.NotNil(t, first.NextCursor)

	cur, err := codec.Decode(*first.NextCursor, comments.RepliesScope(p1))
	require.NoError(t, err)
	assert.Equal(t, testID(3), cur.AfterID)
	assert.True(t, cur.AfterTimestamp.Equal(base.Add(2*time.Second)))

	second := previews[p2]
	require.NotNil(t, second)
	assert.Len(t, second.Replies, 2)
	assert.Nil(t, second.NextCursor, "no cursor when everything fits")
}

func TestAssemblePreviews_ExactlyCap(t *testing.T) {
	codec := comments.NewCursorCodec("")
	base := time.Now().UTC()
	p := testID(100)

	previews := assemblePreviews([]rankedReply{
		{view: replyView(testID(1), p, base), rank: 1, total: 2},
		{view: replyView(testID(2), p, base), rank: 2, total: 2},
	}, 2, codec)

	require.Contains(t, previews, p)
	assert.Len(t, previews[p].Replies, 2)
	assert.Nil(t, previews[p].NextCursor)
}

func TestAssemblePreviews_DropsRowsPastCap(t *testing.T) {
	codec := comments.NewCursorCodec("")
	p := testID(100)
	now := time.Now().UTC()

	previews := assemblePreviews([]rankedReply{
		{view: replyView(testID(1), p, now), rank: 1, total: 3},
		{view: replyView(testID(2), p, now), rank: 2, total: 3},
	}, 1, codec)

	require.Len(t, previews[p].Replies, 1)
	assert.Equal(t, testID(1), previews[p].Replies[0].ID)
	assert.NotNil(t, previews[p].NextCursor)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, dedupe([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, dedupe(nil))
}

func TestNewPageBuffer_BoundsPreallocation(t *testing.T) {
	assert.Equal(t, 3, cap(newPageBuffer(2)))
	assert.Equal(t, maxPagePrealloc, cap(newPageBuffer(maxPagePrealloc-1)))

	var buf []*comments.CommentView
	require.NotPanics(t, func() { buf = newPageBuffer(1 << 45) })
	assert.Empty(t, buf)
	assert.Equal(t, maxPagePrealloc, cap(buf))
}

func TestReplyPreviews_CursorNeedsExactlyOneParent(t *testing.T) {
	codec := comments.NewCursorCodec("")
	// both cases are rejected before any query is issued
	repo := newCommentRepo(nil, codec, nil, nil)
	cursor := codec.Encode(comments.Cursor{
		ParentID:       strPtr(testID(1)),
		AfterTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		AfterID:        testID(2),
	})

	for _, parents := range [][]string{{testID(1), testID(3)}, {}} {
		_, err := repo.ReplyPreviews(context.Background(), parents, 3, &cursor)
		require.Error(t, err)
		assert.ErrorIs(t, err, comments.ErrCursorScopeMismatch)
		assert.True(t, comments.IsValidationError(err))
	}
}

func TestViewRow_ToViewSetsHasReplies(t *testing.T) {
	row := viewRow{commentRow: commentRow{id: testID(1), postID: testID(9), authorID: "alice"}, replyCount: 2}
	view := row.toView()
	assert.Equal(t, 2, view.ReplyCount)
	assert.True(t, view.HasReplies)

	row.replyCount = 0
	assert.False(t, row.toView().HasReplies)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"hasReplies":true`)
	assert.Contains(t, string(data), `"replyCount":2`)
}
