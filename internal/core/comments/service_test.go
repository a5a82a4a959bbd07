package comments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock implementations for testing

// mockCommentRepo is an in-memory Repository with optional hooks per method
type mockCommentRepo struct {
	comments          map[string]*Comment
	listTopLevelFunc  func(ctx context.Context, postID string, opts TopLevelOptions) (*TopLevelPage, error)
	listRepliesFunc   func(ctx context.Context, parentID string, opts ListOptions) (*RepliesPage, error)
	updateFunc        func(ctx context.Context, c *Comment) (*Comment, error)
	getByIDPreviewCap int
	calls             []string
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{comments: make(map[string]*Comment)}
}

func (m *mockCommentRepo) add(c *Comment) *Comment {
	m.comments[c.ID] = c
	return c
}

func (m *mockCommentRepo) ListTopLevel(ctx context.Context, postID string, opts TopLevelOptions) (*TopLevelPage, error) {
	m.calls = append(m.calls, "ListTopLevel")
	if m.listTopLevelFunc != nil {
		return m.listTopLevelFunc(ctx, postID, opts)
	}
	return &TopLevelPage{Comments: []*CommentView{}}, nil
}

func (m *mockCommentRepo) ListReplies(ctx context.Context, parentID string, opts ListOptions) (*RepliesPage, error) {
	m.calls = append(m.calls, "ListReplies")
	if m.listRepliesFunc != nil {
		return m.listRepliesFunc(ctx, parentID, opts)
	}
	return &RepliesPage{Replies: []*CommentView{}}, nil
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id string, previewCap int) (*CommentView, error) {
	m.calls = append(m.calls, "GetByID")
	m.getByIDPreviewCap = previewCap
	c, ok := m.comments[id]
	if !ok {
		return nil, ErrCommentNotFound
	}
	return &CommentView{Comment: *c}, nil
}

func (m *mockCommentRepo) GetByIDsBatch(ctx context.Context, ids []string, previewCap int) (map[string]*CommentView, error) {
	m.calls = append(m.calls, "GetByIDsBatch")
	out := make(map[string]*CommentView)
	for _, id := range ids {
		if c, ok := m.comments[id]; ok {
			out[id] = &CommentView{Comment: *c}
		}
	}
	return out, nil
}

func (m *mockCommentRepo) ReplyPreviews(ctx context.Context, parentIDs []string, previewCap int, cursor *string) (map[string]*ReplyPreview, error) {
	return map[string]*ReplyPreview{}, nil
}

func (m *mockCommentRepo) FindByIDForUpdate(ctx context.Context, id string) (*Comment, error) {
	m.calls = append(m.calls, "FindByIDForUpdate")
	c, ok := m.comments[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *mockCommentRepo) Insert(ctx context.Context, c *Comment) (*Comment, error) {
	m.calls = append(m.calls, "Insert")
	cp := *c
	if cp.ID == "" {
		cp.ID = testUUID(99)
	}
	m.comments[cp.ID] = &cp
	return &cp, nil
}

func (m *mockCommentRepo) Update(ctx context.Context, c *Comment) (*Comment, error) {
	m.calls = append(m.calls, "Update")
	if m.updateFunc != nil {
		return m.updateFunc(ctx, c)
	}
	cp := *c
	m.comments[c.ID] = &cp
	return &cp, nil
}

func (m *mockCommentRepo) SoftDelete(ctx context.Context, id string) (*Comment, error) {
	m.calls = append(m.calls, "SoftDelete")
	c := m.comments[id]
	c.IsDeleted = true
	c.Body = nil
	return c, nil
}

func (m *mockCommentRepo) Restore(ctx context.Context, id string) (*Comment, error) {
	m.calls = append(m.calls, "Restore")
	c := m.comments[id]
	c.IsDeleted = false
	body := "restored"
	c.Body = &body
	return c, nil
}

func (m *mockCommentRepo) DeletePermanently(ctx context.Context, id string) error {
	m.calls = append(m.calls, "DeletePermanently")
	delete(m.comments, id)
	return nil
}

// mockStore hands out the same mock repository for every scope
type mockStore struct {
	repo     *mockCommentRepo
	opened   int
	released int
	txs      int
}

func (s *mockStore) Open() (Repository, func()) {
	s.opened++
	return s.repo, func() { s.released++ }
}

func (s *mockStore) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	s.txs++
	return fn(ctx, s.repo)
}

func testUUID(n int) string {
	return fmt.Sprintf("01890a5d-ac96-7b3e-9f3a-%012d", n)
}

func newTestService(repo *mockCommentRepo) (Service, *mockStore, *bytes.Buffer) {
	store := &mockStore{repo: repo}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	return NewCommentService(store, DefaultLimits(), logger), store, &logs
}

func intPtr(i int) *int {
	return &i
}

func TestListTopLevel_AppliesDefaultsAndClamps(t *testing.T) {
	repo := newMockCommentRepo()
	var got TopLevelOptions
	repo.listTopLevelFunc = func(ctx context.Context, postID string, opts TopLevelOptions) (*TopLevelPage, error) {
		got = opts
		return &TopLevelPage{Comments: []*CommentView{}}, nil
	}
	svc, store, _ := newTestService(repo)

	_, err := svc.ListTopLevel(context.Background(), &ListTopLevelRequest{PostID: testUUID(1)})
	require.NoError(t, err)
	assert.Equal(t, 50, got.Limit)
	assert.Equal(t, SortAsc, got.Sort)
	assert.Equal(t, 3, got.PreviewCap)
	assert.Equal(t, store.opened, store.released, "read scope released")

	_, err = svc.ListTopLevel(context.Background(), &ListTopLevelRequest{
		PostID:     testUUID(1),
		Limit:      1000,
		Sort:       "DESC",
		PreviewCap: intPtr(500),
	})
	require.NoError(t, err)
	assert.Equal(t, 100, got.Limit)
	assert.Equal(t, SortDesc, got.Sort)
	assert.Equal(t, 10, got.PreviewCap)

	_, err = svc.ListTopLevel(context.Background(), &ListTopLevelRequest{PostID: testUUID(1), PreviewCap: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, got.PreviewCap, "explicit zero disables previews")
}

func TestListTopLevel_Validation(t *testing.T) {
	svc, _, _ := newTestService(newMockCommentRepo())

	tests := []struct {
		req  *ListTopLevelRequest
		name string
	}{
		{name: "missing post", req: &ListTopLevelRequest{}},
		{name: "post not uuid", req: &ListTopLevelRequest{PostID: "abc"}},
		{name: "bad sort", req: &ListTopLevelRequest{PostID: testUUID(1), Sort: "hot"}},
		{name: "negative limit", req: &ListTopLevelRequest{PostID: testUUID(1), Limit: -1}},
		{name: "negative preview", req: &ListTopLevelRequest{PostID: testUUID(1), PreviewCap: intPtr(-2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListTopLevel(context.Background(), tt.req)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}
}

func TestListReplies_ParentMustExist(t *testing.T) {
	repo := newMockCommentRepo()
	parent := repo.add(&Comment{ID: testUUID(1), PostID: testUUID(50)})
	svc, _, _ := newTestService(repo)

	_, err := svc.ListReplies(context.Background(), &ListRepliesRequest{ParentID: testUUID(2)})
	assert.ErrorIs(t, err, ErrCommentNotFound)

	page, err := svc.ListReplies(context.Background(), &ListRepliesRequest{ParentID: parent.ID})
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Contains(t, repo.calls, "ListReplies")
}

func TestGetComment_UsesDefaultPreviewCap(t *testing.T) {
	repo := newMockCommentRepo()
	repo.add(&Comment{ID: testUUID(1)})
	svc, _, _ := newTestService(repo)

	view, err := svc.GetComment(context.Background(), testUUID(1))
	require.NoError(t, err)
	assert.Equal(t, testUUID(1), view.ID)
	assert.Equal(t, 3, repo.getByIDPreviewCap)

	_, err = svc.GetComment(context.Background(), "nope")
	assert.True(t, IsValidationError(err))
}

func TestGetComments_Batch(t *testing.T) {
	repo := newMockCommentRepo()
	repo.add(&Comment{ID: testUUID(1)})
	repo.add(&Comment{ID: testUUID(2)})
	svc, _, _ := newTestService(repo)

	views, err := svc.GetComments(context.Background(), []string{testUUID(1), testUUID(2), testUUID(3)})
	require.NoError(t, err)
	assert.Len(t, views, 2)

	tooMany := make([]string, maxBatchIDs+1)
	for i := range tooMany {
		tooMany[i] = testUUID(i)
	}
	_, err = svc.GetComments(context.Background(), tooMany)
	assert.True(t, IsValidationError(err))
}

func TestCreateComment(t *testing.T) {
	postID := testUUID(50)
	otherPost := testUUID(51)

	t.Run("top-level", func(t *testing.T) {
		repo := newMockCommentRepo()
		svc, store, _ := newTestService(repo)

		c, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
			PostID: postID, AuthorID: "alice", Body: "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, "hello", *c.Body)
		assert.Equal(t, "alice", c.AuthorID)
		assert.True(t, c.IsTopLevel())
		assert.Equal(t, 1, store.txs)
	})

	t.Run("reply on same post", func(t *testing.T) {
		repo := newMockCommentRepo()
		parent := repo.add(&Comment{ID: testUUID(1), PostID: postID})
		svc, _, _ := newTestService(repo)

		c, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
			PostID: postID, AuthorID: "bob", Body: "reply", ParentCommentID: &parent.ID,
		})
		require.NoError(t, err)
		require.NotNil(t, c.ParentCommentID)
		assert.Equal(t, parent.ID, *c.ParentCommentID)
	})

	t.Run("reply across posts rejected", func(t *testing.T) {
		repo := newMockCommentRepo()
		parent := repo.add(&Comment{ID: testUUID(1), PostID: otherPost})
		svc, _, _ := newTestService(repo)

		_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
			PostID: postID, AuthorID: "bob", Body: "reply", ParentCommentID: &parent.ID,
		})
		assert.ErrorIs(t, err, ErrInvalidReply)
		assert.NotContains(t, repo.calls, "Insert")
	})

	t.Run("reply to deleted comment rejected", func(t *testing.T) {
		repo := newMockCommentRepo()
		parent := repo.add(&Comment{ID: testUUID(1), PostID: postID, IsDeleted: true})
		svc, _, _ := newTestService(repo)

		_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
			PostID: postID, AuthorID: "bob", Body: "reply", ParentCommentID: &parent.ID,
		})
		assert.ErrorIs(t, err, ErrInvalidReply)
	})

	t.Run("missing parent", func(t *testing.T) {
		svc, _, _ := newTestService(newMockCommentRepo())
		missing := testUUID(7)

		_, err := svc.CreateComment(context.Background(), &CreateCommentRequest{
			PostID: postID, AuthorID: "bob", Body: "reply", ParentCommentID: &missing,
		})
		assert.ErrorIs(t, err, ErrParentNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, _ := newTestService(newMockCommentRepo())
		ctx := context.Background()

		_, err := svc.CreateComment(ctx, &CreateCommentRequest{PostID: postID, Body: "x"})
		assert.ErrorIs(t, err, ErrNotAuthorized)

		_, err = svc.CreateComment(ctx, &CreateCommentRequest{PostID: postID, AuthorID: "a", Body: "   "})
		assert.ErrorIs(t, err, ErrContentEmpty)

		_, err = svc.CreateComment(ctx, &CreateCommentRequest{PostID: postID, AuthorID: "a", Body: strings.Repeat("a", maxCommentGraphemes+1)})
		assert.ErrorIs(t, err, ErrContentTooLong)

		// combining sequences count as one grapheme each
		_, err = svc.CreateComment(ctx, &CreateCommentRequest{PostID: postID, AuthorID: "a", Body: strings.Repeat("e\u0301", maxCommentGraphemes)})
		assert.NoError(t, err)
	})
}

func TestEditComment(t *testing.T) {
	id := testUUID(1)
	original := "original"

	t.Run("author edits", func(t *testing.T) {
		repo := newMockCommentRepo()
		repo.add(&Comment{ID: id, AuthorID: "alice", Body: &original})
		svc, _, _ := newTestService(repo)

		c, err := svc.EditComment(context.Background(), &EditCommentRequest{ID: id, ActorID: "alice", Body: "edited"})
		require.NoError(t, err)
		assert.Equal(t, "edited", *c.Body)
		assert.Equal(t, []string{"FindByIDForUpdate", "Update"}, repo.calls, "load precedes write")
	})

	t.Run("other user rejected", func(t *testing.T) {
		repo := newMockCommentRepo()
		repo.add(&Comment{ID: id, AuthorID: "alice", Body: &original})
		svc, _, _ := newTestService(repo)

		_, err := svc.EditComment(context.Background(), &EditCommentRequest{ID: id, ActorID: "mallory", Body: "x"})
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.NotContains(t, repo.calls, "Update")
	})

	t.Run("deleted comment rejected", func(t *testing.T) {
		repo := newMockCommentRepo()
		repo.add(&Comment{ID: id, AuthorID: "alice", IsDeleted: true})
		svc, _, _ := newTestService(repo)

		_, err := svc.EditComment(context.Background(), &EditCommentRequest{ID: id, ActorID: "alice", Body: "x"})
		assert.ErrorIs(t, err, ErrCommentDeleted)
	})

	t.Run("missing comment", func(t *testing.T) {
		svc, _, _ := newTestService(newMockCommentRepo())
		_, err := svc.EditComment(context.Background(), &EditCommentRequest{ID: id, ActorID: "alice", Body: "x"})
		assert.ErrorIs(t, err, ErrCommentNotFound)
	})

	t.Run("conflict surfaces and is logged as warning", func(t *testing.T) {
		repo := newMockCommentRepo()
		repo.add(&Comment{ID: id, AuthorID: "alice", Body: &original})
		repo.updateFunc = func(ctx context.Context, c *Comment) (*Comment, error) {
			return nil, &ConcurrencyConflictError{Op: "update", ID: c.ID, Comment: c}
		}
		svc, _, logs := newTestService(repo)

		_, err := svc.EditComment(context.Background(), &EditCommentRequest{ID: id, ActorID: "alice", Body: "x"})
		assert.ErrorIs(t, err, ErrConcurrencyConflict)
		assert.True(t, IsConflict(err))
		assert.Contains(t, logs.String(), "level=WARN")
	})

	t.Run("misuse is logged at error level", func(t *testing.T) {
		repo := newMockCommentRepo()
		repo.add(&Comment{ID: id, AuthorID: "alice", Body: &original})
		repo.updateFunc = func(ctx context.Context, c *Comment) (*Comment, error) {
			return nil, &RepositoryMisuseError{Op: "update", ID: c.ID}
		}
		svc, _, logs := newTestService(repo)

		_, err := svc.EditComment(context.Background(), &EditCommentRequest{ID: id, ActorID: "alice", Body: "x"})
		assert.True(t, IsMisuse(err))
		assert.Contains(t, logs.String(), "level=ERROR")
		assert.Contains(t, logs.String(), "comment repository misuse")
	})
}

func TestDeleteAndRestoreComment(t *testing.T) {
	id := testUUID(1)
	body := "text"
	repo := newMockCommentRepo()
	repo.add(&Comment{ID: id, AuthorID: "alice", Body: &body})
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.DeleteComment(ctx, "mallory", id)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	deleted, err := svc.DeleteComment(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, deleted.IsDeleted)
	assert.Nil(t, deleted.Body)

	repo.calls = nil
	again, err := svc.DeleteComment(ctx, "alice", id)
	require.NoError(t, err, "deleting twice is a no-op")
	assert.True(t, again.IsDeleted)
	assert.NotContains(t, repo.calls, "SoftDelete")

	restored, err := svc.RestoreComment(ctx, "alice", id)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)

	repo.calls = nil
	_, err = svc.RestoreComment(ctx, "alice", id)
	require.NoError(t, err)
	assert.NotContains(t, repo.calls, "Restore")
}

func TestPurgeComment(t *testing.T) {
	id := testUUID(1)
	repo := newMockCommentRepo()
	repo.add(&Comment{ID: id, AuthorID: "alice"})
	svc, _, _ := newTestService(repo)
	ctx := context.Background()

	assert.ErrorIs(t, svc.PurgeComment(ctx, "", id), ErrNotAuthorized)
	assert.ErrorIs(t, svc.PurgeComment(ctx, "bob", id), ErrNotAuthorized)
	require.NoError(t, svc.PurgeComment(ctx, "alice", id))
	assert.ErrorIs(t, svc.PurgeComment(ctx, "alice", id), ErrCommentNotFound)
}

func TestErrorHelpers(t *testing.T) {
	conflict := &ConcurrencyConflictError{Op: "update", ID: "x"}
	assert.True(t, errors.Is(conflict, ErrConcurrencyConflict))
	assert.Contains(t, conflict.Error(), "update comment x")

	misuse := &RepositoryMisuseError{Op: "restore", ID: "y"}
	assert.True(t, IsMisuse(misuse))
	assert.False(t, IsConflict(misuse))
	assert.Contains(t, misuse.Error(), "restore(y)")

	assert.True(t, IsNotFound(ErrParentNotFound))
	assert.True(t, IsValidationError(NewValidationError("f", "m")))
	assert.True(t, IsValidationError(ErrCursorScopeMismatch))
}
