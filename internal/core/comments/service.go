package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

const (
	// maxCommentGraphemes is the maximum length for comment content in graphemes
	maxCommentGraphemes = 10000

	// maxBatchIDs bounds GetComments lookups
	maxBatchIDs = 100
)

// Limits bounds page and preview sizes accepted by the service
type Limits struct {
	DefaultLimit      int
	MaxLimit          int
	DefaultPreviewCap int
	MaxPreviewCap     int
}

// DefaultLimits returns the limits used when none are configured
func DefaultLimits() Limits {
	return Limits{
		DefaultLimit:      50,
		MaxLimit:          100,
		DefaultPreviewCap: 3,
		MaxPreviewCap:     10,
	}
}

// Service defines the business logic interface for comment operations
type Service interface {
	// ListTopLevel lists a post's top-level comments with reply previews
	ListTopLevel(ctx context.Context, req *ListTopLevelRequest) (*TopLevelPage, error)

	// ListReplies lists one comment's direct replies, oldest first by default
	ListReplies(ctx context.Context, req *ListRepliesRequest) (*RepliesPage, error)

	// GetComment returns one comment with a bounded reply preview
	GetComment(ctx context.Context, id string) (*CommentView, error)

	// GetComments returns many comments by id; unknown ids are absent from the map
	GetComments(ctx context.Context, ids []string) (map[string]*CommentView, error)

	// CreateComment creates a new comment or reply
	CreateComment(ctx context.Context, req *CreateCommentRequest) (*Comment, error)

	// EditComment replaces a comment's body; only its author may edit it
	EditComment(ctx context.Context, req *EditCommentRequest) (*Comment, error)

	// DeleteComment soft-deletes a comment
	DeleteComment(ctx context.Context, actorID, id string) (*Comment, error)

	// RestoreComment reverses a soft delete
	RestoreComment(ctx context.Context, actorID, id string) (*Comment, error)

	// PurgeComment removes a comment and all replies below it for good
	PurgeComment(ctx context.Context, actorID, id string) error
}

type commentService struct {
	store  Store
	logger *slog.Logger
	limits Limits
}

// NewCommentService creates a new comment service instance
func NewCommentService(store Store, limits Limits, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &commentService{
		store:  store,
		limits: limits,
		logger: logger,
	}
}

func (s *commentService) ListTopLevel(ctx context.Context, req *ListTopLevelRequest) (*TopLevelPage, error) {
	if err := validateID("postId", req.PostID); err != nil {
		return nil, err
	}
	opts, err := s.listOptions(req.Cursor, req.Sort, req.Limit)
	if err != nil {
		return nil, err
	}
	previewCap, err := s.previewCap(req.PreviewCap)
	if err != nil {
		return nil, err
	}

	repo, release := s.store.Open()
	defer release()

	page, err := repo.ListTopLevel(ctx, req.PostID, TopLevelOptions{ListOptions: opts, PreviewCap: previewCap})
	if err != nil {
		return nil, s.logFailure("list top-level comments", req.PostID, err)
	}
	return page, nil
}

func (s *commentService) ListReplies(ctx context.Context, req *ListRepliesRequest) (*RepliesPage, error) {
	if err := validateID("parentId", req.ParentID); err != nil {
		return nil, err
	}
	opts, err := s.listOptions(req.Cursor, req.Sort, req.Limit)
	if err != nil {
		return nil, err
	}

	repo, release := s.store.Open()
	defer release()

	if _, err := repo.GetByID(ctx, req.ParentID, 0); err != nil {
		return nil, s.logFailure("load parent comment", req.ParentID, err)
	}

	page, err := repo.ListReplies(ctx, req.ParentID, opts)
	if err != nil {
		return nil, s.logFailure("list replies", req.ParentID, err)
	}
	return page, nil
}

func (s *commentService) GetComment(ctx context.Context, id string) (*CommentView, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	repo, release := s.store.Open()
	defer release()

	view, err := repo.GetByID(ctx, id, s.limits.DefaultPreviewCap)
	if err != nil {
		return nil, s.logFailure("get comment", id, err)
	}
	return view, nil
}

func (s *commentService) GetComments(ctx context.Context, ids []string) (map[string]*CommentView, error) {
	if len(ids) > maxBatchIDs {
		return nil, NewValidationError("ids", fmt.Sprintf("at most %d ids per request", maxBatchIDs))
	}
	for _, id := range ids {
		if err := validateID("ids", id); err != nil {
			return nil, err
		}
	}

	repo, release := s.store.Open()
	defer release()

	views, err := repo.GetByIDsBatch(ctx, ids, s.limits.DefaultPreviewCap)
	if err != nil {
		return nil, s.logFailure("batch get comments", strings.Join(ids, ","), err)
	}
	return views, nil
}

func (s *commentService) CreateComment(ctx context.Context, req *CreateCommentRequest) (*Comment, error) {
	if req.AuthorID == "" {
		return nil, ErrNotAuthorized
	}
	if err := validateID("postId", req.PostID); err != nil {
		return nil, err
	}
	body, err := validateBody(req.Body)
	if err != nil {
		return nil, err
	}
	if req.ParentCommentID != nil {
		if err := validateID("parentCommentId", *req.ParentCommentID); err != nil {
			return nil, err
		}
	}

	var created *Comment
	err = s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if req.ParentCommentID != nil {
			parent, err := repo.GetByID(ctx, *req.ParentCommentID, 0)
			if errors.Is(err, ErrCommentNotFound) {
				return ErrParentNotFound
			}
			if err != nil {
				return err
			}
			if parent.PostID != req.PostID || parent.IsDeleted {
				return ErrInvalidReply
			}
		}

		var err error
		created, err = repo.Insert(ctx, &Comment{
			PostID:          req.PostID,
			AuthorID:        req.AuthorID,
			Body:            &body,
			ParentCommentID: req.ParentCommentID,
		})
		return err
	})
	if err != nil {
		return nil, s.logFailure("create comment", req.PostID, err)
	}

	s.logger.Info("comment created",
		"id", created.ID,
		"post", created.PostID,
		"author", created.AuthorID,
		"parent", created.ParentCommentID)
	return created, nil
}

func (s *commentService) EditComment(ctx context.Context, req *EditCommentRequest) (*Comment, error) {
	if err := validateID("id", req.ID); err != nil {
		return nil, err
	}
	body, err := validateBody(req.Body)
	if err != nil {
		return nil, err
	}

	var updated *Comment
	err = s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := s.loadOwned(ctx, repo, req.ActorID, req.ID)
		if err != nil {
			return err
		}
		if existing.IsDeleted {
			return ErrCommentDeleted
		}

		existing.Body = &body
		updated, err = repo.Update(ctx, existing)
		return err
	})
	if err != nil {
		return nil, s.logFailure("edit comment", req.ID, err)
	}

	s.logger.Info("comment updated", "id", updated.ID, "author", updated.AuthorID)
	return updated, nil
}

func (s *commentService) DeleteComment(ctx context.Context, actorID, id string) (*Comment, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	var deleted *Comment
	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := s.loadOwned(ctx, repo, actorID, id)
		if err != nil {
			return err
		}
		if existing.IsDeleted {
			deleted = existing
			return nil
		}
		deleted, err = repo.SoftDelete(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.logFailure("delete comment", id, err)
	}

	s.logger.Info("comment deleted", "id", id, "author", actorID)
	return deleted, nil
}

func (s *commentService) RestoreComment(ctx context.Context, actorID, id string) (*Comment, error) {
	if err := validateID("id", id); err != nil {
		return nil, err
	}

	var restored *Comment
	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := s.loadOwned(ctx, repo, actorID, id)
		if err != nil {
			return err
		}
		if !existing.IsDeleted {
			restored = existing
			return nil
		}
		restored, err = repo.Restore(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.logFailure("restore comment", id, err)
	}

	s.logger.Info("comment restored", "id", id, "author", actorID)
	return restored, nil
}

func (s *commentService) PurgeComment(ctx context.Context, actorID, id string) error {
	if err := validateID("id", id); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := s.loadOwned(ctx, repo, actorID, id); err != nil {
			return err
		}
		return repo.DeletePermanently(ctx, id)
	})
	if err != nil {
		return s.logFailure("purge comment", id, err)
	}

	s.logger.Info("comment purged", "id", id, "author", actorID)
	return nil
}

// loadOwned loads a comment for writing and checks the actor wrote it
func (s *commentService) loadOwned(ctx context.Context, repo Repository, actorID, id string) (*Comment, error) {
	if actorID == "" {
		return nil, ErrNotAuthorized
	}
	existing, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCommentNotFound
	}
	if existing.AuthorID != actorID {
		return nil, ErrNotAuthorized
	}
	return existing, nil
}

func (s *commentService) listOptions(cursor *string, sort string, limit int) (ListOptions, error) {
	dir, err := ParseSortDirection(sort)
	if err != nil {
		return ListOptions{}, err
	}

	switch {
	case limit < 0:
		return ListOptions{}, NewValidationError("limit", "must not be negative")
	case limit == 0:
		limit = s.limits.DefaultLimit
	case limit > s.limits.MaxLimit:
		limit = s.limits.MaxLimit
	}

	return ListOptions{Cursor: cursor, Sort: dir, Limit: limit}, nil
}

func (s *commentService) previewCap(requested *int) (int, error) {
	if requested == nil {
		return s.limits.DefaultPreviewCap, nil
	}
	if *requested < 0 {
		return 0, NewValidationError("previewCap", "must not be negative")
	}
	if *requested > s.limits.MaxPreviewCap {
		return s.limits.MaxPreviewCap, nil
	}
	return *requested, nil
}

// logFailure logs errors that are not ordinary client outcomes and returns err.
// Misuse is a bug in the calling code and is always logged at error level.
func (s *commentService) logFailure(op, subject string, err error) error {
	switch {
	case IsMisuse(err):
		s.logger.Error("comment repository misuse", "op", op, "subject", subject, "error", err)
	case IsConflict(err):
		s.logger.Warn("comment write conflict", "op", op, "subject", subject, "error", err)
	case IsNotFound(err), IsValidationError(err), errors.Is(err, ErrNotAuthorized), errors.Is(err, ErrCommentDeleted):
	default:
		s.logger.Error("comment operation failed", "op", op, "subject", subject, "error", err)
	}
	return err
}

func validateID(field, id string) error {
	if id == "" {
		return NewValidationError(field, "required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return NewValidationError(field, "must be a UUID")
	}
	return nil
}

func validateBody(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", ErrContentEmpty
	}
	if uniseg.GraphemeClusterCount(body) > maxCommentGraphemes {
		return "", ErrContentTooLong
	}
	return body, nil
}
