package postgres

import (
	"Inkwell/internal/core/comments"
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// systemClock stamps inserts with the wall clock in UTC
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// uuidV7Generator issues time-ordered ids
type uuidV7Generator struct{}

func (uuidV7Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// CommentStore hands out comment repositories bound to one unit of work:
// a request (Open) or a transaction (InTx).
type CommentStore struct {
	resolver *Resolver
	codec    *comments.CursorCodec
	clock    comments.Clock
	ids      comments.IDGenerator
}

var _ comments.Store = (*CommentStore)(nil)

// StoreOption configures a CommentStore
type StoreOption func(*CommentStore)

// WithClock overrides the insert-time clock
func WithClock(clock comments.Clock) StoreOption {
	return func(s *CommentStore) {
		s.clock = clock
	}
}

// WithIDGenerator overrides the id source for inserts
func WithIDGenerator(ids comments.IDGenerator) StoreOption {
	return func(s *CommentStore) {
		s.ids = ids
	}
}

// NewCommentStore creates a store over a connection pool
func NewCommentStore(db *sql.DB, codec *comments.CursorCodec, opts ...StoreOption) *CommentStore {
	s := &CommentStore{
		resolver: NewResolver(db),
		codec:    codec,
		clock:    systemClock{},
		ids:      uuidV7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a repository with a fresh baseline scope. Calls resolve their
// connection from the context they are given, so the repository joins a
// transaction carried there.
func (s *CommentStore) Open() (comments.Repository, func()) {
	repo := newCommentRepo(s.resolver, s.codec, s.clock, s.ids)
	return repo, repo.baselines.clear
}

// InTx runs fn in a transaction with a repository scoped to it. Baselines
// recorded inside fn are dropped when InTx returns.
func (s *CommentStore) InTx(ctx context.Context, fn func(ctx context.Context, repo comments.Repository) error) error {
	repo, release := s.Open()
	defer release()

	return s.resolver.WithTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx, repo)
	})
}
