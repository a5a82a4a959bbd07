// Package dataloader coalesces single-comment lookups made while serving one
// request into batched service calls, and memoizes their results for the rest
// of that request in a bounded LRU.
package dataloader

import (
	"Inkwell/internal/core/comments"
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"
	lru "github.com/hashicorp/golang-lru/v2"
)

type contextKey string

const key = contextKey("dataloaders")

// maxBatch matches the service's per-call id limit
const maxBatch = 100

// Loaders holds the per-request loaders
type Loaders struct {
	CommentByID *dataloader.Loader
}

// NewLoaders creates loaders backed by service. cacheSize bounds how many
// distinct comments one request may keep memoized.
func NewLoaders(service comments.Service, cacheSize int) (*Loaders, error) {
	cache, err := newLRUCache(cacheSize)
	if err != nil {
		return nil, err
	}

	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()
		results := make([]*dataloader.Result, len(keys))

		views, err := service.GetComments(ctx, ids)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		for i, id := range ids {
			if view, ok := views[id]; ok {
				results[i] = &dataloader.Result{Data: view}
			} else {
				results[i] = &dataloader.Result{Error: comments.ErrCommentNotFound}
			}
		}
		return results
	}

	return &Loaders{
		CommentByID: dataloader.NewBatchedLoader(batchFn,
			dataloader.WithCache(cache),
			dataloader.WithBatchCapacity(maxBatch),
			dataloader.WithWait(time.Millisecond),
		),
	}, nil
}

// Middleware puts fresh loaders into every request's context
func Middleware(service comments.Service, cacheSize int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loaders, err := NewLoaders(service, cacheSize)
			if err != nil {
				log.Printf("Failed to create dataloaders: %v", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			ctx := context.WithValue(r.Context(), key, loaders)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// For extracts the loaders from the context; nil when Middleware did not run
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// LoadComment resolves one comment, batched with concurrent loads
func (l *Loaders) LoadComment(ctx context.Context, id string) (*comments.CommentView, error) {
	data, err := l.CommentByID.Load(ctx, dataloader.StringKey(id))()
	if err != nil {
		return nil, err
	}
	view, ok := data.(*comments.CommentView)
	if !ok {
		return nil, fmt.Errorf("dataloader: unexpected %T for comment %s", data, id)
	}
	return view, nil
}

// LoadComments resolves many comments in as few batches as possible.
// Ids that do not exist are left out of the result.
func (l *Loaders) LoadComments(ctx context.Context, ids []string) (map[string]*comments.CommentView, error) {
	keys := dataloader.NewKeysFromStrings(ids)
	data, errs := l.CommentByID.LoadMany(ctx, keys)()

	out := make(map[string]*comments.CommentView, len(ids))
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			if comments.IsNotFound(errs[i]) {
				continue
			}
			return nil, errs[i]
		}
		if view, ok := data[i].(*comments.CommentView); ok {
			out[id] = view
		}
	}
	return out, nil
}

// Forget drops a memoized comment so the next load reads it again
func (l *Loaders) Forget(ctx context.Context, id string) {
	l.CommentByID.Clear(ctx, dataloader.StringKey(id))
}

// lruCache is a bounded dataloader.Cache
type lruCache struct {
	cache *lru.Cache[string, dataloader.Thunk]
}

var _ dataloader.Cache = (*lruCache)(nil)

func newLRUCache(size int) (*lruCache, error) {
	cache, err := lru.New[string, dataloader.Thunk](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader cache: %w", err)
	}
	return &lruCache{cache: cache}, nil
}

func (c *lruCache) Get(_ context.Context, key dataloader.Key) (dataloader.Thunk, bool) {
	return c.cache.Get(key.String())
}

func (c *lruCache) Set(_ context.Context, key dataloader.Key, value dataloader.Thunk) {
	c.cache.Add(key.String(), value)
}

func (c *lruCache) Delete(_ context.Context, key dataloader.Key) bool {
	return c.cache.Remove(key.String())
}

func (c *lruCache) Clear() {
	c.cache.Purge()
}
