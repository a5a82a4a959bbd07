package comments

import (
	"Inkwell/internal/core/comments"
	"Inkwell/internal/dataloader"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// GetCommentHandler serves single and batched comment lookups. Lookups go
// through the request's dataloader when one is installed.
type GetCommentHandler struct {
	service comments.Service
}

// NewGetCommentHandler creates a new handler for comment lookups
func NewGetCommentHandler(service comments.Service) *GetCommentHandler {
	return &GetCommentHandler{
		service: service,
	}
}

// HandleGet returns one comment with a bounded reply preview
// GET /api/comments/{commentID}
func (h *GetCommentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "commentID")

	var (
		view *comments.CommentView
		err  error
	)
	if loaders := dataloader.For(r.Context()); loaders != nil {
		view, err = loaders.LoadComment(r.Context(), id)
	} else {
		view, err = h.service.GetComment(r.Context(), id)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// maxBatchIDs bounds one batch lookup
const maxBatchIDs = 100

// batchResponse lists found comments in request order
type batchResponse struct {
	Comments []*comments.CommentView `json:"comments"`
}

// HandleGetBatch returns several comments at once; unknown ids are skipped
// GET /api/comments?ids=a,b,c
func (h *GetCommentHandler) HandleGetBatch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "ids parameter is required")
		return
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) > maxBatchIDs {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "too many ids")
		return
	}

	var (
		views map[string]*comments.CommentView
		err   error
	)
	if loaders := dataloader.For(r.Context()); loaders != nil {
		views, err = loaders.LoadComments(r.Context(), ids)
	} else {
		views, err = h.service.GetComments(r.Context(), ids)
	}
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := batchResponse{Comments: make([]*comments.CommentView, 0, len(views))}
	for _, id := range ids {
		if v, ok := views[id]; ok {
			resp.Comments = append(resp.Comments, v)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
