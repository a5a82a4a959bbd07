package comments

import (
	"Inkwell/internal/core/comments"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ListCommentsHandler serves keyset-paged comment listings
type ListCommentsHandler struct {
	service comments.Service
}

// NewListCommentsHandler creates a new handler for comment listings
func NewListCommentsHandler(service comments.Service) *ListCommentsHandler {
	return &ListCommentsHandler{
		service: service,
	}
}

// HandleListTopLevel lists a post's top-level comments with reply previews
// GET /api/posts/{postID}/comments?sort=asc|desc&limit=N&cursor=...&previewCap=K
func (h *ListCommentsHandler) HandleListTopLevel(w http.ResponseWriter, r *http.Request) {
	params, ok := parseListParams(w, r)
	if !ok {
		return
	}

	var previewCap *int
	if raw := r.URL.Query().Get("previewCap"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "previewCap must be an integer")
			return
		}
		previewCap = &n
	}

	page, err := h.service.ListTopLevel(r.Context(), &comments.ListTopLevelRequest{
		PostID:     chi.URLParam(r, "postID"),
		Sort:       params.sort,
		Limit:      params.limit,
		Cursor:     params.cursor,
		PreviewCap: previewCap,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleListReplies lists one comment's direct replies.
// Cursors from a reply preview of the same comment continue here.
// GET /api/comments/{commentID}/replies?sort=asc|desc&limit=N&cursor=...
func (h *ListCommentsHandler) HandleListReplies(w http.ResponseWriter, r *http.Request) {
	params, ok := parseListParams(w, r)
	if !ok {
		return
	}

	page, err := h.service.ListReplies(r.Context(), &comments.ListRepliesRequest{
		ParentID: chi.URLParam(r, "commentID"),
		Sort:     params.sort,
		Limit:    params.limit,
		Cursor:   params.cursor,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

type listParams struct {
	cursor *string
	sort   string
	limit  int
}

// parseListParams reads sort, limit and cursor; it writes a 400 and returns
// false when limit is not an integer.
func parseListParams(w http.ResponseWriter, r *http.Request) (listParams, bool) {
	query := r.URL.Query()
	params := listParams{
		sort:   query.Get("sort"),
		cursor: ptrOrNil(query.Get("cursor")),
	}

	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must be an integer")
			return listParams{}, false
		}
		params.limit = n
	}
	return params, true
}

// ptrOrNil converts an empty string to nil pointer
func ptrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
