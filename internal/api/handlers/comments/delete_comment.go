package comments

import (
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/comments"
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DeleteCommentHandler handles soft delete, restore and permanent removal
type DeleteCommentHandler struct {
	service comments.Service
}

// NewDeleteCommentHandler creates a new handler for deleting comments
func NewDeleteCommentHandler(service comments.Service) *DeleteCommentHandler {
	return &DeleteCommentHandler{
		service: service,
	}
}

// HandleDelete soft-deletes a comment; it stays in listings with its body hidden
// DELETE /api/comments/{commentID}
func (h *DeleteCommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.DeleteComment)
}

// HandleRestore reverses a soft delete
// POST /api/comments/{commentID}/restore
func (h *DeleteCommentHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.RestoreComment)
}

// HandlePurge removes a comment and its replies permanently
// DELETE /api/comments/{commentID}/permanent
func (h *DeleteCommentHandler) HandlePurge(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetActorID(r)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	id := chi.URLParam(r, "commentID")
	if err := h.service.PurgeComment(r.Context(), actorID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	forget(r, id)

	w.WriteHeader(http.StatusNoContent)
}

func (h *DeleteCommentHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, actorID, id string) (*comments.Comment, error),
) {
	actorID := middleware.GetActorID(r)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	id := chi.URLParam(r, "commentID")
	c, err := op(r.Context(), actorID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	forget(r, id)

	writeJSON(w, http.StatusOK, c)
}
