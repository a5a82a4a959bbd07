package comments

import (
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/comments"
	"Inkwell/internal/dataloader"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UpdateCommentHandler handles comment edits
type UpdateCommentHandler struct {
	service comments.Service
}

// NewUpdateCommentHandler creates a new handler for editing comments
func NewUpdateCommentHandler(service comments.Service) *UpdateCommentHandler {
	return &UpdateCommentHandler{
		service: service,
	}
}

// UpdateCommentInput is the request body for editing a comment
type UpdateCommentInput struct {
	Body string `json:"body"`
}

// HandleUpdate replaces a comment's body
// PATCH /api/comments/{commentID}
//
// A concurrent change between load and write answers 409 ConcurrentModification.
func (h *UpdateCommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var input UpdateCommentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	actorID := middleware.GetActorID(r)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	id := chi.URLParam(r, "commentID")
	updated, err := h.service.EditComment(r.Context(), &comments.EditCommentRequest{
		ID:      id,
		ActorID: actorID,
		Body:    input.Body,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	forget(r, id)

	writeJSON(w, http.StatusOK, updated)
}

// forget drops a written comment from the request's loader cache
func forget(r *http.Request, id string) {
	if loaders := dataloader.For(r.Context()); loaders != nil {
		loaders.Forget(r.Context(), id)
	}
}
