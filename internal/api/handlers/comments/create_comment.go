package comments

import (
	"Inkwell/internal/api/middleware"
	"Inkwell/internal/core/comments"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxRequestBody bounds comment write payloads
const maxRequestBody = 100 * 1024

// CreateCommentHandler handles comment creation requests
type CreateCommentHandler struct {
	service comments.Service
}

// NewCreateCommentHandler creates a new handler for creating comments
func NewCreateCommentHandler(service comments.Service) *CreateCommentHandler {
	return &CreateCommentHandler{
		service: service,
	}
}

// CreateCommentInput is the request body for creating a comment
type CreateCommentInput struct {
	ParentCommentID *string `json:"parentCommentId,omitempty"`
	Body            string  `json:"body"`
}

// HandleCreate handles comment creation requests
// POST /api/posts/{postID}/comments
//
// Request body: { "body": "...", "parentCommentId": "..." }
// Response: 201 with the stored comment
func (h *CreateCommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var input CreateCommentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	actorID := middleware.GetActorID(r)
	if actorID == "" {
		writeError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return
	}

	created, err := h.service.CreateComment(r.Context(), &comments.CreateCommentRequest{
		PostID:          chi.URLParam(r, "postID"),
		AuthorID:        actorID,
		Body:            input.Body,
		ParentCommentID: input.ParentCommentID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if created.ParentCommentID != nil {
		forget(r, *created.ParentCommentID)
	}

	writeJSON(w, http.StatusCreated, created)
}
