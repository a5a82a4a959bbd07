package comments

import (
	"Inkwell/internal/core/comments"
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// errorResponse represents a standardized JSON error response
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Error:   errorType,
		Message: message,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// writeJSON writes a JSON success response
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// handleServiceError maps service-layer errors to HTTP responses
func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case comments.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NotFound", err.Error())

	case comments.IsValidationError(err):
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())

	case errors.Is(err, comments.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "NotAuthorized", "You are not allowed to modify this comment")

	case errors.Is(err, comments.ErrCommentDeleted):
		writeError(w, http.StatusConflict, "CommentDeleted", err.Error())

	case errors.Is(err, comments.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "ConcurrentModification",
			"The comment was changed by someone else; reload and try again")

	case errors.Is(err, comments.ErrCommentAlreadyExists):
		writeError(w, http.StatusConflict, "AlreadyExists", err.Error())

	default:
		// Don't leak internal error details to clients
		log.Printf("Unexpected error in comments handler: %v", err)
		writeError(w, http.StatusInternalServerError, "InternalServerError",
			"An internal error occurred")
	}
}
