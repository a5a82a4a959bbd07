package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
)

type contextKey string

const (
	// ActorIDKey is the context key for the acting user's id
	ActorIDKey contextKey = "actor_id"

	// ActorHeader carries the acting user's id, set by the gateway in front of this service
	ActorHeader = "X-User-ID"

	maxActorIDLength = 256
)

// RequireActor rejects requests that do not name an acting user and stores
// the user's id in the request context for handlers.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actorID == "" {
			writeAuthError(w, "Missing "+ActorHeader+" header")
			return
		}
		if len(actorID) > maxActorIDLength {
			writeAuthError(w, "Invalid "+ActorHeader+" header")
			return
		}

		ctx := context.WithValue(r.Context(), ActorIDKey, actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetActorID extracts the acting user's id from the request context
// Returns empty string if RequireActor did not run
func GetActorID(r *http.Request) string {
	id, _ := r.Context().Value(ActorIDKey).(string)
	return id
}

// SetTestActorID sets the acting user in the context for testing purposes
func SetTestActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorIDKey, actorID)
}

// writeAuthError writes a JSON error response for authentication failures
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	response := `{"error":"AuthenticationRequired","message":"` + message + `"}`
	if _, err := w.Write([]byte(response)); err != nil {
		log.Printf("Failed to write auth error response: %v", err)
	}
}
