package routes

import (
	"Inkwell/internal/api/handlers/comments"
	"Inkwell/internal/api/middleware"
	commentsCore "Inkwell/internal/core/comments"
	"Inkwell/internal/dataloader"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterCommentRoutes registers the comment endpoints under /api.
// Every request gets its own dataloaders; writes require an acting user.
// writeMiddlewares run on write routes after the acting user is accepted.
func RegisterCommentRoutes(r chi.Router, service commentsCore.Service, loaderCacheSize int, writeMiddlewares ...func(http.Handler) http.Handler) {
	listHandler := comments.NewListCommentsHandler(service)
	getHandler := comments.NewGetCommentHandler(service)
	createHandler := comments.NewCreateCommentHandler(service)
	updateHandler := comments.NewUpdateCommentHandler(service)
	deleteHandler := comments.NewDeleteCommentHandler(service)

	r.Route("/api", func(r chi.Router) {
		r.Use(dataloader.Middleware(service, loaderCacheSize))

		// Reads
		r.Get("/posts/{postID}/comments", listHandler.HandleListTopLevel)
		r.Get("/comments", getHandler.HandleGetBatch)
		r.Get("/comments/{commentID}", getHandler.HandleGet)
		r.Get("/comments/{commentID}/replies", listHandler.HandleListReplies)

		// Writes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor)
			r.Use(writeMiddlewares...)

			r.Post("/posts/{postID}/comments", createHandler.HandleCreate)
			r.Patch("/comments/{commentID}", updateHandler.HandleUpdate)
			r.Delete("/comments/{commentID}", deleteHandler.HandleDelete)
			r.Post("/comments/{commentID}/restore", deleteHandler.HandleRestore)
			r.Delete("/comments/{commentID}/permanent", deleteHandler.HandlePurge)
		})
	})
}
