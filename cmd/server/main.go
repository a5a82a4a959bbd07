package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"Inkwell/internal/api/middleware"
	"Inkwell/internal/api/routes"
	"Inkwell/internal/config"
	"Inkwell/internal/core/comments"
	"Inkwell/internal/db/migrations"
	postgresRepo "Inkwell/internal/db/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	logger.Info("connected to database")

	if err := migrations.Up(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	logger.Info("migrations completed")

	if cfg.CursorSecret == "" {
		logger.Warn("CURSOR_SECRET is not set; cursors are unsigned")
	}

	// Initialize store and service
	codec := comments.NewCursorCodec(cfg.CursorSecret)
	store := postgresRepo.NewCommentStore(db, codec)
	commentService := comments.NewCommentService(store, comments.Limits{
		DefaultLimit:      cfg.Comments.DefaultLimit,
		MaxLimit:          cfg.Comments.MaxLimit,
		DefaultPreviewCap: cfg.Comments.DefaultPreviewCap,
		MaxPreviewCap:     cfg.Comments.MaxPreviewCap,
	}, logger)

	r := chi.NewRouter()

	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	// Every request is limited per client IP; writes also per acting user
	stop := make(chan struct{})
	ipLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute)
	go ipLimiter.Cleanup(stop)
	r.Use(ipLimiter.Middleware)

	actorLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10*time.Minute)
	go actorLimiter.Cleanup(stop)

	routes.RegisterCommentRoutes(r, commentService, cfg.LoaderMaxKeys, actorLimiter.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		logger.Info("Inkwell starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed:", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
