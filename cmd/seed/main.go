package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"Inkwell/internal/config"
	"Inkwell/internal/core/comments"
	"Inkwell/internal/db/migrations"
	postgresRepo "Inkwell/internal/db/postgres"
)

var authors = []string{
	"sarah_jenkins", "michael_chen", "jessica_rodriguez", "david_nguyen",
	"emily_williams", "james_patel", "ashley_garcia", "robert_kim",
}

var topLevelBodies = []string{
	"This is such fantastic news, couldn't be happier with how this turned out.",
	"Finally someone wrote this up properly. Saving it for later.",
	"I have a few questions about the second half, anyone else confused?",
	"Great read. The part about the schedule changes was new to me.",
	"Not sure I agree with all of it but it's a fair summary.",
}

var replyBodies = []string{
	"Absolutely agree!",
	"Couldn't have said it better myself.",
	"Do you have a source for that?",
	"This is the right take.",
	"Respectfully, I see it differently.",
}

var deepThread = []string{
	"Wait, did anyone else notice the date in the second paragraph?",
	"Yes! It says last year, pretty sure that's a typo.",
	"Or it's intentional and they're referencing the old announcement.",
	"That would make the whole timeline make more sense actually.",
	"Okay now I need someone from the team to confirm this.",
	"Someone tagged them, let's see if they reply.",
}

func main() {
	topLevel := flag.Int("comments", 20, "number of top-level comments")
	maxReplies := flag.Int("replies", 6, "maximum replies per top-level comment")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := migrations.Up(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := postgresRepo.NewCommentStore(db, comments.NewCursorCodec(cfg.CursorSecret))
	service := comments.NewCommentService(store, comments.DefaultLimits(), logger)

	ctx := context.Background()
	postID, err := createPost(ctx, db)
	if err != nil {
		log.Fatalf("Failed to create post: %v", err)
	}
	log.Printf("Created post %s", postID)

	created := 0
	for i := 0; i < *topLevel; i++ {
		parent, err := service.CreateComment(ctx, &comments.CreateCommentRequest{
			PostID:   postID,
			AuthorID: pick(authors),
			Body:     pick(topLevelBodies),
		})
		if err != nil {
			log.Fatalf("Failed to create comment %d: %v", i+1, err)
		}
		created++

		for j := rand.Intn(*maxReplies + 1); j > 0; j-- {
			if _, err := service.CreateComment(ctx, &comments.CreateCommentRequest{
				PostID:          postID,
				ParentCommentID: &parent.ID,
				AuthorID:        pick(authors),
				Body:            pick(replyBodies),
			}); err != nil {
				log.Fatalf("Failed to create reply: %v", err)
			}
			created++
		}
	}

	// One long back-and-forth between two authors
	var parentID *string
	for i, body := range deepThread {
		c, err := service.CreateComment(ctx, &comments.CreateCommentRequest{
			PostID:          postID,
			ParentCommentID: parentID,
			AuthorID:        authors[i%2],
			Body:            body,
		})
		if err != nil {
			log.Fatalf("Failed to create thread comment at depth %d: %v", i+1, err)
		}
		parentID = &c.ID
		created++
	}

	log.Println("=== Summary ===")
	log.Printf("Post: %s", postID)
	log.Printf("Comments created: %d (including a %d-deep thread)", created, len(deepThread))
	fmt.Printf("curl 'http://localhost:%s/api/posts/%s/comments?previewCap=3'\n", cfg.Port, postID)
}

func createPost(ctx context.Context, db *sql.DB) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, title, created_at)
		VALUES ($1, $2, $3, $4)
	`, id.String(), authors[0], "Seeded discussion", time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func pick(options []string) string {
	return options[rand.Intn(len(options))]
}
