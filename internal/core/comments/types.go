package comments

import (
	"fmt"
	"strings"
)

// SortDirection orders listings by (created_at, id)
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection accepts "asc" or "desc" (case-insensitive); empty means asc.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return "", NewValidationError("sort", fmt.Sprintf("must be 'asc' or 'desc', got %q", s))
	}
}

// ListOptions controls one keyset page
type ListOptions struct {
	Cursor *string
	Sort   SortDirection
	Limit  int
}

// TopLevelOptions extends ListOptions with the per-comment reply preview size
type TopLevelOptions struct {
	ListOptions
	PreviewCap int
}

// ListTopLevelRequest contains parameters for listing a post's top-level comments
// A nil PreviewCap means the configured default.
type ListTopLevelRequest struct {
	Cursor     *string
	PreviewCap *int
	PostID     string
	Sort       string
	Limit      int
}

// ListRepliesRequest contains parameters for listing a comment's direct replies
type ListRepliesRequest struct {
	Cursor   *string
	ParentID string
	Sort     string
	Limit    int
}

// CreateCommentRequest contains parameters for creating a comment
type CreateCommentRequest struct {
	ParentCommentID *string `json:"parentCommentId,omitempty"`
	PostID          string  `json:"-"`
	AuthorID        string  `json:"-"`
	Body            string  `json:"body"`
}

// EditCommentRequest contains parameters for editing a comment's body
type EditCommentRequest struct {
	ID      string `json:"-"`
	ActorID string `json:"-"`
	Body    string `json:"body"`
}
