package comments

import (
	"time"
)

// Comment is a single comment row. A comment with ParentCommentID == nil is
// top-level on its post; otherwise it replies to another comment on the same post.
// Body is nil whenever IsDeleted is true on anything read back from storage.
type Comment struct {
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Body            *string   `json:"body"`
	ParentCommentID *string   `json:"parentCommentId,omitempty"`
	ID              string    `json:"id"`
	PostID          string    `json:"postId"`
	AuthorID        string    `json:"authorId"`
	IsDeleted       bool      `json:"isDeleted"`
}

// IsTopLevel reports whether the comment is attached directly to its post
func (c *Comment) IsTopLevel() bool {
	return c.ParentCommentID == nil
}

// Redact hides the body of a soft-deleted comment.
func (c *Comment) Redact() {
	if c.IsDeleted {
		c.Body = nil
	}
}

// CommentView is the read model returned by listings and single gets.
// Preview is populated only where the caller asked for reply previews.
type CommentView struct {
	Preview *ReplyPreview `json:"preview,omitempty"`
	Comment
	ReplyCount int  `json:"replyCount"`
	HasReplies bool `json:"hasReplies"`
}

// NewCommentView builds the read model of c with its direct reply count
func NewCommentView(c Comment, replyCount int) *CommentView {
	return &CommentView{
		Comment:    c,
		ReplyCount: replyCount,
		HasReplies: replyCount > 0,
	}
}

// ReplyPreview holds the oldest direct replies of one parent.
// NextCursor is set only when the parent has more replies than were shown and
// continues through ListReplies.
type ReplyPreview struct {
	NextCursor *string        `json:"nextCursor,omitempty"`
	Replies    []*CommentView `json:"replies"`
}

// EmptyPreview is the preview of a parent without replies
func EmptyPreview() *ReplyPreview {
	return &ReplyPreview{Replies: []*CommentView{}}
}

// TopLevelPage is one page of top-level comments for a post
type TopLevelPage struct {
	NextCursor *string        `json:"nextCursor,omitempty"`
	Comments   []*CommentView `json:"comments"`
}

// RepliesPage is one page of direct replies for a parent comment
type RepliesPage struct {
	NextCursor *string        `json:"nextCursor,omitempty"`
	Replies    []*CommentView `json:"replies"`
}
