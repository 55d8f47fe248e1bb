package types

import "time"

// Post is a text post owned by a single user.
type Post struct {
	// ID is the unique, server-assigned identifier of the post.
	ID int64 `json:"id" db:"id"`

	// UserID identifies the user who wrote the post.
	UserID int64 `json:"user_id" db:"user_id"`

	// Content is the trimmed, non-empty body of the post.
	Content string `json:"content" db:"content"`

	// CreatedAt is the timestamp when the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FeedPost is a post as it appears in the feed, joined with its author and
// aggregated like data for the viewing user.
type FeedPost struct {
	Post

	// UserName is the author's display name.
	UserName string `json:"user_name" db:"user_name"`

	// JobTitle is the author's job title.
	JobTitle string `json:"job_title" db:"job_title"`

	// LikeCount is the number of users currently liking the post.
	LikeCount int `json:"like_count" db:"like_count"`

	// IsLiked reports whether the viewing user currently likes the post.
	IsLiked bool `json:"is_liked" db:"is_liked"`
}

// Like records that a user likes a post. A (UserID, PostID) pair exists at
// most once.
type Like struct {
	UserID int64 `json:"user_id" db:"user_id"`
	PostID int64 `json:"post_id" db:"post_id"`
}
