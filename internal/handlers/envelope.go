package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/connectapp/apiserver/types"
)

// Envelope is the response shape shared by every action.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type LoginResponse struct {
	Envelope
	User  types.User `json:"user"`
	Token string     `json:"token,omitempty"`
}

type PostsResponse struct {
	Envelope
	Posts []types.FeedPost `json:"posts"`
}

type ToggleLikeResponse struct {
	Envelope
	IsLiked bool `json:"isLiked"`
}

// ID is a numeric identifier that accepts both JSON numbers and numeric
// strings. Anything else decodes to zero, which callers treat as missing.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = 0

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return nil
	}

	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		*id = ID(n)
		return nil
	}
	if f, err := strconv.ParseFloat(text, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		*id = ID(int64(f))
	}
	return nil
}

func (id ID) Int64() int64 { return int64(id) }

// actionHeader is decoded first. A nil Action means the field was absent or
// null; a non-string value fails to decode.
type actionHeader struct {
	Action *string `json:"action"`
}

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	JobTitle string `json:"job_title"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreatePostRequest struct {
	UserID  ID     `json:"userId"`
	Content string `json:"content"`
}

type GetPostsRequest struct {
	CurrentUserID ID `json:"currentUserId"`
}

type ToggleLikeRequest struct {
	PostID ID `json:"postId"`
	UserID ID `json:"userId"`
}

type DeletePostRequest struct {
	PostID ID `json:"postId"`
	UserID ID `json:"userId"`
}
