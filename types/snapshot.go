package types

import "time"

// Snapshot is a point-in-time export of all content. Password digests are
// never part of a snapshot.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Users       []User    `json:"users"`
	Posts       []Post    `json:"posts"`
	Likes       []Like    `json:"likes"`
}
