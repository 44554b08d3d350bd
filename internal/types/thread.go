package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrThreadNotFound is returned by fetchers when the remote thread no longer
// exists (deleted, pruned or never existed).
var ErrThreadNotFound = errors.New("thread not found")

// ThreadKey identifies a remote thread. It is the registry's map key.
type ThreadKey struct {
	Board    string
	ThreadID string
}

// String renders the key the way the imageboard does, e.g. "/g/555".
func (k ThreadKey) String() string {
	return fmt.Sprintf("/%s/%s", k.Board, k.ThreadID)
}

// ThreadRecord is one tracked thread.
type ThreadRecord struct {
	ID            int       `json:"id"`
	Board         string    `json:"board"`
	ThreadID      string    `json:"thread_id"`
	Title         string    `json:"title"`
	LastPostNo    int64     `json:"last_post_no"`
	LastUpdate    time.Time `json:"last_update"`
	AddedTime     time.Time `json:"added_time"`
	CheckInterval int       `json:"check_interval"` // seconds
}

// Key returns the record's composite key.
func (r ThreadRecord) Key() ThreadKey {
	return ThreadKey{Board: r.Board, ThreadID: r.ThreadID}
}

// Interval returns the polling period as a duration.
func (r ThreadRecord) Interval() time.Duration {
	return time.Duration(r.CheckInterval) * time.Second
}

// Post is a single post in a thread snapshot.
type Post struct {
	No      int64  `json:"no"`
	Subject string `json:"sub,omitempty"`
	Comment string `json:"com,omitempty"`
	Time    int64  `json:"time,omitempty"`
}

// Snapshot is the state of a thread at fetch time. Posts are in ascending
// order; the first post is the original post.
type Snapshot struct {
	Posts    []Post `json:"posts"`
	Closed   bool   `json:"-"`
	Archived bool   `json:"-"`
}

// OP returns the original post. ok is false for an empty snapshot.
func (s Snapshot) OP() (Post, bool) {
	if len(s.Posts) == 0 {
		return Post{}, false
	}
	return s.Posts[0], true
}

// LastPostNo returns the number of the most recent post, or 0.
func (s Snapshot) LastPostNo() int64 {
	if len(s.Posts) == 0 {
		return 0
	}
	return s.Posts[len(s.Posts)-1].No
}
