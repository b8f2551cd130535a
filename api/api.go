// Package api defines the JSON shapes exchanged between the gallery server and
// its clients.
package api

import "time"

// Fish is a gallery record as served by GET /fishes.
type Fish struct {
	FishID     int64     `json:"fish_id"`
	ArtistName string    `json:"artist_name"`
	ImageData  string    `json:"image_data"`
	Likes      int       `json:"likes"`
	Dislikes   int       `json:"dislikes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	UserID     int64     `json:"user_id"`
}

// SubmitRequest is the body of POST /fish. UserID is nil for a new artist.
type SubmitRequest struct {
	ArtistName string `json:"artist_name"`
	ImageData  string `json:"image_data"`
	UserID     *int64 `json:"userId,omitempty"`
}

// SubmitResponse is returned by POST /fish.
type SubmitResponse struct {
	Success bool  `json:"success"`
	UserID  int64 `json:"userId"`
	FishID  int64 `json:"fishId"`
}

// Vote actions.
const (
	ActionLike    = "like"
	ActionDislike = "dislike"
)

// VoteRequest is the body of POST /fishes/vote.
type VoteRequest struct {
	FishID int64  `json:"fish_id"`
	Action string `json:"action"`
}

// VoteResponse carries the counters after a vote.
type VoteResponse struct {
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Event types pushed over the websocket feed.
const (
	EventFishCreated = "fish_created"
	EventVote        = "vote"
)

// Event is a live gallery update.
type Event struct {
	Type     string `json:"type"`
	Fish     *Fish  `json:"fish,omitempty"` // fish_created
	FishID   int64  `json:"fish_id,omitempty"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
}
