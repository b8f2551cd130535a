package components

import "time"

// Motion holds per-entity animation state. Amplitude, Speed, Peduncle and
// Offset are randomized at spawn and never change afterwards.
type Motion struct {
	BaseY     float32 // Rest line for bobbing
	Phase     float32 // Flap (birds) or wiggle (fish) accumulator
	BobPhase  float32 // Bob accumulator
	Offset    float32 // Static wiggle phase offset
	Amplitude float32 // Vertical sway in pixels (fish)
	Speed     float32 // Horizontal speed multiplier (fish)
	Peduncle  float32 // Tail zone fraction (fish)
	Seeking   bool    // Steering toward bait this tick
}

// Record is the gallery data behind an entity.
type Record struct {
	ID        int64 // Stable identity key (fish_id)
	UserID    int64
	Artist    string
	CreatedAt time.Time
	Likes     int
	Dislikes  int
}
