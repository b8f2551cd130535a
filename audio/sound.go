// Package audio plays short scene sound effects.
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

// SoundManager mixes effects into the speaker. A nil or uninitialized
// manager plays nothing.
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSoundManager creates a sound manager.
func NewSoundManager() *SoundManager {
	return &SoundManager{mixer: &beep.Mixer{}}
}

// Initialize opens the speaker.
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("initializing speaker: %w", err)
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Cleanup silences everything still playing.
func (sm *SoundManager) Cleanup() {
	if sm == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

func (sm *SoundManager) play(s beep.Streamer) {
	if sm == nil {
		return
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Add(s)
	speaker.Unlock()
}

// PlayEaten plays the rising chirp of a creature eating bait.
func (sm *SoundManager) PlayEaten() {
	sm.play(NewChirp(sampleRate, 600, 1400, 180*time.Millisecond))
}

// PlayFed plays the soft drop of new bait.
func (sm *SoundManager) PlayFed() {
	sm.play(NewChirp(sampleRate, 320, 220, 90*time.Millisecond))
}

// Chirp is a sine sweep from one frequency to another with an exponential
// decay envelope.
type Chirp struct {
	rate     beep.SampleRate
	from, to float64
	total    int
	pos      int
	phase    float64
}

// NewChirp creates a chirp lasting d.
func NewChirp(rate beep.SampleRate, from, to float64, d time.Duration) *Chirp {
	return &Chirp{rate: rate, from: from, to: to, total: rate.N(d)}
}

func (c *Chirp) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if c.pos >= c.total {
			return i, i > 0
		}
		p := float64(c.pos) / float64(c.total)
		freq := c.from + (c.to-c.from)*p
		env := math.Exp(-4*p) * math.Min(float64(c.pos)/float64(c.rate.N(5*time.Millisecond)+1), 1)
		v := 0.25 * env * math.Sin(2*math.Pi*c.phase)

		samples[i][0] = v
		samples[i][1] = v
		c.phase += freq / float64(c.rate)
		c.phase -= math.Floor(c.phase)
		c.pos++
	}
	return len(samples), true
}

func (c *Chirp) Err() error { return nil }
