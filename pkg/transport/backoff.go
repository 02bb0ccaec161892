package transport

import (
	"math/rand"
	"sync"
	"time"
)

// Reconnection backoff parameters.
const (
	// InitialBackoff is the delay before the first retry.
	InitialBackoff = 1 * time.Second

	// MaxBackoff caps the delay growth.
	MaxBackoff = 60 * time.Second

	// BackoffMultiplier grows the delay per failed attempt.
	BackoffMultiplier = 2.0

	// JitterFactor is the random fraction added on top of the base delay.
	JitterFactor = 0.25
)

// Backoff produces exponentially growing, jittered reconnection delays.
// The delay for attempt n is Initial * Multiplier^n, capped at Max, plus
// up to JitterFactor of random spread.
type Backoff struct {
	mu       sync.Mutex
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a backoff with the default parameters.
func NewBackoff() *Backoff {
	return &Backoff{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the delay for the current attempt and advances the counter.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	base := InitialBackoff
	for i := 0; i < b.attempts && base < MaxBackoff; i++ {
		base = time.Duration(float64(base) * BackoffMultiplier)
	}
	if base > MaxBackoff {
		base = MaxBackoff
	}
	b.attempts++

	jitter := time.Duration(float64(base) * JitterFactor * b.rng.Float64())
	return base + jitter
}

// Reset starts over from the initial delay. Call after a successful
// connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attempts = 0
}

// Attempts returns how many delays were handed out since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
