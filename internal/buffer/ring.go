// Package buffer holds the fixed-capacity signal windows kept for every
// armband channel and the statistics derived from them.
package buffer

const DefaultCapacity = 200

// Channel is a fixed-length sliding window of samples, oldest first.
// A Channel is never modified in place once it has been handed out; Push
// returns a new window instead.
type Channel []float64

// NewChannel creates a zero-filled Channel of length n.
func NewChannel(n int) Channel {
	if n < 0 {
		n = 0
	}
	return make(Channel, n)
}

// Push drops the oldest sample and appends v, returning a new Channel of the
// same length.
func (c Channel) Push(v float64) Channel {
	n := len(c)
	out := make(Channel, n)
	if n == 0 {
		return out
	}
	copy(out, c[1:])
	out[n-1] = v
	return out
}

// Tail returns the last w samples. A non-positive or oversized w returns the
// whole window.
func (c Channel) Tail(w int) []float64 {
	if w <= 0 || w >= len(c) {
		return c
	}
	return c[len(c)-w:]
}

// Last returns the newest sample, or 0 for an empty Channel.
func (c Channel) Last() float64 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1]
}
