package finnhub

import "time"

// Backoff produces the reconnect delay sequence Base, 2*Base, 4*Base, ...
// capped at Max. Reset after a successful connection returns it to Base.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	next time.Duration
}

// Next returns the current delay and advances the sequence.
func (b *Backoff) Next() time.Duration {
	if b.next == 0 {
		b.next = b.Base
	}
	d := b.next
	b.next *= 2
	if b.next > b.Max {
		b.next = b.Max
	}
	return d
}

// Reset restarts the sequence from Base.
func (b *Backoff) Reset() {
	b.next = 0
}
