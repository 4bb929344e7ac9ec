package worker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Token is a one-way stop flag. Once set it stays set.
type Token struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewToken returns an unset token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Set marks the token. Repeated calls are no-ops.
func (t *Token) Set() {
	t.once.Do(func() {
		t.set.Store(true)
		close(t.done)
	})
}

// IsSet reports whether Set has been called.
func (t *Token) IsSet() bool {
	return t.set.Load()
}

// Done is closed when the token is set.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Wait blocks for at most d and reports whether the token is set. It returns
// as soon as the token is set; a non-positive d only samples the flag.
func (t *Token) Wait(d time.Duration) bool {
	if d <= 0 || t.IsSet() {
		return t.IsSet()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.done:
		return true
	case <-timer.C:
		return t.IsSet()
	}
}
