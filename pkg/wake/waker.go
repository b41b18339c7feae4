// Package wake provides a coalescing wakeup signal between goroutines.
package wake

import "sync"

// Waker collapses any number of Kick calls into a single pending wakeup.
// The receiver selects on C, calls Done before draining its work, and then
// drains everything available. Clearing the flag before draining means a
// Kick arriving during the drain schedules the next wakeup instead of
// being lost.
type Waker struct {
	mu     sync.Mutex
	kicked bool
	c      chan struct{}
}

// NewWaker creates Waker instances.
func NewWaker() *Waker {
	return &Waker{c: make(chan struct{}, 1)}
}

// Kick schedules a wakeup unless one is already pending.
func (w *Waker) Kick() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.kicked {
		return
	}
	w.kicked = true
	w.c <- struct{}{}
}

// C delivers one value per pending wakeup.
func (w *Waker) C() <-chan struct{} {
	return w.c
}

// Done rearms the waker. Call it after receiving from C and before
// draining.
func (w *Waker) Done() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.kicked = false
}
