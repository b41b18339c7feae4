// Package grtn spawns background goroutines and keeps count of them, so
// the status API can tell how much concurrent work the daemon carries.
package grtn

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var count atomic.Int64

// Go runs f on a tracked goroutine.
func Go(f func()) {
	go func() {
		count.Add(1)
		logrus.Tracef("Number of tracked goroutines: %d", count.Load())
		defer count.Add(-1)
		f()
	}()
}

// Count returns the number of tracked goroutines currently running.
func Count() int64 {
	return count.Load()
}
