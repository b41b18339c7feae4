// Package monitor streams the daemon's log output to attached clients,
// typically websocket subscribers. Log producers never block on slow
// clients; every client has a bounded buffer and a flusher goroutine does
// the actual writes.
package monitor

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/talonbgp/talon/pkg/wake"
)

const defaultBufferedLines = 1024

type client struct {
	writer   io.Writer
	maxLevel logrus.Level
	lines    [][]byte
}

// Hub fans formatted log lines out to attached clients. Its lock is
// terminal: no callback, write or log call ever happens while it is held.
// The flusher may log through logrus, which re-enters Publish, so the lock
// order is always logrus first, hub second.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	waker   *wake.Waker
	limit   int
	drops   uint64
}

// NewHub creates Hub instances. limit caps the lines buffered per client,
// zero selects the default.
func NewHub(waker *wake.Waker, limit int) *Hub {
	if limit <= 0 {
		limit = defaultBufferedLines
	}
	return &Hub{
		clients: make(map[string]*client),
		waker:   waker,
		limit:   limit,
	}
}

// Attach subscribes a writer to all lines at maxLevel or more severe and
// returns the subscription id.
func (h *Hub) Attach(writer io.Writer, maxLevel logrus.Level) string {
	id := uuid.New().String()[:6]
	h.mu.Lock()
	h.clients[id] = &client{writer: writer, maxLevel: maxLevel}
	h.mu.Unlock()
	return id
}

// Detach drops the subscription. Buffered lines that were not flushed yet
// are discarded.
func (h *Hub) Detach(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

// Publish buffers the line for every client subscribed to the level and
// schedules a flush. When a client's buffer is full the oldest line is
// dropped, never the producer blocked.
func (h *Hub) Publish(level logrus.Level, line []byte) {
	h.mu.Lock()
	buffered := false
	for _, c := range h.clients {
		if level > c.maxLevel {
			continue
		}
		if len(c.lines) >= h.limit {
			c.lines = c.lines[1:]
			h.drops++
		}
		copied := make([]byte, len(line))
		copy(copied, line)
		c.lines = append(c.lines, copied)
		buffered = true
	}
	h.mu.Unlock()
	if buffered {
		h.waker.Kick()
	}
}

// Run flushes buffered lines until the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.waker.C():
			h.waker.Done()
			h.flush()
		}
	}
}

type batch struct {
	id     string
	writer io.Writer
	lines  [][]byte
}

// flush takes every buffered line under the lock and writes outside of
// it. Clients whose writer fails are detached.
func (h *Hub) flush() {
	h.mu.Lock()
	var batches []batch
	for id, c := range h.clients {
		if len(c.lines) == 0 {
			continue
		}
		batches = append(batches, batch{id: id, writer: c.writer, lines: c.lines})
		c.lines = nil
	}
	h.mu.Unlock()

	for _, b := range batches {
		for _, line := range b.lines {
			if _, writeErr := b.writer.Write(line); writeErr != nil {
				h.Detach(b.id)
				logrus.Debugf("Detached log monitor %s: %v", b.id, writeErr)
				break
			}
		}
	}
}

// Stats reports the number of attached clients and the lines dropped on
// full buffers since the hub was created.
type Stats struct {
	Clients int
	Drops   uint64
}

// Stats returns a snapshot of the hub counters.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Clients: len(h.clients), Drops: h.drops}
}
