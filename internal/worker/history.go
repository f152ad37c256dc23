package worker

import (
	"sync"

	"github.com/roomcast/qabroadcast/internal/message"
)

// History keeps the most recent completed sends, oldest first.
type History struct {
	mu    sync.RWMutex
	size  int
	items []message.Result
}

// NewHistory creates a history holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, items: make([]message.Result, 0, size)}
}

// Add appends r, evicting the oldest entries beyond capacity.
func (h *History) Add(r message.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items = append(h.items, r)
	if over := len(h.items) - h.size; over > 0 {
		h.items = append(h.items[:0:0], h.items[over:]...)
	}
}

// Snapshot returns a copy of the retained sends, oldest first.
func (h *History) Snapshot() []message.Result {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]message.Result(nil), h.items...)
}

// Len returns the number of retained sends.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.items)
}
