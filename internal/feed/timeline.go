package feed

import (
	"sync"

	"github.com/noah-isme/huddle-api/internal/dto"
)

// Timeline is a client's converged view of one target. It is safe for
// concurrent use by a poll loop and readers.
type Timeline struct {
	mu     sync.RWMutex
	items  []dto.MessageResponse
	cursor uint
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Load installs an initial page. Messages already present are kept.
func (t *Timeline) Load(page []dto.MessageResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = Merge(page, t.items)
	t.advance()
}

// Prepend adds an older page in front of the current view.
func (t *Timeline) Prepend(older []dto.MessageResponse) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = Merge(older, t.items)
	t.advance()
}

// Apply merges a polled or pushed batch and returns how many messages were new.
func (t *Timeline) Apply(batch []dto.MessageResponse) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	before := len(t.items)
	t.items = Merge(t.items, batch)
	t.advance()
	return len(t.items) - before
}

// Cursor is the id to pass as "after" on the next poll. It never decreases.
func (t *Timeline) Cursor() uint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

// Messages returns a copy of the current view.
func (t *Timeline) Messages() []dto.MessageResponse {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]dto.MessageResponse, len(t.items))
	copy(out, t.items)
	return out
}

// Len reports the number of messages in the view.
func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *Timeline) advance() {
	if last := LastSeen(t.items); last > t.cursor {
		t.cursor = last
	}
}
