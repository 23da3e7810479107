// Package runtime hosts the routing and delivery engine: the pending inbound
// cache, the client registry with its live session bindings, and the relay
// tying them to the durable store and the transports.
package runtime

import (
	"fmt"
	"sync"

	"hotline/domain"
	"hotline/errors"
)

// PendingCache maps an inbound message id to its not-yet-routed voice
// message. Entries are created on receipt and consumed exactly once when a
// routing decision lands. There is no background expiry: an entry lives until
// taken or until the process restarts, at which point the correlation token
// held by the sender is simply unusable and the message can be resent.
type PendingCache struct {
	mu          sync.Mutex
	items       map[int]domain.VoiceMessage
	maxDuration int
}

// NewPendingCache builds a cache enforcing the given duration ceiling
// (seconds of audio) on every Put.
func NewPendingCache(maxDuration int) *PendingCache {
	return &PendingCache{items: make(map[int]domain.VoiceMessage), maxDuration: maxDuration}
}

// Put stores a voice message keyed by its inbound message id. Messages over
// the duration ceiling are rejected before caching so no routing token can
// ever be produced for them. A reused id overwrites the previous entry; the
// transport's id scheme makes that a non-event.
func (c *PendingCache) Put(v domain.VoiceMessage) error {
	if v.Duration > c.maxDuration {
		return fmt.Errorf("%w: %ds > %ds", errors.ErrDurationExceeded, v.Duration, c.maxDuration)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[v.MessageID] = v
	return nil
}

// Take atomically removes and returns the entry for the given id.
func (c *PendingCache) Take(pendingID int) (domain.VoiceMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[pendingID]
	if ok {
		delete(c.items, pendingID)
	}
	return v, ok
}

// Len reports the number of unrouted messages, for observability only.
func (c *PendingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
