package domain

import "sync"

// Recipient is one registered endpoint of the hotline. The queue is mutated
// only through the methods below; each mutation happens under the recipient's
// own lock so that concurrent routing and replies never produce a torn queue.
// Every method returning the queue returns a copy.
type Recipient struct {
	ID   string
	Name string
	Icon string

	mu       sync.Mutex
	messages []QueuedMessage
}

func NewRecipient(id, name, icon string, messages []QueuedMessage) *Recipient {
	return &Recipient{ID: id, Name: name, Icon: icon, messages: messages}
}

// Enqueue appends a message and returns a consistent snapshot of the queue
// for persistence.
func (r *Recipient) Enqueue(m QueuedMessage) []QueuedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return r.snapshot()
}

// Remove drops the queued message matching the original message id.
// The returned snapshot reflects the queue after removal; ok is false when
// no such message was queued (a double reply is harmless).
func (r *Recipient) Remove(messageID int) ([]QueuedMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.Voice.MessageID == messageID {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return r.snapshot(), true
		}
	}
	return r.snapshot(), false
}

// Find returns the queued message matching the original message id.
func (r *Recipient) Find(messageID int) (QueuedMessage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.Voice.MessageID == messageID {
			return m, true
		}
	}
	return QueuedMessage{}, false
}

// Queue returns a copy of the current queue in arrival order.
func (r *Recipient) Queue() []QueuedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Recipient) HasMessages() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages) > 0
}

// snapshot must be called with the lock held.
func (r *Recipient) snapshot() []QueuedMessage {
	out := make([]QueuedMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// DefaultRecipients is the roster provisioned on first boot when the store
// is empty.
func DefaultRecipients() []*Recipient {
	return []*Recipient{
		NewRecipient("pink", "PINK LINE (Pascal & Philipp & Andi)", "🧠", nil),
		NewRecipient("red", "RED LINE (Dario)", "🥫", nil),
		NewRecipient("purple", "PURPLE LINE (Hanna)", "😈", nil),
		NewRecipient("yellow", "YELLOW LINE (Luca)", "🐥", nil),
	}
}
