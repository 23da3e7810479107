package runtime

import (
	"sync"

	"hotline/contract"
	"hotline/domain"
)

// Registry owns the known recipients and their live session bindings.
// Recipients are loaded once at startup and live for the process lifetime;
// sessions come and go with every connect and disconnect.
type Registry struct {
	mu         sync.RWMutex
	recipients map[string]*domain.Recipient
	order      []string                    // load order, also broadcast order
	sessions   map[string]contract.Session // recipient id -> live session
}

func NewRegistry(recipients []*domain.Recipient) *Registry {
	r := &Registry{
		recipients: make(map[string]*domain.Recipient, len(recipients)),
		sessions:   make(map[string]contract.Session),
	}
	for _, rec := range recipients {
		r.recipients[rec.ID] = rec
		r.order = append(r.order, rec.ID)
	}
	return r
}

func (r *Registry) Get(recipientID string) (*domain.Recipient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recipients[recipientID]
	return rec, ok
}

// All returns the recipients in load order.
func (r *Registry) All() []*domain.Recipient {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Recipient, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.recipients[id])
	}
	return out
}

// Bind associates a live session with a recipient. Last writer wins: a second
// connect for the same recipient silently displaces the previous session, and
// no signal is sent to the displaced one.
func (r *Registry) Bind(recipientID string, s contract.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[recipientID] = s
}

// Unbind clears the binding held by the given session. It is a no-op when the
// session was never bound or was already replaced by a newer connect.
func (r *Registry) Unbind(s contract.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, bound := range r.sessions {
		if bound.ID() == s.ID() {
			delete(r.sessions, id)
			return
		}
	}
}

func (r *Registry) Session(recipientID string) (contract.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[recipientID]
	return s, ok
}

// RecipientOf resolves the recipient currently bound to the given session.
func (r *Registry) RecipientOf(s contract.Session) (*domain.Recipient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, bound := range r.sessions {
		if bound.ID() == s.ID() {
			return r.recipients[id], true
		}
	}
	return nil, false
}
