package runtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"hotline/domain"
)

type stubSession struct {
	id     string
	events []string
}

func newStubSession() *stubSession {
	return &stubSession{id: uuid.NewString()}
}

func (s *stubSession) ID() string { return s.id }

func (s *stubSession) Emit(event string, _ any) error {
	s.events = append(s.events, event)
	return nil
}

func testRecipients() []*domain.Recipient {
	return []*domain.Recipient{
		domain.NewRecipient("pink", "PINK LINE", "🧠", nil),
		domain.NewRecipient("red", "RED LINE", "🥫", nil),
	}
}

func TestRegistry_All_Preserves_Load_Order(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testRecipients())

	all := registry.All()

	req.Len(all, 2)
	req.Equal("pink", all[0].ID)
	req.Equal("red", all[1].ID)
}

func TestRegistry_Bind_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testRecipients())
	session := newStubSession()

	// Given no session is bound
	_, ok := registry.Session("pink")
	req.False(ok)

	// When a session announces itself for pink
	registry.Bind("pink", session)

	// Then it is reachable both ways
	bound, ok := registry.Session("pink")
	req.True(ok)
	req.Equal(session.ID(), bound.ID())

	rec, ok := registry.RecipientOf(session)
	req.True(ok)
	req.Equal("pink", rec.ID)
}

func TestRegistry_Rebind_Is_Last_Writer_Wins(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testRecipients())
	first := newStubSession()
	second := newStubSession()

	// Given an existing binding
	registry.Bind("pink", first)

	// When a second connection binds the same recipient
	registry.Bind("pink", second)

	// Then only the new session is reachable
	bound, ok := registry.Session("pink")
	req.True(ok)
	req.Equal(second.ID(), bound.ID())

	// And unbinding the displaced session is a no-op
	registry.Unbind(first)
	bound, ok = registry.Session("pink")
	req.True(ok)
	req.Equal(second.ID(), bound.ID())
}

func TestRegistry_Unbind_Clears_Binding(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testRecipients())
	session := newStubSession()
	registry.Bind("red", session)

	registry.Unbind(session)

	_, ok := registry.Session("red")
	req.False(ok)
	_, ok = registry.RecipientOf(session)
	req.False(ok)

	// Unbinding twice stays quiet
	registry.Unbind(session)
}

func TestRegistry_Get_Unknown_Recipient(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(testRecipients())

	_, ok := registry.Get("blue")
	req.False(ok)
}
