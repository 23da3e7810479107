package runtime

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"hotline/contract"
	"hotline/domain"
	"hotline/errors"
	"hotline/mocks"
)

type relayFixture struct {
	relay    *Relay
	registry *Registry
	pending  *PendingCache
	store    *mocks.MockIRecipientRepository
	sender   *mocks.MockReplySender
	resolver *mocks.MockContentResolver
}

func newRelayFixture(t *testing.T) relayFixture {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIRecipientRepository(ctrl)
	sender := mocks.NewMockReplySender(ctrl)
	resolver := mocks.NewMockContentResolver(ctrl)
	registry := NewRegistry(testRecipients())
	pending := NewPendingCache(60)

	return relayFixture{
		relay:    NewRelay(slog.Default(), registry, pending, store, sender, resolver),
		registry: registry,
		pending:  pending,
		store:    store,
		sender:   sender,
		resolver: resolver,
	}
}

func inboundVoice(id, duration int) domain.VoiceMessage {
	return domain.VoiceMessage{MessageID: id, ChatID: 555, FileID: "voice-file", Duration: duration, SentAt: 1700000000}
}

func TestRelay_Route_Single_Target(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	session := newStubSession()
	f.registry.Bind("pink", session)

	// Given a cached inbound message
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))

	f.store.EXPECT().SaveQueue("pink", gomock.Len(1)).Return(nil)

	// When the sender picks pink
	token := domain.CorrelationToken{PendingID: 42, TargetID: "pink"}.Encode()
	result, err := f.relay.Route(token)

	// Then the message is queued for pink only, not as a group message
	req.NoError(err)
	req.False(result.Broadcast)
	req.Equal("PINK LINE", result.RecipientName)
	req.Equal("🧠", result.RecipientIcon)

	pink, _ := f.registry.Get("pink")
	msg, ok := pink.Find(42)
	req.True(ok)
	req.False(msg.GroupMessage)

	red, _ := f.registry.Get("red")
	req.False(red.HasMessages())

	// And the bound session was notified
	req.Contains(session.events, contract.EventNotify)
}

func TestRelay_Route_Consumes_Pending_Exactly_Once(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))
	f.store.EXPECT().SaveQueue("pink", gomock.Any()).Return(nil)

	token := domain.CorrelationToken{PendingID: 42, TargetID: "pink"}.Encode()
	_, err := f.relay.Route(token)
	req.NoError(err)

	// A replayed button press finds nothing
	_, err = f.relay.Route(token)
	req.ErrorIs(err, errors.ErrStaleMessage)
}

func TestRelay_Route_Broadcast_Creates_Independent_Copies(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))

	f.store.EXPECT().SaveQueue("pink", gomock.Any()).Return(nil)
	f.store.EXPECT().SaveQueue("red", gomock.Any()).Return(nil)

	// When the sender picks "everyone"
	result, err := f.relay.Route(domain.CorrelationToken{PendingID: 42}.Encode())

	// Then each recipient holds its own group-flagged copy
	req.NoError(err)
	req.True(result.Broadcast)
	for _, id := range []string{"pink", "red"} {
		rec, _ := f.registry.Get(id)
		msg, ok := rec.Find(42)
		req.True(ok, "recipient %s", id)
		req.True(msg.GroupMessage)
	}

	// And removing pink's copy leaves red's copy alone
	f.store.EXPECT().SaveQueue("pink", gomock.Len(0)).Return(nil)
	f.sender.EXPECT().SendReply(gomock.Any(), int64(555), 42, gomock.Any()).Return(nil)
	f.relay.Reply(context.Background(), "pink", 42, "on my way")

	red, _ := f.registry.Get("red")
	_, ok := red.Find(42)
	req.True(ok)
}

func TestRelay_Route_Malformed_Token(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	_, err := f.relay.Route("definitely-not-a-token")

	req.ErrorIs(err, errors.ErrInvalidCorrelation)
}

func TestRelay_Route_Never_Cached_Pending_ID(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 99, TargetID: "pink"}.Encode())

	req.ErrorIs(err, errors.ErrStaleMessage)
}

func TestRelay_Route_Unknown_Recipient_Consumes_Pending(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))

	// When the token targets a recipient that is not registered
	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 42, TargetID: "blue"}.Encode())
	req.ErrorIs(err, errors.ErrUnknownRecipient)

	// Then the pending item is gone for good; a late broadcast cannot
	// resurrect it
	_, err = f.relay.Route(domain.CorrelationToken{PendingID: 42}.Encode())
	req.ErrorIs(err, errors.ErrStaleMessage)
}

func TestRelay_AcceptVoice_Duration_Gate(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	// When a 90 second voice note arrives
	err := f.relay.AcceptVoice(inboundVoice(7, 90))

	// Then it is rejected outright and no token can ever route it
	req.ErrorIs(err, errors.ErrDurationExceeded)
	_, err = f.relay.Route(domain.CorrelationToken{PendingID: 7, TargetID: "pink"}.Encode())
	req.ErrorIs(err, errors.ErrStaleMessage)
}

func TestRelay_AcceptVoice_Invalid_Payload(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	// Missing file reference
	err := f.relay.AcceptVoice(domain.VoiceMessage{MessageID: 1, ChatID: 2, Duration: 5})

	req.ErrorIs(err, errors.ErrInvalidPayload)
}

func TestRelay_Reply_Verbatim_For_Direct_Message(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))
	f.store.EXPECT().SaveQueue("pink", gomock.Any()).Return(nil)
	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 42, TargetID: "pink"}.Encode())
	req.NoError(err)

	// Then the reply text reaches the sender untouched
	f.sender.EXPECT().SendReply(gomock.Any(), int64(555), 42, "got it").Return(nil)
	f.store.EXPECT().SaveQueue("pink", gomock.Len(0)).Return(nil)

	f.relay.Reply(context.Background(), "pink", 42, "got it")

	pink, _ := f.registry.Get("pink")
	req.False(pink.HasMessages())
}

func TestRelay_Reply_Prefixes_Group_Messages(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))
	f.store.EXPECT().SaveQueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 42}.Encode())
	req.NoError(err)

	// The sender must see who of the group answered
	f.sender.EXPECT().SendReply(gomock.Any(), int64(555), 42, "🧠 PINK LINE: got it").Return(nil)
	f.store.EXPECT().SaveQueue("pink", gomock.Any()).Return(nil)

	f.relay.Reply(context.Background(), "pink", 42, "got it")
}

func TestRelay_Reply_Unknown_Message_Is_A_NoOp(t *testing.T) {
	f := newRelayFixture(t)

	// No dispatch, no persistence: the mocks would fail on any call
	f.relay.Reply(context.Background(), "pink", 1234, "too late")
	f.relay.Reply(context.Background(), "blue", 1, "no such recipient")
}

func TestRelay_Reply_Dispatch_Failure_Still_Dequeues(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))
	f.store.EXPECT().SaveQueue("pink", gomock.Any()).Return(nil)
	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 42, TargetID: "pink"}.Encode())
	req.NoError(err)

	// Given the sender cannot be reached
	f.sender.EXPECT().SendReply(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(context.DeadlineExceeded)
	f.store.EXPECT().SaveQueue("pink", gomock.Len(0)).Return(nil)

	// When the recipient answers anyway
	f.relay.Reply(context.Background(), "pink", 42, "hello?")

	// Then bookkeeping wins over acknowledgement
	pink, _ := f.registry.Get("pink")
	req.False(pink.HasMessages())
}

func TestRelay_Persistence_Failure_Keeps_In_Memory_State(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))

	// Given the store is down
	f.store.EXPECT().SaveQueue("pink", gomock.Any()).Return(context.DeadlineExceeded)

	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 42, TargetID: "pink"}.Encode())

	// Then routing still succeeds; memory is the source of truth
	req.NoError(err)
	pink, _ := f.registry.Get("pink")
	req.True(pink.HasMessages())
}

func TestRelay_Snapshot_Resolves_Own_Queue_Only(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))
	f.store.EXPECT().SaveQueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 42}.Encode())
	req.NoError(err)

	f.resolver.EXPECT().Resolve(gomock.Any(), "voice-file").
		Return("https://files.example/voice-file.oga", nil)

	// When pink pulls its queue
	payload, err := f.relay.Snapshot(context.Background(), "pink")

	// Then exactly pink's messages come back, content resolved
	req.NoError(err)
	req.True(payload.HasMessages)
	req.Len(payload.Messages, 1)
	req.Equal(42, payload.Messages[0].ID)
	req.Equal("https://files.example/voice-file.oga", payload.Messages[0].URL)
	req.NotEmpty(payload.Messages[0].Date)
}

func TestRelay_Snapshot_Empty_Queue(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	payload, err := f.relay.Snapshot(context.Background(), "red")

	req.NoError(err)
	req.False(payload.HasMessages)
	req.Empty(payload.Messages)
}

func TestRelay_InitData(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	payload, ok := f.relay.InitData("pink")
	req.True(ok)
	req.Equal(contract.InitPayload{Name: "PINK LINE", Icon: "🧠", HasMessages: false}, payload)

	_, ok = f.relay.InitData("blue")
	req.False(ok)
}

func TestRelay_RecipientChoices_Carry_Valid_Tokens(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)

	choices := f.relay.RecipientChoices(42)

	req.Len(choices, 2)
	req.Equal("🧠", choices[0].Label)
	token, err := domain.ParseToken(choices[0].Token)
	req.NoError(err)
	req.Equal(domain.CorrelationToken{PendingID: 42, TargetID: "pink"}, token)
}

func TestRelay_Notify_Reaches_Only_Latest_Session(t *testing.T) {
	req := require.New(t)
	f := newRelayFixture(t)
	old := newStubSession()
	fresh := newStubSession()
	f.registry.Bind("pink", old)
	f.registry.Bind("pink", fresh)

	req.NoError(f.relay.AcceptVoice(inboundVoice(42, 10)))
	f.store.EXPECT().SaveQueue("pink", gomock.Any()).Return(nil)
	_, err := f.relay.Route(domain.CorrelationToken{PendingID: 42, TargetID: "pink"}.Encode())
	req.NoError(err)

	req.Contains(fresh.events, contract.EventNotify)
	req.NotContains(old.events, contract.EventNotify)
}
