//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"hotline/domain"
)

// Outbound wire events pushed to phone clients.
const (
	EventInit        = "init"
	EventNotify      = "notify"
	EventNewMessages = "new_messages"
)

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Session is one live phone-client connection. Emit must never block: a full
// outbound buffer returns errors.ErrSessionBusy and the event is dropped.
type Session interface {
	ID() string
	Emit(event string, payload any) error
}

// IRegistry owns the recipients and their live session bindings.
// Binding is last-writer-wins: a second connect for the same recipient
// silently displaces the previous session.
type IRegistry interface {
	Get(recipientID string) (*domain.Recipient, bool)
	All() []*domain.Recipient
	Bind(recipientID string, s Session)
	Unbind(s Session)
	Session(recipientID string) (Session, bool)
	RecipientOf(s Session) (*domain.Recipient, bool)
}

// IPendingCache holds inbound voice messages that have not been assigned to
// a recipient yet. Entries live until taken or until the process restarts.
type IPendingCache interface {
	Put(v domain.VoiceMessage) error
	Take(pendingID int) (domain.VoiceMessage, bool)
}

// ReplySender dispatches a reply to the sender of the original message.
type ReplySender interface {
	SendReply(ctx context.Context, chatID int64, messageID int, text string) error
}

// ContentResolver turns a stored file reference into a downloadable URL.
type ContentResolver interface {
	Resolve(ctx context.Context, fileID string) (string, error)
}

// IRecipientRepository is the durability layer for recipient queues.
type IRecipientRepository interface {
	LoadAll() ([]*domain.Recipient, error)
	SaveQueue(recipientID string, queue []domain.QueuedMessage) error
	Seed(recipients []*domain.Recipient) error
}

// RouteResult describes a successful routing decision, used to compose the
// confirmation shown to the sender.
type RouteResult struct {
	Broadcast     bool
	RecipientName string
	RecipientIcon string
}

// Choice is one selectable routing target offered to the sender, carrying
// the correlation token to hand back when picked.
type Choice struct {
	Label string
	Token string
}

// InitPayload is sent to a phone client right after it announces itself.
type InitPayload struct {
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	HasMessages bool   `json:"hasMessages"`
}

// QueuePayload carries a materialized queue snapshot to a phone client.
type QueuePayload struct {
	HasMessages bool                     `json:"hasMessages"`
	Messages    []domain.TransferMessage `json:"messages"`
}

// IRelay is the routing and delivery engine consumed by both transports.
type IRelay interface {
	// AcceptVoice gates an inbound voice message on the duration ceiling and
	// caches it for a later routing decision.
	AcceptVoice(v domain.VoiceMessage) error
	// Route resolves a correlation token into enqueue+persist+notify on the
	// target recipients. The pending item is consumed exactly once.
	Route(rawToken string) (RouteResult, error)
	// Reply dispatches a reply to the original sender and dequeues the
	// message. Unknown ids are ignored.
	Reply(ctx context.Context, recipientID string, messageID int, text string)
	// Snapshot materializes a recipient's queue with resolved content URLs.
	Snapshot(ctx context.Context, recipientID string) (QueuePayload, error)
	// InitData describes a recipient to its freshly connected session.
	InitData(recipientID string) (InitPayload, bool)
	// RecipientChoices lists the selectable targets for a pending message.
	RecipientChoices(pendingID int) []Choice
}
