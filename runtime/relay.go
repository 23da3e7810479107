package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"hotline/contract"
	"hotline/domain"
	"hotline/errors"
)

// Relay is the routing and delivery engine. It consumes pending inbound
// messages, fans them out to recipient queues, persists every mutation and
// notifies live sessions. Queue state in memory is authoritative; persistence
// and delivery failures are logged, never retried and never rolled back.
type Relay struct {
	log      *slog.Logger
	registry contract.IRegistry
	pending  contract.IPendingCache
	store    contract.IRecipientRepository
	replies  contract.ReplySender
	resolver contract.ContentResolver
	validate *validator.Validate
}

func NewRelay(
	log *slog.Logger,
	registry contract.IRegistry,
	pending contract.IPendingCache,
	store contract.IRecipientRepository,
	replies contract.ReplySender,
	resolver contract.ContentResolver,
) *Relay {
	return &Relay{
		log:      log,
		registry: registry,
		pending:  pending,
		store:    store,
		replies:  replies,
		resolver: resolver,
		validate: validator.New(),
	}
}

// AcceptVoice validates an inbound voice message and parks it in the pending
// cache until the sender picks a recipient. The duration ceiling is enforced
// by the cache before any entry is created.
func (r *Relay) AcceptVoice(v domain.VoiceMessage) error {
	if err := r.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if err := r.pending.Put(v); err != nil {
		return err
	}
	r.log.Debug("Voice message cached", "message_id", v.MessageID, "duration", v.Duration)
	return nil
}

// Route resolves a correlation token into a routing decision.
//
// The pending item is consumed before any target resolution, exactly once:
// a second Route with the same token fails with ErrStaleMessage, and an
// unknown target does not resurrect the item. For a broadcast each recipient
// receives an independent copy, enqueued, persisted and notified in registry
// order; a persistence failure on one recipient is logged and does not block
// the remaining ones.
func (r *Relay) Route(rawToken string) (contract.RouteResult, error) {
	token, err := domain.ParseToken(rawToken)
	if err != nil {
		return contract.RouteResult{}, err
	}

	voice, ok := r.pending.Take(token.PendingID)
	if !ok {
		return contract.RouteResult{}, fmt.Errorf("%w: pending id %d", errors.ErrStaleMessage, token.PendingID)
	}

	if !token.Broadcast() {
		rec, ok := r.registry.Get(token.TargetID)
		if !ok {
			return contract.RouteResult{}, fmt.Errorf("%w: %q", errors.ErrUnknownRecipient, token.TargetID)
		}
		r.deliver(rec, domain.QueuedMessage{Voice: voice})
		return contract.RouteResult{RecipientName: rec.Name, RecipientIcon: rec.Icon}, nil
	}

	for _, rec := range r.registry.All() {
		r.deliver(rec, domain.QueuedMessage{Voice: voice, GroupMessage: true})
	}
	return contract.RouteResult{Broadcast: true}, nil
}

// deliver runs the enqueue-persist-notify cycle for one recipient.
func (r *Relay) deliver(rec *domain.Recipient, m domain.QueuedMessage) {
	queue := rec.Enqueue(m)
	if err := r.store.SaveQueue(rec.ID, queue); err != nil {
		r.log.Error("Queue persistence failed", "recipient", rec.ID, "error", err)
	}
	r.notify(rec.ID)
}

// notify pushes a lightweight "you have something new" signal to the bound
// session if one is present. Best-effort: never blocks, never fails the
// caller's operation.
func (r *Relay) notify(recipientID string) {
	r.log.Info(fmt.Sprintf("[%s] NOTIFY", recipientID))
	s, ok := r.registry.Session(recipientID)
	if !ok {
		return
	}
	if err := s.Emit(contract.EventNotify, nil); err != nil {
		r.log.Warn("Notify dropped", "recipient", recipientID, "error", err)
	}
}

// Reply dispatches a reply to the original sender and removes the message
// from the recipient's queue. A message id that is not queued (anymore) is
// silently ignored. Group messages are prefixed with the replying
// recipient's identity so the sender knows who answered. Dispatch failures
// are logged; dequeue and persistence proceed regardless.
func (r *Relay) Reply(ctx context.Context, recipientID string, messageID int, text string) {
	rec, ok := r.registry.Get(recipientID)
	if !ok {
		return
	}
	msg, ok := rec.Find(messageID)
	if !ok {
		return
	}

	out := text
	if msg.GroupMessage {
		out = fmt.Sprintf("%s %s: %s", rec.Icon, rec.Name, text)
	}
	if err := r.replies.SendReply(ctx, msg.Voice.ChatID, msg.Voice.MessageID, out); err != nil {
		r.log.Warn("Reply dispatch failed", "recipient", recipientID, "message_id", messageID, "error", err)
	}

	queue, removed := rec.Remove(messageID)
	if !removed {
		return
	}
	if err := r.store.SaveQueue(rec.ID, queue); err != nil {
		r.log.Error("Queue persistence failed", "recipient", rec.ID, "error", err)
	}
}

// Snapshot materializes a recipient's queue into its transferable form,
// resolving every file reference to a downloadable URL. Snapshots are pulled
// on demand by the client, never pushed.
func (r *Relay) Snapshot(ctx context.Context, recipientID string) (contract.QueuePayload, error) {
	rec, ok := r.registry.Get(recipientID)
	if !ok {
		return contract.QueuePayload{}, fmt.Errorf("%w: %q", errors.ErrUnknownRecipient, recipientID)
	}

	queue := rec.Queue()
	transfers := make([]domain.TransferMessage, 0, len(queue))
	for _, m := range queue {
		url, err := r.resolver.Resolve(ctx, m.Voice.FileID)
		if err != nil {
			return contract.QueuePayload{}, fmt.Errorf("resolving content for message %d: %w", m.Voice.MessageID, err)
		}
		transfers = append(transfers, domain.TransferMessage{
			ID:   m.Voice.MessageID,
			Date: m.Voice.TransferDate(),
			URL:  url,
		})
	}
	return contract.QueuePayload{HasMessages: len(transfers) > 0, Messages: transfers}, nil
}

// InitData describes a recipient to its freshly connected session.
func (r *Relay) InitData(recipientID string) (contract.InitPayload, bool) {
	rec, ok := r.registry.Get(recipientID)
	if !ok {
		return contract.InitPayload{}, false
	}
	return contract.InitPayload{Name: rec.Name, Icon: rec.Icon, HasMessages: rec.HasMessages()}, true
}

// RecipientChoices lists the selectable targets for a freshly received voice
// message, one per registered recipient, in broadcast order.
func (r *Relay) RecipientChoices(pendingID int) []contract.Choice {
	return lo.Map(r.registry.All(), func(rec *domain.Recipient, _ int) contract.Choice {
		return contract.Choice{
			Label: rec.Icon,
			Token: domain.CorrelationToken{PendingID: pendingID, TargetID: rec.ID}.Encode(),
		}
	})
}
