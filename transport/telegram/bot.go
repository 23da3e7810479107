// Package telegram adapts the Telegram bot API to the relay: voice messages
// come in, recipient choices go out as inline keyboards, and routing
// confirmations are edited into the prompt message.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hotline/contract"
	"hotline/domain"
	"hotline/errors"
)

const (
	startText        = "Hi! Send me a voice message and I will put it on the hotline."
	askRecipientText = "Who should receive this message?\n"
	recipientAllText = "Everyone"
	sentText         = "Message sent to "
	sentToAllText    = "Message sent to everyone."
	updateTimeout    = 30 // long-poll seconds
)

// Bot consumes the update stream as a supervised worker. Every handler
// recovers routing errors into a short chat answer; malformed input from the
// outside never crashes the process.
type Bot struct {
	log      *slog.Logger
	api      *tgbotapi.BotAPI
	relay    contract.IRelay
	registry contract.IRegistry
}

func NewBot(log *slog.Logger, api *tgbotapi.BotAPI, relay contract.IRelay, registry contract.IRegistry) *Bot {
	return &Bot{log: log, api: api, relay: relay, registry: registry}
}

// Run blocks on the update channel until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeout
	updates := b.api.GetUpdatesChan(cfg)

	b.log.Info("Bot update loop started", "account", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.onRecipientSelected(update.CallbackQuery)
	case update.Message == nil:
		// Edits, channel posts etc. are none of our business
	case update.Message.Voice != nil:
		b.onVoice(ctx, update.Message)
	case update.Message.IsCommand():
		b.onCommand(update.Message)
	}
}

func (b *Bot) onCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.sendText(msg.Chat.ID, startText)
	}
}

// onVoice gates the voice note on the duration ceiling, caches it and offers
// the sender one button per recipient plus a broadcast button. The buttons
// carry correlation tokens that come back through onRecipientSelected.
func (b *Bot) onVoice(_ context.Context, msg *tgbotapi.Message) {
	voice := domain.VoiceMessage{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		FileID:    msg.Voice.FileID,
		Duration:  msg.Voice.Duration,
		SentAt:    int64(msg.Date),
	}

	if err := b.relay.AcceptVoice(voice); err != nil {
		b.log.Warn("Voice message rejected", "message_id", msg.MessageID, "error", err)
		b.sendText(msg.Chat.ID, errors.UserMessage(err))
		return
	}

	prompt := tgbotapi.NewMessage(msg.Chat.ID, b.recipientPrompt())
	prompt.ReplyMarkup = b.recipientKeyboard(msg.MessageID)
	if _, err := b.api.Send(prompt); err != nil {
		b.log.Error("Failed to send recipient prompt", "chat_id", msg.Chat.ID, "error", err)
	}
}

func (b *Bot) recipientPrompt() string {
	var sb strings.Builder
	sb.WriteString(askRecipientText)
	for _, rec := range b.registry.All() {
		sb.WriteString(fmt.Sprintf("%s %s\n", rec.Icon, rec.Name))
	}
	return sb.String()
}

func (b *Bot) recipientKeyboard(pendingID int) tgbotapi.InlineKeyboardMarkup {
	broadcast := domain.CorrelationToken{PendingID: pendingID}.Encode()

	var row []tgbotapi.InlineKeyboardButton
	for _, choice := range b.relay.RecipientChoices(pendingID) {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Token))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(recipientAllText, broadcast)),
		row,
	)
}

// onRecipientSelected resolves the token carried by the pressed button and
// edits the prompt message into a confirmation or a short error.
func (b *Bot) onRecipientSelected(cq *tgbotapi.CallbackQuery) {
	// Dismiss the loading popup, best-effort
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		b.log.Debug("Callback ack failed", "error", err)
	}

	result, err := b.relay.Route(cq.Data)

	var text string
	switch {
	case err != nil:
		b.log.Warn("Routing failed", "token", cq.Data, "error", err)
		text = errors.UserMessage(err)
	case result.Broadcast:
		text = sentToAllText
	default:
		text = fmt.Sprintf("%s%s %s", sentText, result.RecipientIcon, result.RecipientName)
	}

	if cq.Message == nil {
		return
	}
	edit := tgbotapi.NewEditMessageText(cq.Message.Chat.ID, cq.Message.MessageID, text)
	if _, err := b.api.Send(edit); err != nil {
		b.log.Warn("Confirmation edit failed", "chat_id", cq.Message.Chat.ID, "error", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("Failed to send message", "chat_id", chatID, "error", err)
	}
}
