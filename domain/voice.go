// Package domain contains core concepts of the hotline relay.
// Voice messages are immutable once received; only their queue
// placement changes over time.
package domain

import "time"

// VoiceMessage is the durable reference to one inbound voice note. It carries
// everything needed to fetch the audio later and to reply to the original
// sender, so a queue survives a process restart without talking to the bot.
type VoiceMessage struct {
	MessageID int    `json:"message_id" validate:"required"`
	ChatID    int64  `json:"chat_id" validate:"required"`
	FileID    string `json:"file_id" validate:"required,max=256"`
	Duration  int    `json:"duration" validate:"gte=0"`
	SentAt    int64  `json:"sent_at"`
}

// QueuedMessage is one entry of a recipient's queue. A broadcast creates an
// independent copy per recipient; copies are equal by value but never aliased.
type QueuedMessage struct {
	Voice        VoiceMessage `json:"voice"`
	GroupMessage bool         `json:"group_message"`
}

// TransferMessage is the over-the-wire form of a queued message, with the
// content reference already resolved to a downloadable URL.
type TransferMessage struct {
	ID   int    `json:"id"`
	Date string `json:"date"`
	URL  string `json:"url"`
}

// TransferDate formats the original send time the way phone clients expect.
func (v VoiceMessage) TransferDate() string {
	return time.Unix(v.SentAt, 0).UTC().Format(time.RFC3339)
}
