package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is the thin outbound surface of the bot API consumed by the relay:
// reply dispatch and file-reference resolution. The bot API itself carries no
// context support, so the parameters exist only to honor the contract.
type Client struct {
	api *tgbotapi.BotAPI
}

func NewClient(api *tgbotapi.BotAPI) *Client {
	return &Client{api: api}
}

// SendReply answers the original voice message in its source chat.
func (c *Client) SendReply(_ context.Context, chatID int64, messageID int, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = messageID
	_, err := c.api.Send(msg)
	return err
}

// Resolve turns a stored file id into a short-lived download URL.
func (c *Client) Resolve(_ context.Context, fileID string) (string, error) {
	return c.api.GetFileDirectURL(fileID)
}
