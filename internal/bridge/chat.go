package bridge

import (
	"context"

	"musicbot/internal/commands"
	"musicbot/internal/media"
)

// Chat is the conversation with one inbound message. Replies are threaded
// under that message.
type Chat struct {
	client    *Client
	chatID    int64
	messageID int64
}

// NewChat binds client to the chat and message being answered.
func NewChat(client *Client, chatID, messageID int64) *Chat {
	return &Chat{client: client, chatID: chatID, messageID: messageID}
}

func (c *Chat) Reply(ctx context.Context, text string) error {
	_, err := c.client.SendMessage(ctx, c.chatID, c.messageID, text)
	return err
}

func (c *Chat) SendDocument(ctx context.Context, path, caption string) error {
	return c.client.SendDocument(ctx, Upload{ChatID: c.chatID, ReplyTo: c.messageID, Path: path, Caption: caption})
}

func (c *Chat) SendAudio(ctx context.Context, path, name, caption string) error {
	return c.client.SendAudio(ctx, Upload{ChatID: c.chatID, ReplyTo: c.messageID, Path: path, Name: name, Caption: caption})
}

func (c *Chat) StatusMessage(ctx context.Context, text string) (commands.Status, error) {
	id, err := c.client.SendMessage(ctx, c.chatID, c.messageID, text)
	if err != nil {
		return nil, err
	}
	return &statusNote{client: c.client, chatID: c.chatID, messageID: id}, nil
}

func (c *Chat) Fetcher() media.Fetcher {
	return c.client
}

type statusNote struct {
	client    *Client
	chatID    int64
	messageID int64
}

func (s *statusNote) Edit(ctx context.Context, text string) error {
	return s.client.EditMessageText(ctx, s.chatID, s.messageID, text)
}

func (s *statusNote) Delete(ctx context.Context) error {
	return s.client.DeleteMessage(ctx, s.chatID, s.messageID)
}
