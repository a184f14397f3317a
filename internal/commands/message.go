package commands

import (
	"context"
	"strings"

	"musicbot/internal/media"
)

// Message is a transport-neutral chat message.
type Message struct {
	ChatID    int64
	MessageID int64
	UserID    int64
	Private   bool
	Text      string
	Caption   string
	Document  *media.Source
	Audio     *media.Source
	ReplyTo   *Message
}

// Conversation sends replies into the chat a message came from.
type Conversation interface {
	Reply(ctx context.Context, text string) error
	SendDocument(ctx context.Context, path, caption string) error
	SendAudio(ctx context.Context, path, name, caption string) error
	StatusMessage(ctx context.Context, text string) (Status, error)
	Fetcher() media.Fetcher
}

// Status is an editable progress message.
type Status interface {
	Edit(ctx context.Context, text string) error
	Delete(ctx context.Context) error
}

// command is a parsed "/name arg..." directive.
type command struct {
	name string
	args []string
}

// parseCommand reads a leading slash command from text. Names are lowercased
// and a trailing "@botname" is dropped.
func parseCommand(text string) (command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return command{}, false
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return command{}, false
	}
	return command{name: strings.ToLower(name), args: fields[1:]}, true
}

// directive returns the text that carries the message's command: the caption
// for media messages, the text otherwise.
func (m Message) directive() string {
	if m.Document != nil || m.Audio != nil {
		if strings.TrimSpace(m.Caption) != "" {
			return m.Caption
		}
	}
	return m.Text
}
