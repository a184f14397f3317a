package botapi

import (
	"strings"

	"musicbot/internal/commands"
	"musicbot/internal/media"
)

// Update is one inbound event from the bridge.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message mirrors the bridge's message object.
type Message struct {
	MessageID int64    `json:"message_id"`
	Chat      Chat     `json:"chat"`
	From      *User    `json:"from,omitempty"`
	Text      string   `json:"text,omitempty"`
	Caption   string   `json:"caption,omitempty"`
	Document  *File    `json:"document,omitempty"`
	Audio     *File    `json:"audio,omitempty"`
	Voice     *File    `json:"voice,omitempty"`
	ReplyTo   *Message `json:"reply_to_message,omitempty"`
}

// Chat identifies the conversation.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// User identifies the sender.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// File is an attached media object.
type File struct {
	FileID       string `json:"file_id"`
	FileUniqueID string `json:"file_unique_id"`
	FileName     string `json:"file_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
}

func (f *File) source(isAudio bool) *media.Source {
	if f == nil {
		return nil
	}
	return &media.Source{
		ID:       f.FileID,
		UniqueID: f.FileUniqueID,
		FileName: f.FileName,
		MimeType: f.MimeType,
		Size:     f.FileSize,
		IsAudio:  isAudio && strings.TrimSpace(f.FileID) != "",
	}
}

// ToCommand converts the wire message. Voice notes count as audio, as do
// documents with an audio mime type.
func (m *Message) ToCommand() commands.Message {
	out := commands.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Private:   m.Chat.Type == "private",
		Text:      m.Text,
		Caption:   m.Caption,
		Document:  m.Document.source(false),
	}
	if m.From != nil {
		out.UserID = m.From.ID
	}
	switch {
	case m.Audio != nil:
		out.Audio = m.Audio.source(true)
	case m.Voice != nil:
		voice := *m.Voice
		if voice.MimeType == "" {
			voice.MimeType = "audio/ogg"
		}
		out.Audio = voice.source(true)
	case m.Document != nil && strings.HasPrefix(strings.ToLower(m.Document.MimeType), "audio/"):
		out.Audio = m.Document.source(true)
	}
	if m.ReplyTo != nil {
		reply := m.ReplyTo.ToCommand()
		out.ReplyTo = &reply
	}
	return out
}
