// Package chat holds the conversation with the Snowboard Doctor backend: the
// append-only message log, the single in-flight request gate and the webhook
// client that carries each exchange.
package chat

import (
	"time"

	"snowboard-doctor/internal/utils"
)

type Author int

const (
	AuthorUser Author = iota + 1
	AuthorAssistant
)

func (a Author) String() string {
	switch a {
	case AuthorUser:
		return "user"
	case AuthorAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Message is one entry in the conversation log. Messages are never edited
// once appended.
type Message struct {
	ID        string
	Content   string
	Author    Author
	CreatedAt time.Time
}

func NewMessage(author Author, content string, createdAt time.Time) Message {
	return Message{
		ID:        utils.NewID("msg"),
		Content:   content,
		Author:    author,
		CreatedAt: createdAt,
	}
}

func (m Message) FromUser() bool {
	return m.Author == AuthorUser
}
