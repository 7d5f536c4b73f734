package chat

import (
	"context"
	"errors"

	"github.com/spec-kit/helpdesk-bot/internal/cards"
)

// ErrConversationNotFound is returned when the target conversation or message no longer exists.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrMemberNotFound is returned by member directories for unknown ids.
var ErrMemberNotFound = errors.New("member not found")

// ConversationRef addresses a chat conversation (a channel or a direct chat).
type ConversationRef struct {
	ConversationID string
	// ThreadID, when set, posts the message as a reply inside that thread.
	ThreadID string
}

// MessageRef addresses a message that was previously sent.
type MessageRef struct {
	ConversationID string
	ActivityID     string
}

// Mention tags a member inside message text. Text is the literal placeholder
// found in Message.Text, e.g. "<at>Jane</at>".
type Mention struct {
	Text     string
	ObjectID string
	Name     string
}

// Message is an outbound chat message: text, a card, or both.
type Message struct {
	Text     string
	Mentions []Mention
	Card     *cards.Card
}

// Dispatcher delivers messages to the chat platform.
type Dispatcher interface {
	Send(ctx context.Context, to ConversationRef, msg Message) (MessageRef, error)
	Update(ctx context.Context, ref MessageRef, msg Message) error
}
