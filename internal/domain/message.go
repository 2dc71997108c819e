package domain

import "time"

// Message is one chat message threaded through the graph on message_list
// ports and persisted by the message store.
type Message struct {
	// ID is the wire-level message identifier assigned by the bot server.
	ID string `json:"id"`
	// ConversationID groups messages belonging to the same private chat
	// or group.
	ConversationID string `json:"conversation_id,omitempty"`
	// Role is the speaker role: "user", "assistant", or "system".
	Role string `json:"role"`
	// Sender is the display name of the message author, when known.
	Sender string `json:"sender,omitempty"`
	// Content is the message text.
	Content string `json:"content"`
	// SentAt records when the message was produced.
	SentAt time.Time `json:"sent_at,omitzero"`
}

// MessageEvent is one decoded event received from the bot server.
// The bot adapter node emits its fields as separate output values so
// downstream nodes can consume them without knowing the wire format.
type MessageEvent struct {
	// MessageID identifies the event's message for later store lookup.
	MessageID string `json:"message_id"`
	// Type distinguishes private from group messages.
	Type string `json:"message_type"`
	// UserID identifies the sending user.
	UserID string `json:"user_id"`
	// ConversationID is the chat or group the event belongs to.
	ConversationID string `json:"conversation_id"`
	// Content is the decoded message text.
	Content string `json:"content"`
	// ReceivedAt records when the adapter decoded the event.
	ReceivedAt time.Time `json:"received_at,omitzero"`
}

// AsMessage converts the event into a store-ready Message with the user
// role.
func (e MessageEvent) AsMessage() Message {
	return Message{
		ID:             e.MessageID,
		ConversationID: e.ConversationID,
		Role:           "user",
		Sender:         e.UserID,
		Content:        e.Content,
		SentAt:         e.ReceivedAt,
	}
}
