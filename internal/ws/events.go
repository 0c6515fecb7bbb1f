package ws

type EventType string

const (
	// server → client
	EventGetOnlineUser     EventType = "getOnlineUser"
	EventUserTyping        EventType = "userTyping"
	EventUserStoppedTyping EventType = "userStoppedTyping"
	EventNewMessage        EventType = "newMessage"
	EventMessagesSeen      EventType = "messagesSeen"

	// client → server
	EventTyping        EventType = "typing"
	EventStoppedTyping EventType = "stoppedTyping"
	EventJoinChat      EventType = "joinChat"
	EventLeaveChat     EventType = "leaveChat"
)

// IncomingEvent is what the client sends to the server. Only chatId is
// carried; the acting user is always the connection's registered principal.
type IncomingEvent struct {
	Type   EventType `json:"type"`
	ChatID string    `json:"chatId,omitempty"`
}

// OutgoingEvent is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// TypingPayload is relayed to a chat room for userTyping/userStoppedTyping.
type TypingPayload struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// MessagesSeenPayload is broadcast to a chat room when the recipient opens
// the chat, so senders can mark messages seen without refetching.
type MessagesSeenPayload struct {
	ChatID     string   `json:"chatId"`
	MessageIDs []string `json:"messageIds"`
}
