package model

import "time"

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
)

// ImageSummaryText is the fixed chat-summary placeholder for image messages;
// the raw image reference never leaks into the preview.
const ImageSummaryText = "📷 Image"

// Message is a single chat message. Exactly one of Text and Image is set,
// enforced at accept time. Seen transitions false→true exactly once, when the
// other participant opens the chat.
type Message struct {
	ID          string      `json:"_id"`
	ChatID      string      `json:"chatId"`
	SenderID    string      `json:"sender"`
	Text        string      `json:"text,omitempty"`
	Image       *Image      `json:"image,omitempty"`
	MessageType MessageType `json:"messageType"`
	Seen        bool        `json:"seen"`
	SeenAt      *time.Time  `json:"seenAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Image is a reference to an externally stored upload.
type Image struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId,omitempty"`
}

// SummaryText returns the text to place in the chat's latestMessage preview.
func (m *Message) SummaryText() string {
	if m.MessageType == MessageTypeImage {
		return ImageSummaryText
	}
	return m.Text
}
