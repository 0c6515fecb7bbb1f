package model

import "time"

// LatestMessage is the denormalized summary kept on a chat for list previews.
// It is a projection of the message collection; the message rows stay the
// source of truth.
type LatestMessage struct {
	Text     string `json:"text"`
	SenderID string `json:"sender"`
}

// Chat is a conversation between exactly two users. At most one chat exists
// per unordered user pair.
type Chat struct {
	ID            string         `json:"_id"`
	Users         [2]string      `json:"users"`
	LatestMessage *LatestMessage `json:"latestMessage,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// OtherUser returns the participant that is not userID. Empty string if
// userID is not a participant.
func (c *Chat) OtherUser(userID string) string {
	switch userID {
	case c.Users[0]:
		return c.Users[1]
	case c.Users[1]:
		return c.Users[0]
	}
	return ""
}

// HasUser reports whether userID is one of the two participants.
func (c *Chat) HasUser(userID string) bool {
	return c.Users[0] == userID || c.Users[1] == userID
}

// ChatWithUser is a chat-list entry: the chat plus the other participant's
// profile and the server-computed unseen count. unseenCount is authoritative;
// any client-side counter is a display hint only.
type ChatWithUser struct {
	User        UserPublic `json:"user"`
	Chat        Chat       `json:"chat"`
	UnseenCount int        `json:"unseenCount"`
}
