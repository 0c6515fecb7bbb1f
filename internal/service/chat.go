// Package service implements the application logic of the chat system: chat
// creation, message delivery, seen-state reconciliation, and OTP auth.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/metrics"
	"github.com/quickchat/internal/model"
	"github.com/quickchat/internal/repository"
	"github.com/quickchat/internal/ws"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ChatStore is the persistence surface the service needs for chats.
// *repository.ChatRepository implements it.
type ChatStore interface {
	Create(ctx context.Context, c *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	FindByUsers(ctx context.Context, a, b string) (*model.Chat, error)
	ListByUser(ctx context.Context, userID string) ([]model.Chat, error)
}

// MessageStore is the persistence surface for messages.
// *repository.MessageRepository implements it.
type MessageStore interface {
	Append(ctx context.Context, m *model.Message, summaryText string) error
	ListByChat(ctx context.Context, chatID string) ([]model.Message, error)
	CountUnseen(ctx context.Context, chatID, userID string) (int, error)
	MarkSeen(ctx context.Context, chatID, readerID string, at time.Time) ([]string, error)
}

// Directory resolves user profiles, normally via the user service. Lookups
// must degrade to a placeholder rather than fail chat operations.
type Directory interface {
	GetUser(ctx context.Context, id string) (model.UserPublic, error)
}

// Emitter is the live fan-out surface. *ws.Hub implements it.
type Emitter interface {
	EmitToChat(chatID string, ev ws.OutgoingEvent)
	EmitToPersonal(userID string, ev ws.OutgoingEvent)
}

type ChatService struct {
	chats    ChatStore
	messages MessageStore
	users    Directory
	hub      Emitter
}

func NewChatService(chats ChatStore, messages MessageStore, users Directory, hub Emitter) *ChatService {
	return &ChatService{chats: chats, messages: messages, users: users, hub: hub}
}

// lookupUser resolves a profile, substituting the placeholder on any
// directory failure so chat flows keep working during an outage.
func (s *ChatService) lookupUser(ctx context.Context, id string) model.UserPublic {
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		logger.Errorf("chat: directory lookup %s: %v", id, err)
		return model.UnknownUser(id)
	}
	return u
}

// CreateChat returns the chat between userID and otherID, creating it if it
// does not exist. Creation is idempotent under concurrency: if both sides
// create at once, the loser re-reads the winner's row.
func (s *ChatService) CreateChat(ctx context.Context, userID, otherID string) (*model.Chat, error) {
	if otherID == "" || otherID == userID {
		return nil, fmt.Errorf("%w: need a distinct peer user id", ErrInvalidArgument)
	}
	if existing, err := s.chats.FindByUsers(ctx, userID, otherID); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("chatSvc.CreateChat find: %w", err)
	}

	now := time.Now().UTC()
	c := &model.Chat{
		ID:        uuid.NewString(),
		Users:     [2]string{userID, otherID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.chats.Create(ctx, c)
	if errors.Is(err, repository.ErrConflict) {
		return s.chats.FindByUsers(ctx, userID, otherID)
	}
	if err != nil {
		return nil, fmt.Errorf("chatSvc.CreateChat: %w", err)
	}
	logger.Infof("chat created %s (%s, %s)", c.ID, userID, otherID)
	return c, nil
}

// ListChats returns the user's chats, most recently active first, each with
// the other participant's profile and the unseen count computed from message
// rows. The count is authoritative; clients must not trust local counters.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]model.ChatWithUser, error) {
	chats, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("chatSvc.ListChats: %w", err)
	}
	out := make([]model.ChatWithUser, 0, len(chats))
	for _, c := range chats {
		unseen, err := s.messages.CountUnseen(ctx, c.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("chatSvc.ListChats unseen %s: %w", c.ID, err)
		}
		out = append(out, model.ChatWithUser{
			User:        s.lookupUser(ctx, c.OtherUser(userID)),
			Chat:        c,
			UnseenCount: unseen,
		})
	}
	return out, nil
}

// OpenChatResult is what the client needs to render a conversation view.
type OpenChatResult struct {
	User     model.UserPublic `json:"user"`
	Messages []model.Message  `json:"messages"`
}

// OpenChat returns the chat's history and reconciles seen state: every
// unseen message from the other participant flips to seen, and if any did,
// a messagesSeen event is broadcast to the chat room so the sender's client
// updates without refetching. Reopening with nothing unseen emits nothing.
func (s *ChatService) OpenChat(ctx context.Context, userID, chatID string) (*OpenChatResult, error) {
	chat, err := s.authorize(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	seenIDs, err := s.messages.MarkSeen(ctx, chatID, userID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("chatSvc.OpenChat seen: %w", err)
	}
	if len(seenIDs) > 0 {
		s.hub.EmitToChat(chatID, ws.OutgoingEvent{
			Type:    ws.EventMessagesSeen,
			Payload: ws.MessagesSeenPayload{ChatID: chatID, MessageIDs: seenIDs},
		})
	}

	messages, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("chatSvc.OpenChat history: %w", err)
	}
	return &OpenChatResult{
		User:     s.lookupUser(ctx, chat.OtherUser(userID)),
		Messages: messages,
	}, nil
}

// SendMessageRequest carries the client's message body. Exactly one of Text
// and Image must be set.
type SendMessageRequest struct {
	Text  string       `json:"text"`
	Image *model.Image `json:"image"`
}

// SendMessage validates, persists, and fans out a message. The insert and
// the chat-summary update commit in one transaction before any live event
// goes out, so an emitted message is always durable.
func (s *ChatService) SendMessage(ctx context.Context, userID, chatID string, req SendMessageRequest) (*model.Message, error) {
	hasText := req.Text != ""
	hasImage := req.Image != nil && req.Image.URL != ""
	if hasText == hasImage {
		return nil, fmt.Errorf("%w: message needs exactly one of text or image", ErrInvalidArgument)
	}

	chat, err := s.authorize(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	m := &model.Message{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		SenderID:    userID,
		MessageType: model.MessageTypeText,
		CreatedAt:   time.Now().UTC(),
	}
	if hasImage {
		m.MessageType = model.MessageTypeImage
		m.Image = req.Image
	} else {
		m.Text = req.Text
	}

	if err := s.messages.Append(ctx, m, m.SummaryText()); err != nil {
		return nil, fmt.Errorf("chatSvc.SendMessage: %w", err)
	}
	metrics.MessagesSent.WithLabelValues(string(m.MessageType)).Inc()

	// Chat room covers everyone viewing the conversation; the recipient's
	// personal room covers their chat list when they are elsewhere.
	ev := ws.OutgoingEvent{Type: ws.EventNewMessage, Payload: m}
	s.hub.EmitToChat(chatID, ev)
	s.hub.EmitToPersonal(chat.OtherUser(userID), ev)
	return m, nil
}

// authorize loads the chat and checks userID is a participant. Outsiders get
// ErrForbidden, not the chat's existence.
func (s *ChatService) authorize(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatSvc.authorize: %w", err)
	}
	if !chat.HasUser(userID) {
		return nil, ErrForbidden
	}
	return chat, nil
}
