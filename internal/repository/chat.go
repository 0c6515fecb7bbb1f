package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quickchat/internal/logger"
	"github.com/quickchat/internal/model"
)

const chatCols = `id, user_a, user_b, latest_text, latest_sender_id, created_at, updated_at`

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// scanChat scans a row in chatCols order. An empty latest_sender_id means the
// chat has no messages yet and LatestMessage stays nil.
func scanChat(s interface{ Scan(dest ...any) error }, c *model.Chat) error {
	var latestText, latestSender string
	if err := s.Scan(&c.ID, &c.Users[0], &c.Users[1], &latestText, &latestSender, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return err
	}
	if latestSender != "" {
		c.LatestMessage = &model.LatestMessage{Text: latestText, SenderID: latestSender}
	}
	return nil
}

// Create inserts a chat. The unique index on the unordered user pair makes
// concurrent creation from both sides safe: the loser gets ErrConflict and
// re-reads the winner's row.
func (r *ChatRepository) Create(ctx context.Context, c *model.Chat) error {
	defer logger.DeferLogDuration("chat.Create", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO chats (id, user_a, user_b, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT DO NOTHING`,
		c.ID, c.Users[0], c.Users[1], c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.Create: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	c := &model.Chat{}
	row := r.pool.QueryRow(ctx, `SELECT `+chatCols+` FROM chats WHERE id = $1`, id)
	if err := scanChat(row, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("chatRepo.GetByID: %w", err)
	}
	return c, nil
}

// FindByUsers returns the chat for the unordered pair (a, b), if any.
func (r *ChatRepository) FindByUsers(ctx context.Context, a, b string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.FindByUsers", time.Now())()
	c := &model.Chat{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+chatCols+` FROM chats
		 WHERE (user_a = $1 AND user_b = $2) OR (user_a = $2 AND user_b = $1)`,
		a, b,
	)
	if err := scanChat(row, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("chatRepo.FindByUsers: %w", err)
	}
	return c, nil
}

// ListByUser returns the user's chats, most recently active first.
func (r *ChatRepository) ListByUser(ctx context.Context, userID string) ([]model.Chat, error) {
	defer logger.DeferLogDuration("chat.ListByUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+chatCols+` FROM chats
		 WHERE user_a = $1 OR user_b = $1
		 ORDER BY updated_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListByUser query: %w", err)
	}
	defer rows.Close()

	chats := make([]model.Chat, 0, 16)
	for rows.Next() {
		var c model.Chat
		if err := scanChat(rows, &c); err != nil {
			return nil, fmt.Errorf("chatRepo.ListByUser scan: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.ListByUser rows: %w", err)
	}
	return chats, nil
}
