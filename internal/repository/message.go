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

const messageCols = `id, chat_id, sender_id, text, image_url, image_public_id, message_type, seen, seen_at, created_at`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	var imageURL, imagePublicID string
	if err := s.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &imageURL, &imagePublicID,
		&m.MessageType, &m.Seen, &m.SeenAt, &m.CreatedAt); err != nil {
		return err
	}
	if imageURL != "" {
		m.Image = &model.Image{URL: imageURL, PublicID: imagePublicID}
	}
	return nil
}

func messageArgs(m *model.Message) []any {
	var imageURL, imagePublicID string
	if m.Image != nil {
		imageURL = m.Image.URL
		imagePublicID = m.Image.PublicID
	}
	return []any{m.ID, m.ChatID, m.SenderID, m.Text, imageURL, imagePublicID,
		m.MessageType, m.Seen, m.SeenAt, m.CreatedAt}
}

const insertMessageSQL = `INSERT INTO messages (` + messageCols + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	if _, err := r.pool.Exec(ctx, insertMessageSQL, messageArgs(m)...); err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

// Append inserts a message and refreshes the owning chat's latestMessage
// summary in one transaction, so the denormalized preview can never point at
// a message that was not durably written.
func (r *MessageRepository) Append(ctx context.Context, m *model.Message, summaryText string) error {
	defer logger.DeferLogDuration("msg.Append", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("msgRepo.Append begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertMessageSQL, messageArgs(m)...); err != nil {
		return fmt.Errorf("msgRepo.Append insert: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE chats SET latest_text = $1, latest_sender_id = $2, updated_at = $3 WHERE id = $4`,
		summaryText, m.SenderID, m.CreatedAt, m.ChatID,
	); err != nil {
		return fmt.Errorf("msgRepo.Append summary: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("msgRepo.Append commit: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1`, id)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// ListByChat returns the chat's full history in insertion order.
func (r *MessageRepository) ListByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByChat", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageCols+` FROM messages WHERE chat_id = $1 ORDER BY created_at, id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, 64)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByChat scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat rows: %w", err)
	}
	return messages, nil
}

// CountUnseen counts messages in the chat that userID has not seen yet
// (messages from the other participant with seen = false).
func (r *MessageRepository) CountUnseen(ctx context.Context, chatID, userID string) (int, error) {
	defer logger.DeferLogDuration("msg.CountUnseen", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = $1 AND sender_id != $2 AND seen = FALSE`,
		chatID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.CountUnseen: %w", err)
	}
	return count, nil
}

// MarkSeen transitions every unseen message from the other participant to
// seen in one statement and returns the affected ids. Calling it again with
// no new messages is a no-op returning an empty slice.
func (r *MessageRepository) MarkSeen(ctx context.Context, chatID, readerID string, at time.Time) ([]string, error) {
	defer logger.DeferLogDuration("msg.MarkSeen", time.Now())()
	rows, err := r.pool.Query(ctx,
		`UPDATE messages SET seen = TRUE, seen_at = $3
		 WHERE chat_id = $1 AND sender_id != $2 AND seen = FALSE
		 RETURNING id`,
		chatID, readerID, at,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.MarkSeen: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("msgRepo.MarkSeen scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.MarkSeen rows: %w", err)
	}
	return ids, nil
}
