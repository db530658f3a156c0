package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

type ConversationStore struct {
	db *pgxpool.Pool
}

func NewConversationStore(db *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{db: db}
}

// ListSessions returns session IDs in creation order, so a training
// corpus built by concatenation is stable across runs.
func (s *ConversationStore) ListSessions(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id FROM sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetMessages returns one session's messages ordered by position.
func (s *ConversationStore) GetMessages(ctx context.Context, sessionID uuid.UUID) ([]domain.Message, error) {
	rows, err := s.db.Query(ctx,
		`SELECT role, content, idx FROM messages
		 WHERE session_id = $1 ORDER BY idx`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Index); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		var exists bool
		err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`,
			sessionID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}
	return msgs, nil
}

// CreateSession stores a session and its messages in one transaction.
func (s *ConversationStore) CreateSession(ctx context.Context, c *domain.Conversation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO sessions (id, participant_id)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		c.ID, c.ParticipantID,
	).Scan(&c.CreatedAt)
	if err != nil {
		return err
	}
	for _, m := range c.Messages {
		if _, err := tx.Exec(ctx,
			`INSERT INTO messages (session_id, role, content, idx)
			 VALUES ($1, $2, $3, $4)`,
			c.ID, m.Role, m.Content, m.Index,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetSession loads a full conversation.
func (s *ConversationStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := s.db.QueryRow(ctx,
		`SELECT id, participant_id, created_at FROM sessions WHERE id = $1`,
		sessionID,
	).Scan(&c.ID, &c.ParticipantID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	msgs, err := s.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.Messages = msgs
	return c, nil
}
