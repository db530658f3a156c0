package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SemanticEncoder maps window texts to fixed-length embedding rows.
// Implementations must be safe for concurrent use.
type SemanticEncoder interface {
	// Encode returns one row per input text. Rows are L2-normalized
	// when the backend supports it.
	Encode(ctx context.Context, texts []string) ([][]float64, error)
	// Mode names the active backend variant ("openai", "hash", "mock").
	Mode() string
	// Model names the underlying embedding model, if any.
	Model() string
	// Dim is the output embedding width.
	Dim() int
}

// Conversation is a stored tutoring session used as training corpus.
type Conversation struct {
	ID            uuid.UUID `json:"id"`
	ParticipantID string    `json:"participant_id"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"created_at"`
}

// ConversationStore loads training corpus conversations.
type ConversationStore interface {
	// ListSessions returns session IDs in creation order.
	ListSessions(ctx context.Context) ([]uuid.UUID, error)
	// GetMessages returns the ordered messages of one session.
	GetMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
}

// Assignment is a persisted AssignmentResult row, including the fused
// vector of the classified window for offline drift audits.
type Assignment struct {
	ID            uuid.UUID         `json:"id"`
	ParticipantID string            `json:"participant_id"`
	BundleVersion string            `json:"bundle_version"`
	Result        *AssignmentResult `json:"result"`
	FusedVector   []float32         `json:"-"`
	CreatedAt     time.Time         `json:"created_at"`
}

// AssignmentStore persists analysis outcomes.
type AssignmentStore interface {
	Create(ctx context.Context, a *Assignment) error
	ListByParticipant(ctx context.Context, participantID string, limit int) ([]Assignment, error)
}
