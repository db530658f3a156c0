package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

type AssignmentStore struct {
	db *pgxpool.Pool
}

func NewAssignmentStore(db *pgxpool.Pool) *AssignmentStore {
	return &AssignmentStore{db: db}
}

func (s *AssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	resultJSON, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	var fused *pgvector.Vector
	if len(a.FusedVector) > 0 {
		v := pgvector.NewVector(a.FusedVector)
		fused = &v
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO assignments (id, participant_id, bundle_version, result, fused_vector)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		a.ID, a.ParticipantID, a.BundleVersion, resultJSON, fused,
	).Scan(&a.CreatedAt)
}

func (s *AssignmentStore) ListByParticipant(ctx context.Context, participantID string, limit int) ([]domain.Assignment, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, participant_id, bundle_version, result, created_at
		 FROM assignments
		 WHERE participant_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		participantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		var resultJSON []byte
		if err := rows.Scan(&a.ID, &a.ParticipantID, &a.BundleVersion, &resultJSON, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(resultJSON, &a.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
