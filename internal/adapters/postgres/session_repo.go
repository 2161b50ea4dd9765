package postgres

import (
	"context"

	"github.com/oskarena/landgrab/internal/core/domain"
)

// ExplorationSessionRepo implements ports.ExplorationSessionRepository.
type ExplorationSessionRepo struct {
	db *DB
}

func NewExplorationSessionRepo(db *DB) *ExplorationSessionRepo {
	return &ExplorationSessionRepo{db: db}
}

func (r *ExplorationSessionRepo) Insert(ctx context.Context, s *domain.ExplorationSession) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO exploration_sessions (id, owner_id, distance_m, started_at, ended_at, terminated)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.OwnerID, s.DistanceM, s.StartedAt, s.EndedAt, s.Terminated)
	return err
}

func (r *ExplorationSessionRepo) ListByOwner(ctx context.Context, ownerID string, limit int) ([]domain.ExplorationSession, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, owner_id, distance_m, started_at, ended_at, terminated
		FROM exploration_sessions
		WHERE owner_id = $1
		ORDER BY ended_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ExplorationSession
	for rows.Next() {
		var s domain.ExplorationSession
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.DistanceM, &s.StartedAt, &s.EndedAt, &s.Terminated); err != nil {
			return nil, err
		}
		s.Duration = s.EndedAt.Sub(s.StartedAt)
		out = append(out, s)
	}
	return out, rows.Err()
}
