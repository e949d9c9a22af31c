package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"luvrix-giveaway-engine/internal/features/support/models"
	"luvrix-giveaway-engine/internal/features/support/repository"
)

type supportRepository struct {
	db *sql.DB
}

func NewSupportRepository(db *sql.DB) repository.SupportRepository {
	return &supportRepository{db: db}
}

func (r *supportRepository) Create(ctx context.Context, s *models.Support) error {
	var userID sql.NullInt64
	if s.UserID != nil {
		userID = sql.NullInt64{Int64: *s.UserID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO giveaway_supports (id, giveaway_id, user_id, amount, donor_name, is_anonymous, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.GiveawayID, userID, s.Amount, s.DonorName, s.IsAnonymous, s.Message, s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to record support: %w", err)
	}
	return nil
}

func (r *supportRepository) ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Support, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, giveaway_id, user_id, amount, donor_name, is_anonymous, message, created_at
		FROM giveaway_supports
		WHERE giveaway_id = $1
		ORDER BY created_at DESC, id DESC
	`, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list supports: %w", err)
	}
	defer rows.Close()

	var supports []*models.Support
	for rows.Next() {
		var (
			s      models.Support
			userID sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.GiveawayID, &userID, &s.Amount, &s.DonorName,
			&s.IsAnonymous, &s.Message, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan support: %w", err)
		}
		if userID.Valid {
			v := userID.Int64
			s.UserID = &v
		}
		supports = append(supports, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate supports: %w", err)
	}
	return supports, nil
}
