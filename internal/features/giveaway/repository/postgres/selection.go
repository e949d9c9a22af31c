package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"

	"github.com/lib/pq"
)

type selectionRepository struct {
	db *sql.DB
}

func NewSelectionRepository(db *sql.DB) repository.SelectionRepository {
	return &selectionRepository{db: db}
}

// Create writes the audit row. One row per giveaway.
func (r *selectionRepository) Create(ctx context.Context, tx repository.Transaction, selection *models.WinnerSelection) error {
	q, err := conn(r.db, tx)
	if err != nil {
		return err
	}

	var selectedBy sql.NullInt64
	if selection.SelectedBy != nil {
		selectedBy = sql.NullInt64{Int64: *selection.SelectedBy, Valid: true}
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO giveaway_selections (id, giveaway_id, winner_user_id, method, selected_by, selected_at, eligible_pool)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, selection.ID, selection.GiveawayID, selection.WinnerUserID, selection.Method,
		selectedBy, selection.SelectedAt, pq.Array(selection.EligiblePool))
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadySelected
		}
		return fmt.Errorf("failed to create selection: %w", err)
	}
	return nil
}

func (r *selectionRepository) GetByGiveaway(ctx context.Context, giveawayID string) (*models.WinnerSelection, error) {
	var (
		s          models.WinnerSelection
		selectedBy sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, giveaway_id, winner_user_id, method, selected_by, selected_at, eligible_pool
		FROM giveaway_selections
		WHERE giveaway_id = $1
	`, giveawayID).Scan(&s.ID, &s.GiveawayID, &s.WinnerUserID, &s.Method, &selectedBy,
		&s.SelectedAt, pq.Array(&s.EligiblePool))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get selection: %w", err)
	}
	if selectedBy.Valid {
		v := selectedBy.Int64
		s.SelectedBy = &v
	}
	return &s, nil
}
