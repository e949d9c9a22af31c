package repository

import (
	"context"
	"errors"

	"luvrix-giveaway-engine/internal/features/support/models"
)

var ErrDuplicate = errors.New("support already recorded")

// SupportRepository is an append-only ledger: there is no update or delete.
type SupportRepository interface {
	Create(ctx context.Context, support *models.Support) error
	// ListByGiveaway returns entries newest first.
	ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Support, error)
}
