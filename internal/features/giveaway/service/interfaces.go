package service

import (
	"context"
	"time"

	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/models/dto"
)

// GiveawayService administers giveaways and serves the public catalog
type GiveawayService interface {
	Create(ctx context.Context, input *dto.GiveawayCreateRequest) (*models.Giveaway, error)
	Activate(ctx context.Context, giveawayID string) (*models.Giveaway, error)
	End(ctx context.Context, giveawayID string) (*models.Giveaway, error)
	Extend(ctx context.Context, giveawayID string, newEndDate time.Time) (*models.Giveaway, error)
	GetByID(ctx context.Context, giveawayID string) (*models.GiveawayResponse, error)
	GetBySlug(ctx context.Context, slug string) (*models.GiveawayResponse, error)
	ListActive(ctx context.Context, limit, offset int) ([]*models.GiveawayResponse, error)
}

// ParticipationService is the participation ledger
type ParticipationService interface {
	Join(ctx context.Context, giveawayID string, userID int64, inviteCode string) (*models.Participant, error)
	CompleteTask(ctx context.Context, giveawayID string, userID int64, taskID string) (*models.Participant, error)
	RedeemInvite(ctx context.Context, giveawayID string, inviterUserID, referredUserID int64) (*models.Participant, error)
	GetStatus(ctx context.Context, giveawayID string, userID int64) (*models.ParticipantStatusResponse, error)
}

// SelectionService picks exactly one winner per giveaway
type SelectionService interface {
	SelectRandomWinner(ctx context.Context, giveawayID string) (*models.WinnerSelection, error)
	SelectManualWinner(ctx context.Context, giveawayID string, winnerUserID, adminID int64) (*models.WinnerSelection, error)
	GetSelection(ctx context.Context, giveawayID string) (*models.WinnerSelection, error)
}
