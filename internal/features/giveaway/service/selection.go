package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/events"
	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"
	"luvrix-giveaway-engine/internal/metrics"
	"luvrix-giveaway-engine/internal/utils/random"
)

type selectionService struct {
	base
	rng random.Source
}

// NewSelectionService creates the winner selector. rng defaults to crypto/rand.
func NewSelectionService(d Deps, rng random.Source) SelectionService {
	if rng == nil {
		rng = random.Crypto()
	}
	return &selectionService{base: newBase(d), rng: rng}
}

func (s *selectionService) SelectRandomWinner(ctx context.Context, giveawayID string) (_ *models.WinnerSelection, err error) {
	defer observe("select_random", &err)
	return s.selectWinner(ctx, giveawayID, models.SelectionMethodRandom, 0, nil)
}

func (s *selectionService) SelectManualWinner(ctx context.Context, giveawayID string, winnerUserID, adminID int64) (_ *models.WinnerSelection, err error) {
	defer observe("select_manual", &err)
	return s.selectWinner(ctx, giveawayID, models.SelectionMethodManual, winnerUserID, &adminID)
}

// selectWinner runs the whole selection in one transaction: the participant
// status, the giveaway status and the audit record commit together or not at all.
func (s *selectionService) selectWinner(ctx context.Context, giveawayID string, method models.SelectionMethod, winnerUserID int64, adminID *int64) (*models.WinnerSelection, error) {
	const op = "giveaway.select_winner"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !validID(giveawayID) {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}

	tx, err := s.giveaways.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.FromPersistence(op, err)
	}
	defer tx.Rollback()

	g, err := s.giveaways.GetByIDWithLock(ctx, tx, giveawayID)
	if err != nil {
		return nil, giveawayErr(op, giveawayID, err)
	}
	if !g.Status.CanTransitionTo(models.GiveawayStatusWinnerSelected) {
		if g.Status == models.GiveawayStatusWinnerSelected {
			return nil, apperrors.NewAlreadySelectedError(giveawayID)
		}
		return nil, apperrors.NewInvalidStateError("select_winner", string(g.Status))
	}

	eligible, err := s.participants.ListEligible(ctx, tx, giveawayID)
	if err != nil {
		return nil, apperrors.FromPersistence(op, err)
	}
	pool := make([]int64, 0, len(eligible))
	for _, p := range eligible {
		pool = append(pool, p.UserID)
	}

	switch method {
	case models.SelectionMethodManual:
		if !contains(pool, winnerUserID) {
			return nil, apperrors.NewNotEligibleError(giveawayID, winnerUserID)
		}
	default:
		if len(pool) == 0 {
			return nil, apperrors.NewNoEligibleParticipantsError(giveawayID)
		}
		i, err := s.rng.Intn(len(pool))
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to draw a winner")
		}
		winnerUserID = pool[i]
	}

	if err := s.participants.SetStatus(ctx, tx, giveawayID, winnerUserID, models.ParticipantStatusWinner); err != nil {
		return nil, participantErr(op, giveawayID, winnerUserID, err)
	}

	ok, err := s.giveaways.UpdateStatusIfCurrent(ctx, tx, giveawayID, models.GiveawayStatusActive, models.GiveawayStatusWinnerSelected)
	if err != nil {
		return nil, apperrors.FromPersistence(op, err)
	}
	if !ok {
		return nil, apperrors.NewAlreadySelectedError(giveawayID)
	}

	selection := &models.WinnerSelection{
		ID:           uuid.New().String(),
		GiveawayID:   giveawayID,
		WinnerUserID: winnerUserID,
		Method:       method,
		SelectedBy:   adminID,
		SelectedAt:   s.now(),
		EligiblePool: pool,
	}
	if err := s.selections.Create(ctx, tx, selection); err != nil {
		if errors.Is(err, repository.ErrAlreadySelected) {
			return nil, apperrors.NewAlreadySelectedError(giveawayID)
		}
		return nil, apperrors.FromPersistence(op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.FromPersistence(op, err)
	}

	metrics.WinnerSelections.WithLabelValues(string(method)).Inc()
	g.Status = models.GiveawayStatusWinnerSelected
	s.invalidate(ctx, g)

	s.logger.Info("Winner selected",
		zap.String("giveaway_id", giveawayID),
		zap.Int64("winner_id", winnerUserID),
		zap.String("method", string(method)),
		zap.Int("pool_size", len(pool)))

	s.publish(ctx, events.New(events.TypeWinnerSelected, giveawayID, winnerUserID).
		With("method", string(method)).
		With("title", g.Title).
		With("prize_details", g.PrizeDetails))

	return selection, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *selectionService) GetSelection(ctx context.Context, giveawayID string) (_ *models.WinnerSelection, err error) {
	defer observe("get_selection", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !validID(giveawayID) {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	selection, err := s.selections.GetByGiveaway(ctx, giveawayID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("winner selection", giveawayID)
	}
	if err != nil {
		return nil, apperrors.FromPersistence("giveaway.get_selection", err)
	}
	return selection, nil
}
