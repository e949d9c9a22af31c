package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/cache"
	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/events"
	"luvrix-giveaway-engine/internal/features/support/models"
	"luvrix-giveaway-engine/internal/features/support/repository"
	"luvrix-giveaway-engine/internal/metrics"
)

// GiveawayChecker is the only view of giveaways the support ledger has.
type GiveawayChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type SupportService interface {
	RecordSupport(ctx context.Context, input models.SupportInput) (*models.Support, error)
	GetAggregates(ctx context.Context, giveawayID string) (*models.Aggregates, error)
}

type supportService struct {
	repo      repository.SupportRepository
	giveaways GiveawayChecker
	cache     *cache.Layered
	publisher events.Publisher
	timeout   time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewSupportService wires the ledger. cache may be nil.
func NewSupportService(
	repo repository.SupportRepository,
	giveaways GiveawayChecker,
	cache *cache.Layered,
	publisher events.Publisher,
	timeout time.Duration,
	logger *zap.Logger,
) SupportService {
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &supportService{
		repo:      repo,
		giveaways: giveaways,
		cache:     cache,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func aggregatesKey(giveawayID string) string {
	return "support:aggregates:" + giveawayID
}

func (s *supportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func validateInput(input *models.SupportInput) error {
	if input.Amount < 1 {
		return apperrors.NewValidationError("amount", "must be at least 1")
	}
	input.DonorName = strings.TrimSpace(input.DonorName)
	if utf8.RuneCountInString(input.DonorName) > models.MaxDonorNameLength {
		return apperrors.NewValidationError("donor_name", "must be at most 100 characters")
	}
	input.Message = strings.TrimSpace(input.Message)
	if utf8.RuneCountInString(input.Message) > models.MaxMessageLength {
		return apperrors.NewValidationError("message", "must be at most 500 characters")
	}
	// nameless supporters are shown as anonymous
	if input.DonorName == "" {
		input.IsAnonymous = true
	}
	return nil
}

// RecordSupport appends a ledger entry. The giveaway status is irrelevant:
// supporting an ended giveaway is allowed.
func (s *supportService) RecordSupport(ctx context.Context, input models.SupportInput) (*models.Support, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(input.GiveawayID); err != nil {
		return nil, apperrors.NewGiveawayNotFoundError(input.GiveawayID)
	}

	exists, err := s.giveaways.Exists(ctx, input.GiveawayID)
	if err != nil {
		return nil, apperrors.FromPersistence("support.record", err)
	}
	if !exists {
		return nil, apperrors.NewGiveawayNotFoundError(input.GiveawayID)
	}

	support := &models.Support{
		ID:          uuid.New().String(),
		GiveawayID:  input.GiveawayID,
		UserID:      input.UserID,
		Amount:      input.Amount,
		DonorName:   input.DonorName,
		IsAnonymous: input.IsAnonymous,
		Message:     input.Message,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, support); err != nil {
		return nil, apperrors.FromPersistence("support.record", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, aggregatesKey(input.GiveawayID))
	}

	metrics.Supports.Inc()
	metrics.SupportAmount.Add(float64(support.Amount))

	s.logger.Info("Support recorded",
		zap.String("giveaway_id", support.GiveawayID),
		zap.String("support_id", support.ID),
		zap.Int64("amount", support.Amount),
		zap.Bool("anonymous", support.IsAnonymous))

	if err := s.publisher.Publish(ctx, events.New(events.TypeSupportRecorded, support.GiveawayID, 0).
		With("amount", support.Amount)); err != nil {
		s.logger.Warn("Support event not published", zap.String("support_id", support.ID), zap.Error(err))
	}

	return support, nil
}

// GetAggregates is a pure read projection of the ledger.
func (s *supportService) GetAggregates(ctx context.Context, giveawayID string) (*models.Aggregates, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := uuid.Parse(giveawayID); err != nil {
		return models.NewAggregates(giveawayID, nil), nil
	}

	load := func(ctx context.Context) (interface{}, error) {
		supports, err := s.repo.ListByGiveaway(ctx, giveawayID)
		if err != nil {
			return nil, err
		}
		return models.NewAggregates(giveawayID, supports), nil
	}

	if s.cache == nil {
		v, err := load(ctx)
		if err != nil {
			return nil, apperrors.FromPersistence("support.aggregates", err)
		}
		return v.(*models.Aggregates), nil
	}

	var agg models.Aggregates
	if err := s.cache.GetOrLoad(ctx, aggregatesKey(giveawayID), &agg, load); err != nil {
		return nil, apperrors.FromPersistence("support.aggregates", err)
	}
	return &agg, nil
}
