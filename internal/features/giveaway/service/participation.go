package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/events"
	"luvrix-giveaway-engine/internal/features/giveaway/eligibility"
	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository"
	"luvrix-giveaway-engine/internal/metrics"
	"luvrix-giveaway-engine/internal/utils/random"
)

type participationService struct {
	base
}

func NewParticipationService(d Deps) ParticipationService {
	return &participationService{base: newBase(d)}
}

func (s *participationService) loadGiveaway(ctx context.Context, operation, giveawayID string) (*models.Giveaway, error) {
	if !validID(giveawayID) {
		return nil, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	g, err := s.giveaways.GetByID(ctx, giveawayID)
	if err != nil {
		return nil, giveawayErr(operation, giveawayID, err)
	}
	return g, nil
}

// Join is idempotent: a repeated join returns the existing record untouched.
func (s *participationService) Join(ctx context.Context, giveawayID string, userID int64, inviteCode string) (_ *models.Participant, err error) {
	defer observe("join", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	g, err := s.loadGiveaway(ctx, "participant.join", giveawayID)
	if err != nil {
		return nil, err
	}

	existing, err := s.participants.Get(ctx, giveawayID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.FromPersistence("participant.join", err)
	}

	now := s.now()
	if !g.AcceptsEntries(now) {
		return nil, apperrors.NewInvalidStateError("join", joinStateLabel(g, now))
	}

	inviter, err := s.resolveInviter(ctx, g, userID, inviteCode)
	if err != nil {
		return nil, err
	}

	p := &models.Participant{
		GiveawayID:       giveawayID,
		UserID:           userID,
		JoinedAt:         now,
		CompletedTaskIDs: []string{},
		Status:           models.ParticipantStatusParticipant,
		UpdatedAt:        now,
	}
	if inviter != nil {
		by := inviter.UserID
		p.InvitedBy = &by
	}
	p.Status = eligibility.NextStatus(p.Status, eligibility.Evaluate(p, g, g.Tasks))

	inserted, err := s.insertWithCode(ctx, p)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// lost a race with a concurrent join or the giveaway closed meanwhile
		current, err := s.participants.Get(ctx, giveawayID, userID)
		if err == nil {
			return current, nil
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidStateError("join", "closed")
		}
		return nil, apperrors.FromPersistence("participant.join", err)
	}

	metrics.Joins.Inc()
	s.invalidate(ctx, g)
	s.logger.Info("Participant joined",
		zap.String("giveaway_id", giveawayID),
		zap.Int64("user_id", userID),
		zap.String("status", string(p.Status)))

	s.publish(ctx, events.New(events.TypeParticipantJoined, giveawayID, userID))
	if p.Status == models.ParticipantStatusEligible {
		s.publish(ctx, events.New(events.TypeParticipantEligible, giveawayID, userID))
	}

	if inviter != nil {
		if _, err := s.redeem(ctx, g, inviter.UserID, userID); err != nil {
			s.logger.Warn("Referral not credited",
				zap.String("giveaway_id", giveawayID),
				zap.Int64("inviter_id", inviter.UserID),
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
	}

	return p, nil
}

func joinStateLabel(g *models.Giveaway, now time.Time) string {
	if g.Status == models.GiveawayStatusActive {
		if now.Before(g.StartDate) {
			return "not_started"
		}
		return "expired"
	}
	return string(g.Status)
}

// resolveInviter returns the owner of the code. Unknown codes and own codes are ignored.
func (s *participationService) resolveInviter(ctx context.Context, g *models.Giveaway, userID int64, code string) (*models.Participant, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	inviter, err := s.participants.GetByInviteCode(ctx, g.ID, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.FromPersistence("participant.join", err)
	}
	if inviter.UserID == userID {
		return nil, nil
	}
	return inviter, nil
}

func (s *participationService) insertWithCode(ctx context.Context, p *models.Participant) (bool, error) {
	for attempt := 0; attempt < MaxInviteCodeAttempts; attempt++ {
		code, err := random.Code(s.codeLength)
		if err != nil {
			return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to generate invite code")
		}
		p.InviteCode = code

		inserted, err := s.participants.Insert(ctx, nil, p)
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Debug("Invite code collision", zap.String("giveaway_id", p.GiveawayID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return false, apperrors.FromPersistence("participant.join", err)
		}
		return inserted, nil
	}
	return false, apperrors.NewConflictError("invite_code", "could not allocate a unique code")
}

// CompleteTask credits a task at most once. A repeated completion returns
// the record unchanged.
func (s *participationService) CompleteTask(ctx context.Context, giveawayID string, userID int64, taskID string) (_ *models.Participant, err error) {
	defer observe("complete_task", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	g, err := s.loadGiveaway(ctx, "participant.complete_task", giveawayID)
	if err != nil {
		return nil, err
	}
	task, ok := models.FindTask(g.Tasks, taskID)
	if !ok {
		return nil, apperrors.NewTaskNotFoundError(giveawayID, taskID)
	}
	now := s.now()
	if g.Status != models.GiveawayStatusActive {
		return nil, apperrors.NewInvalidStateError("complete_task", string(g.Status))
	}
	if !g.IsOpenEnded() && g.EndDate != nil && !now.Before(*g.EndDate) {
		return nil, apperrors.NewInvalidStateError("complete_task", "expired")
	}

	tx, err := s.giveaways.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.FromPersistence("participant.complete_task", err)
	}
	defer tx.Rollback()

	p, err := s.participants.GetForUpdate(ctx, tx, giveawayID, userID)
	if err != nil {
		return nil, participantErr("participant.complete_task", giveawayID, userID, err)
	}
	if p.HasCompleted(taskID) {
		return p, tx.Commit()
	}

	added, err := s.participants.AddCompletedTask(ctx, tx, giveawayID, userID, taskID)
	if err != nil {
		return nil, apperrors.FromPersistence("participant.complete_task", err)
	}
	if !added {
		if err := tx.Commit(); err != nil {
			return nil, apperrors.FromPersistence("participant.complete_task", err)
		}
		return s.reload(ctx, "participant.complete_task", giveawayID, userID)
	}

	before := p.Status
	p.CompletedTaskIDs = append(p.CompletedTaskIDs, taskID)
	p.Points += task.Points
	p.Status = eligibility.NextStatus(p.Status, eligibility.Evaluate(p, g, g.Tasks))
	p.UpdatedAt = now

	if err := s.participants.UpdateProgress(ctx, tx, p); err != nil {
		return nil, participantErr("participant.complete_task", giveawayID, userID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.FromPersistence("participant.complete_task", err)
	}

	metrics.TaskCompletions.Inc()
	s.logger.Info("Task completed",
		zap.String("giveaway_id", giveawayID),
		zap.Int64("user_id", userID),
		zap.String("task_id", taskID),
		zap.Int("points", p.Points))

	s.publish(ctx, events.New(events.TypeTaskCompleted, giveawayID, userID).
		With("task_id", taskID).
		With("points", p.Points))
	if before != p.Status && p.Status == models.ParticipantStatusEligible {
		s.publish(ctx, events.New(events.TypeParticipantEligible, giveawayID, userID))
	}
	return p, nil
}

func (s *participationService) reload(ctx context.Context, operation, giveawayID string, userID int64) (*models.Participant, error) {
	p, err := s.participants.Get(ctx, giveawayID, userID)
	if err != nil {
		return nil, participantErr(operation, giveawayID, userID, err)
	}
	return p, nil
}

// RedeemInvite credits the inviter once per referred user. The referral
// itself is assumed to be validated by the caller.
func (s *participationService) RedeemInvite(ctx context.Context, giveawayID string, inviterUserID, referredUserID int64) (_ *models.Participant, err error) {
	defer observe("redeem_invite", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if inviterUserID == referredUserID {
		return nil, apperrors.NewValidationError("referred_user_id", "must differ from inviter_user_id")
	}
	g, err := s.loadGiveaway(ctx, "participant.redeem_invite", giveawayID)
	if err != nil {
		return nil, err
	}
	return s.redeem(ctx, g, inviterUserID, referredUserID)
}

func (s *participationService) redeem(ctx context.Context, g *models.Giveaway, inviterUserID, referredUserID int64) (*models.Participant, error) {
	const op = "participant.redeem_invite"

	if !g.InvitePointsEnabled {
		return nil, apperrors.NewInvalidStateError("redeem_invite", "invites_disabled")
	}
	if g.Status != models.GiveawayStatusActive {
		return nil, apperrors.NewInvalidStateError("redeem_invite", string(g.Status))
	}

	tx, err := s.giveaways.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.FromPersistence(op, err)
	}
	defer tx.Rollback()

	inviter, err := s.participants.GetForUpdate(ctx, tx, g.ID, inviterUserID)
	if err != nil {
		return nil, participantErr(op, g.ID, inviterUserID, err)
	}

	now := s.now()
	added, err := s.participants.AddReferral(ctx, tx, &models.Referral{
		GiveawayID:     g.ID,
		InviterUserID:  inviterUserID,
		ReferredUserID: referredUserID,
		CreatedAt:      now,
	})
	if err != nil {
		return nil, apperrors.FromPersistence(op, err)
	}
	if !added {
		return inviter, tx.Commit()
	}

	before := inviter.Status
	inviter.InviteCount++
	inviter.Points += g.InvitePoints()
	inviter.Status = eligibility.NextStatus(inviter.Status, eligibility.Evaluate(inviter, g, g.Tasks))
	inviter.UpdatedAt = now

	if err := s.participants.UpdateProgress(ctx, tx, inviter); err != nil {
		return nil, participantErr(op, g.ID, inviterUserID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.FromPersistence(op, err)
	}

	metrics.InvitesRedeemed.Inc()
	s.logger.Info("Invite redeemed",
		zap.String("giveaway_id", g.ID),
		zap.Int64("inviter_id", inviterUserID),
		zap.Int64("referred_id", referredUserID),
		zap.Int("invite_count", inviter.InviteCount))

	s.publish(ctx, events.New(events.TypeInviteRedeemed, g.ID, inviterUserID).
		With("referred_user_id", referredUserID))
	if before != inviter.Status && inviter.Status == models.ParticipantStatusEligible {
		s.publish(ctx, events.New(events.TypeParticipantEligible, g.ID, inviterUserID))
	}
	return inviter, nil
}

func (s *participationService) GetStatus(ctx context.Context, giveawayID string, userID int64) (_ *models.ParticipantStatusResponse, err error) {
	defer observe("get_status", &err)
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	g, err := s.loadGiveaway(ctx, "participant.get_status", giveawayID)
	if err != nil {
		return nil, err
	}
	p, err := s.reload(ctx, "participant.get_status", giveawayID, userID)
	if err != nil {
		return nil, err
	}
	return &models.ParticipantStatusResponse{
		Participant: p,
		Eligibility: eligibility.Snapshot(eligibility.Evaluate(p, g, g.Tasks), g),
	}, nil
}
