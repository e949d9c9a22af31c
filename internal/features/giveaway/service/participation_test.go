package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/events"
	"luvrix-giveaway-engine/internal/features/giveaway/models"
)

func TestJoin_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g := e.activeGiveaway(t, timedRequest(10))

	first, err := e.participation.Join(ctx, g.ID, 42, "")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusParticipant, first.Status)
	assert.Len(t, first.InviteCode, 8)
	assert.Empty(t, first.CompletedTaskIDs)

	second, err := e.participation.Join(ctx, g.ID, 42, "")
	require.NoError(t, err)
	assert.Equal(t, first.InviteCode, second.InviteCode)
	assert.True(t, first.JoinedAt.Equal(second.JoinedAt))

	resp, err := e.giveaways.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.ParticipantsCount)
}

func TestJoin_RejectsInactiveGiveaway(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	g, err := e.giveaways.Create(ctx, timedRequest(0))
	require.NoError(t, err)

	_, err = e.participation.Join(ctx, g.ID, 1, "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidState))

	_, err = e.participation.Join(ctx, "not-a-uuid", 1, "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGiveawayNotFound))
}

func TestJoin_FreeGiveawayIsImmediatelyEligible(t *testing.T) {
	e := newEnv(t)
	req := timedRequest(0)
	req.Tasks[0].Required = false
	g := e.activeGiveaway(t, req)

	p, err := e.participation.Join(context.Background(), g.ID, 7, "")
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusEligible, p.Status)
	assert.Contains(t, e.events.types(), events.TypeParticipantEligible)
}

func TestCompleteTask_ThresholdReached(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g := e.activeGiveaway(t, timedRequest(10))

	_, err := e.participation.Join(ctx, g.ID, 1, "")
	require.NoError(t, err)

	p, err := e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Points)
	assert.Equal(t, models.ParticipantStatusParticipant, p.Status)

	p, err = e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Points)
	assert.Equal(t, models.ParticipantStatusEligible, p.Status)
	assert.ElementsMatch(t, []string{g.Tasks[0].ID, g.Tasks[1].ID}, p.CompletedTaskIDs)

	status, err := e.participation.GetStatus(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.True(t, status.Eligibility.Eligible)
	assert.Equal(t, 0, status.Eligibility.PointsShort)
}

func TestCompleteTask_RequiredTaskGatesEligibility(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g := e.activeGiveaway(t, timedRequest(5))

	_, err := e.participation.Join(ctx, g.ID, 1, "")
	require.NoError(t, err)

	p, err := e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusParticipant, p.Status, "points met but required task missing")

	status, err := e.participation.GetStatus(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{g.Tasks[0].ID}, status.Eligibility.MissingRequired)
}

func TestCompleteTask_RepeatIsNoOp(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g := e.activeGiveaway(t, timedRequest(10))

	_, err := e.participation.Join(ctx, g.ID, 1, "")
	require.NoError(t, err)

	_, err = e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[0].ID)
	require.NoError(t, err)
	p, err := e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Points)
	assert.Len(t, p.CompletedTaskIDs, 1)
}

func TestCompleteTask_ConcurrentDuplicatesCreditOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g := e.activeGiveaway(t, timedRequest(10))

	_, err := e.participation.Join(ctx, g.ID, 1, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[1].ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	status, err := e.participation.GetStatus(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, status.Participant.Points)
	assert.Len(t, status.Participant.CompletedTaskIDs, 1)
}

func TestCompleteTask_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	g := e.activeGiveaway(t, timedRequest(10))

	_, err := e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[0].ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeParticipantNotFound))

	_, err = e.participation.Join(ctx, g.ID, 1, "")
	require.NoError(t, err)

	_, err = e.participation.CompleteTask(ctx, g.ID, 1, "unknown-task")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTaskNotFound))

	_, err = e.giveaways.End(ctx, g.ID)
	require.NoError(t, err)
	_, err = e.participation.CompleteTask(ctx, g.ID, 1, g.Tasks[0].ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidState))

	status, err := e.participation.GetStatus(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantStatusParticipant, status.Participant.Status, "ending keeps participant records")
}

func TestJoin_WithInviteCodeCreditsInviter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := timedRequest(10)
	req.InvitePointsEnabled = true
	req.InvitePointsPerReferral = 3
	g := e.activeGiveaway(t, req)

	inviter, err := e.participation.Join(ctx, g.ID, 1, "")
	require.NoError(t, err)

	referred, err := e.participation.Join(ctx, g.ID, 2, " "+inviter.InviteCode+" ")
	require.NoError(t, err)
	require.NotNil(t, referred.InvitedBy)
	assert.Equal(t, int64(1), *referred.InvitedBy)

	status, err := e.participation.GetStatus(ctx, g.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Participant.InviteCount)
	assert.Equal(t, 3, status.Participant.Points)

	// the same referred user is credited once
	p, err := e.participation.RedeemInvite(ctx, g.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.InviteCount)
	assert.Equal(t, 3, p.Points)

	assert.Contains(t, e.events.types(), events.TypeInviteRedeemed)
}

func TestJoin_UnknownOrOwnInviteCodeIgnored(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := timedRequest(10)
	req.InvitePointsEnabled = true
	req.InvitePointsPerReferral = 3
	g := e.activeGiveaway(t, req)

	p, err := e.participation.Join(ctx, g.ID, 1, "NOPE2345")
	require.NoError(t, err)
	assert.Nil(t, p.InvitedBy)
}

func TestRedeemInvite_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	disabled := e.activeGiveaway(t, timedRequest(10))
	_, err := e.participation.Join(ctx, disabled.ID, 1, "")
	require.NoError(t, err)

	_, err = e.participation.RedeemInvite(ctx, disabled.ID, 1, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, err = e.participation.RedeemInvite(ctx, disabled.ID, 1, 2)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidState))

	req := timedRequest(10)
	req.Slug = "with-invites"
	req.InvitePointsEnabled = true
	req.InvitePointsPerReferral = 2
	enabled := e.activeGiveaway(t, req)

	_, err = e.participation.RedeemInvite(ctx, enabled.ID, 99, 2)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeParticipantNotFound))
}

func TestGetStatus_NotJoined(t *testing.T) {
	e := newEnv(t)
	g := e.activeGiveaway(t, timedRequest(10))

	_, err := e.participation.GetStatus(context.Background(), g.ID, 5)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeParticipantNotFound))
}
