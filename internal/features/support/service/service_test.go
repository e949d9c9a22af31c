package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/cache"
	apperrors "luvrix-giveaway-engine/internal/common/errors"
	"luvrix-giveaway-engine/internal/features/support/models"
	"luvrix-giveaway-engine/internal/features/support/repository/memory"
)

const giveawayID = "7d6f1c1e-3f1a-4b8e-9a51-0c8a2b1d9e11"

type staticChecker map[string]bool

func (c staticChecker) Exists(_ context.Context, id string) (bool, error) {
	return c[id], nil
}

func newService(t *testing.T, withCache bool) *supportService {
	t.Helper()
	var layered *cache.Layered
	if withCache {
		var err error
		layered, err = cache.NewLayered(nil, cache.LayeredConfig{TTL: time.Minute}, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(layered.Close)
	}
	svc := NewSupportService(memory.NewSupportRepository(), staticChecker{giveawayID: true}, layered, nil, time.Second, zap.NewNop())
	return svc.(*supportService)
}

func uid(v int64) *int64 { return &v }

func TestRecordSupport_Validation(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	tests := []struct {
		name  string
		input models.SupportInput
	}{
		{name: "zero amount", input: models.SupportInput{GiveawayID: giveawayID, Amount: 0}},
		{name: "negative amount", input: models.SupportInput{GiveawayID: giveawayID, Amount: -5}},
		{name: "long donor name", input: models.SupportInput{GiveawayID: giveawayID, Amount: 1, DonorName: strings.Repeat("a", 101)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordSupport(ctx, tt.input)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
		})
	}
}

func TestRecordSupport_UnknownGiveaway(t *testing.T) {
	svc := newService(t, false)

	_, err := svc.RecordSupport(context.Background(), models.SupportInput{
		GiveawayID: "0b0e7c52-0000-4000-8000-000000000000", Amount: 10,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeGiveawayNotFound))
}

func TestRecordSupport_TrimsDonorName(t *testing.T) {
	svc := newService(t, false)

	s, err := svc.RecordSupport(context.Background(), models.SupportInput{
		GiveawayID: giveawayID, Amount: 10, DonorName: "  Alice  " + strings.Repeat(" ", 120),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", s.DonorName)
	assert.False(t, s.IsAnonymous)
}

func TestGetAggregates_WithholdsAnonymousNames(t *testing.T) {
	svc := newService(t, false)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	_, err := svc.RecordSupport(ctx, models.SupportInput{GiveawayID: giveawayID, UserID: uid(1), Amount: 100, DonorName: "Alice"})
	require.NoError(t, err)
	_, err = svc.RecordSupport(ctx, models.SupportInput{GiveawayID: giveawayID, UserID: uid(2), Amount: 50, DonorName: "Bob", IsAnonymous: true})
	require.NoError(t, err)
	_, err = svc.RecordSupport(ctx, models.SupportInput{GiveawayID: giveawayID, Amount: 25})
	require.NoError(t, err)

	agg, err := svc.GetAggregates(ctx, giveawayID)
	require.NoError(t, err)

	assert.Equal(t, int64(175), agg.Total)
	assert.Equal(t, int64(3), agg.Count)
	require.Len(t, agg.Supporters, 3)

	// newest first
	assert.Equal(t, models.AnonymousDonorName, agg.Supporters[0].DonorName)
	assert.True(t, agg.Supporters[0].Anonymous)

	assert.Equal(t, models.AnonymousDonorName, agg.Supporters[1].DonorName)
	assert.Nil(t, agg.Supporters[1].UserID)
	assert.Equal(t, int64(50), agg.Supporters[1].Amount)

	assert.Equal(t, "Alice", agg.Supporters[2].DonorName)
	require.NotNil(t, agg.Supporters[2].UserID)
	assert.Equal(t, int64(1), *agg.Supporters[2].UserID)

	for _, s := range agg.Supporters {
		assert.NotEqual(t, "Bob", s.DonorName)
	}
}

func TestGetAggregates_CacheInvalidatedOnRecord(t *testing.T) {
	svc := newService(t, true)
	ctx := context.Background()

	agg, err := svc.GetAggregates(ctx, giveawayID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), agg.Count)
	assert.NotNil(t, agg.Supporters)

	_, err = svc.RecordSupport(ctx, models.SupportInput{GiveawayID: giveawayID, Amount: 10, DonorName: "Alice"})
	require.NoError(t, err)

	agg, err = svc.GetAggregates(ctx, giveawayID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), agg.Count)
	assert.Equal(t, int64(10), agg.Total)
}

func TestGetAggregates_UnknownIDIsEmpty(t *testing.T) {
	svc := newService(t, false)

	agg, err := svc.GetAggregates(context.Background(), "not-a-uuid")
	require.NoError(t, err)
	assert.Equal(t, int64(0), agg.Total)
	assert.Empty(t, agg.Supporters)
}
