package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/common/config"
	"luvrix-giveaway-engine/internal/features/giveaway/models"
	"luvrix-giveaway-engine/internal/features/giveaway/repository/memory"
	"luvrix-giveaway-engine/internal/features/giveaway/service"
)

const catalog = `
giveaways:
  - title: Launch Week Drop
    prize_details: Hoodie
    start_date: 2026-01-01T00:00:00Z
    end_date: 2030-01-01T00:00:00Z
    required_points: 10
    max_extensions: 2
    activate: true
    tasks:
      - type: join_telegram
        title: Join the chat
        points: 10
        required: true
        metadata:
          invite_url: https://t.me/luvrix
      - type: share_post
        title: Share
        points: 5
  - slug: evergreen
    title: Evergreen
    start_date: 2026-01-01T00:00:00Z
    max_extensions: -1
`

func newService() service.GiveawayService {
	cfg := &config.Config{}
	cfg.Engine.OperationTimeout = time.Second
	store := memory.NewStore()
	return service.NewGiveawayService(service.Deps{
		Giveaways:    store.Giveaways(),
		Participants: store.Participants(),
		Selections:   store.Selections(),
		Config:       cfg,
	})
}

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(catalog))
	require.NoError(t, err)
	require.Len(t, f.Giveaways, 2)

	first := f.Giveaways[0]
	assert.True(t, first.Activate)
	require.Len(t, first.Tasks, 2)
	assert.Equal(t, "https://t.me/luvrix", first.Tasks[0].Metadata["invite_url"])
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := Parse(strings.NewReader("giveaways:\n  - title: x\n    points_needed: 3\n"))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Giveaways)
}

func TestRequest_Dates(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	req, err := Giveaway{Title: "x"}.Request(now)
	require.NoError(t, err)
	assert.Equal(t, now, req.StartDate)
	assert.Nil(t, req.EndDate)

	_, err = Giveaway{Title: "x", EndDate: "tomorrow"}.Request(now)
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	f, err := Parse(strings.NewReader(catalog))
	require.NoError(t, err)

	svc := newService()
	res, err := Apply(context.Background(), svc, f, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, res.Created, 2)

	assert.Equal(t, models.GiveawayStatusActive, res.Created[0].Status)
	assert.Equal(t, "launch-week-drop", res.Created[0].Slug)
	assert.Len(t, res.Created[0].Tasks, 2)

	assert.Equal(t, models.GiveawayStatusDraft, res.Created[1].Status)
	assert.Equal(t, "evergreen", res.Created[1].Slug)
}

func TestApply_StopsOnInvalidEntry(t *testing.T) {
	f := &File{Giveaways: []Giveaway{
		{Title: "ok", StartDate: "2026-01-01T00:00:00Z", MaxExtensions: -1},
		{Title: "", StartDate: "2026-01-01T00:00:00Z", MaxExtensions: -1},
	}}

	res, err := Apply(context.Background(), newService(), f, zap.NewNop())
	assert.Error(t, err)
	assert.Len(t, res.Created, 1)
}
