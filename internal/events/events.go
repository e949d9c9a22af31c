package events

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/metrics"
	redisplatform "luvrix-giveaway-engine/internal/platform/redis"
)

type Type string

const (
	TypeParticipantJoined   Type = "participant_joined"
	TypeTaskCompleted       Type = "task_completed"
	TypeInviteRedeemed      Type = "invite_redeemed"
	TypeParticipantEligible Type = "participant_eligible"
	TypeWinnerSelected      Type = "winner_selected"
	TypeGiveawayActivated   Type = "giveaway_activated"
	TypeGiveawayEnded       Type = "giveaway_ended"
	TypeGiveawayExtended    Type = "giveaway_extended"
	TypeSupportRecorded     Type = "support_recorded"
)

// Event is a domain fact appended after the write that caused it committed.
type Event struct {
	Type       Type           `json:"type"`
	GiveawayID string         `json:"giveaway_id"`
	UserID     int64          `json:"user_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func New(t Type, giveawayID string, userID int64) Event {
	return Event{Type: t, GiveawayID: giveawayID, UserID: userID, OccurredAt: time.Now().UTC()}
}

func (e Event) With(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}

// Publisher delivers events. Publishing is best effort: callers log a
// failure and never undo the committed write.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

// NewNopPublisher is used when redis is disabled.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

type streamPublisher struct {
	rdb    redisplatform.RedisClient
	stream string
	maxLen int64
	logger *zap.Logger
}

func NewStreamPublisher(rdb redisplatform.RedisClient, stream string, logger *zap.Logger) Publisher {
	return &streamPublisher{rdb: rdb, stream: stream, maxLen: 100000, logger: logger}
}

func (p *streamPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":        string(e.Type),
			"giveaway_id": e.GiveawayID,
			"user_id":     strconv.FormatInt(e.UserID, 10),
			"payload":     string(payload),
		},
	}).Err()
	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(e.Type), "error").Inc()
		p.logger.Warn("Failed to publish event",
			zap.String("type", string(e.Type)),
			zap.String("giveaway_id", e.GiveawayID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(string(e.Type), "ok").Inc()
	return nil
}

// Decode restores an event from stream message values.
func Decode(values map[string]interface{}) (Event, error) {
	raw, ok := values["payload"].(string)
	if !ok {
		return Event{}, fmt.Errorf("event payload is missing")
	}
	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	return e, nil
}
