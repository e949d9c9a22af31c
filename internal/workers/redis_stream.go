package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"luvrix-giveaway-engine/internal/events"
	"luvrix-giveaway-engine/internal/platform/redis"
	"luvrix-giveaway-engine/internal/platform/telegram"
)

type WinnerNotifier interface {
	NotifyWinner(ctx context.Context, notice telegram.WinnerNotice) error
}

type RedisStreamWorker struct {
	rdb           redis.RedisClient
	notifier      WinnerNotifier
	stream        string
	group         string
	consumer      string
	block         time.Duration
	minIdle       time.Duration
	maxDeliveries int64
	logger        *zap.Logger
}

// StreamConfig names the consumer group and sets the redelivery policy.
type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	// ClaimMinIdle is how long a failed message stays pending before it is retried.
	ClaimMinIdle time.Duration
	// MaxDeliveries caps attempts per message, after which it is acked and dropped.
	MaxDeliveries int64
}

func NewRedisStreamWorker(rdb redis.RedisClient, notifier WinnerNotifier, cfg StreamConfig, logger *zap.Logger) *RedisStreamWorker {
	if cfg.MaxDeliveries < 1 {
		cfg.MaxDeliveries = 1
	}
	return &RedisStreamWorker{
		rdb:           rdb,
		notifier:      notifier,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumer:      cfg.Consumer,
		block:         5 * time.Second,
		minIdle:       cfg.ClaimMinIdle,
		maxDeliveries: cfg.MaxDeliveries,
		logger:        logger,
	}
}

// Start listens to the event stream until ctx is cancelled.
func (w *RedisStreamWorker) Start(ctx context.Context) {
	// Ensure consumer group exists
	err := w.rdb.XGroupCreateMkStream(ctx, w.stream, w.group, "$").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		w.logger.Error("Error creating consumer group", zap.String("stream", w.stream), zap.Error(err))
	}

	w.logger.Info("Starting Redis stream worker", zap.String("stream", w.stream))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping Redis stream worker")
			return
		default:
			if err := w.poll(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.logger.Warn("Error reading from stream", zap.Error(err))
				select {
				case <-ctx.Done():
				case <-time.After(time.Second): // backoff on error
				}
			}
		}
	}
}

// poll retries stale pending messages, then reads one batch of new ones.
func (w *RedisStreamWorker) poll(ctx context.Context) error {
	if err := w.reclaim(ctx); err != nil {
		w.logger.Warn("Failed to reclaim pending events", zap.Error(err))
	}

	entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumer,
		Streams:  []string{w.stream, ">"},
		Count:    10,
		Block:    w.block,
	}).Result()
	if err != nil {
		if errors.Is(err, go_redis.Nil) {
			return nil
		}
		return err
	}

	for _, stream := range entries {
		for _, msg := range stream.Messages {
			w.handle(ctx, msg)
		}
	}
	return nil
}

// reclaim claims messages that stayed unacked for at least minIdle. Messages
// delivered maxDeliveries times are acked without another attempt.
func (w *RedisStreamWorker) reclaim(ctx context.Context) error {
	pending, err := w.rdb.XPendingExt(ctx, &go_redis.XPendingExtArgs{
		Stream: w.stream,
		Group:  w.group,
		Idle:   w.minIdle,
		Start:  "-",
		End:    "+",
		Count:  10,
	}).Result()
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.RetryCount >= w.maxDeliveries {
			w.logger.Error("Dropping event after max deliveries",
				zap.String("message_id", p.ID),
				zap.Int64("deliveries", p.RetryCount))
			w.ack(ctx, p.ID)
			continue
		}
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return nil
	}

	msgs, err := w.rdb.XClaim(ctx, &go_redis.XClaimArgs{
		Stream:   w.stream,
		Group:    w.group,
		Consumer: w.consumer,
		MinIdle:  w.minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		w.handle(ctx, msg)
	}
	return nil
}

// handle acks a message once it is processed. Failed messages stay pending
// for reclaim, except malformed ones which can never succeed.
func (w *RedisStreamWorker) handle(ctx context.Context, msg go_redis.XMessage) {
	e, err := events.Decode(msg.Values)
	if err != nil {
		w.logger.Warn("Dropping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
		w.ack(ctx, msg.ID)
		return
	}
	if err := w.processMessage(ctx, e); err != nil {
		w.logger.Warn("Failed to process event", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	w.ack(ctx, msg.ID)
}

func (w *RedisStreamWorker) ack(ctx context.Context, id string) {
	if err := w.rdb.XAck(ctx, w.stream, w.group, id).Err(); err != nil {
		w.logger.Warn("Failed to ack event", zap.String("message_id", id), zap.Error(err))
	}
}

func (w *RedisStreamWorker) processMessage(ctx context.Context, e events.Event) error {
	if e.Type != events.TypeWinnerSelected {
		return nil
	}
	if w.notifier == nil {
		return nil
	}

	title, _ := e.Data["title"].(string)
	prize, _ := e.Data["prize_details"].(string)

	w.logger.Info("Notifying winner",
		zap.String("giveaway_id", e.GiveawayID),
		zap.Int64("user_id", e.UserID))

	if err := w.notifier.NotifyWinner(ctx, telegram.WinnerNotice{
		UserID:        e.UserID,
		GiveawayTitle: title,
		PrizeDetails:  prize,
	}); err != nil {
		return fmt.Errorf("notify winner %d: %w", e.UserID, err)
	}
	return nil
}
