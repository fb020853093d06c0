package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/Sitaras/JourneyLink-sub000/internal/service"
)

// AMQPScheduler implements service.JobScheduler on top of RabbitMQ
// per-message TTL plus dead-letter routing: a job published to the wait
// queue with an expiration equal to the delay pops out on the due queue
// when the delay elapses. A published message cannot be retracted, so
// Cancel writes a redis tombstone that the due-queue consumer checks
// before acting; the consumer additionally re-validates the ride's state,
// making even an uncancelled stale job a no-op.
type AMQPScheduler struct {
	URL   string
	Redis *redis.Client
}

func NewAMQPScheduler(url string, rdb *redis.Client) *AMQPScheduler {
	return &AMQPScheduler{URL: url, Redis: rdb}
}

const tombstoneTTL = 7 * 24 * time.Hour

func tombstoneKey(kind string, rideID uint64) string {
	return "jobs:cancelled:" + kind + ":" + strconv.FormatUint(rideID, 10)
}

// Schedule enqueues a delayed job. Scheduling again for the same ride
// (a departure-time edit) clears any previous tombstone so the new job
// is live; the superseded message still in the wait queue will be
// discarded by the consumer's re-validation.
func (s *AMQPScheduler) Schedule(ctx context.Context, at time.Time, kind string, rideID uint64) error {
	if s.Redis != nil {
		if err := s.Redis.Del(ctx, tombstoneKey(kind, rideID)).Err(); err != nil {
			log.Printf("scheduler: tombstone clear failed: %v", err)
		}
	}

	conn, err := amqp.Dial(s.URL)
	if err != nil {
		return fmt.Errorf("scheduler dial: %w", err)
	}
	defer func() { _ = conn.Close() }()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("scheduler channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(LifecycleDueQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare due queue: %w", err)
	}
	waitArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": LifecycleDueQueue,
	}
	if _, err := ch.QueueDeclare(LifecycleWaitQueue, true, false, false, false, waitArgs); err != nil {
		return fmt.Errorf("declare wait queue: %w", err)
	}

	job := LifecycleJob{
		ID:        uuid.NewString(),
		Kind:      kind,
		RideID:    rideID,
		ExecuteAt: at.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(job)
	if err != nil {
		return err
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
		Body:         body,
	}
	return ch.PublishWithContext(ctx, "", LifecycleWaitQueue, false, false, pub)
}

// Cancel marks all pending jobs of the given kind for the ride as
// cancelled. Without redis there is nothing to write the tombstone to;
// the error propagates so the caller can log it, and the consumer's
// re-validation still keeps the ride correct.
func (s *AMQPScheduler) Cancel(ctx context.Context, kind string, rideID uint64) error {
	if s.Redis == nil {
		return errors.New("job cancellation store unavailable")
	}
	return s.Redis.Set(ctx, tombstoneKey(kind, rideID), "1", tombstoneTTL).Err()
}

// cancelled reports whether a tombstone exists for the job. Used by the
// due-queue consumer.
func (s *AMQPScheduler) cancelled(ctx context.Context, kind string, rideID uint64) bool {
	if s.Redis == nil {
		return false
	}
	n, err := s.Redis.Exists(ctx, tombstoneKey(kind, rideID)).Result()
	if err != nil {
		log.Printf("scheduler: tombstone check failed: %v", err)
		return false
	}
	return n > 0
}

var _ service.JobScheduler = (*AMQPScheduler)(nil)
