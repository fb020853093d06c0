package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Sitaras/JourneyLink-sub000/internal/service"
)

// RideCompleter is the piece of the lifecycle service the due-job
// consumer needs.
type RideCompleter interface {
	CompleteRide(ctx context.Context, rideID uint64) error
}

// StartNotificationConsumer connects to RabbitMQ, declares the
// notification queue (durable), and appends each event to
// logs/notifications.log in a single-line format. It runs a reconnect
// loop with exponential backoff and never returns; processing errors are
// logged and the offending message rejected without requeue so the
// server keeps operating.
func StartNotificationConsumer(url string) {
	runConsumer(url, "notification-consumer", NotificationQueue, nil, handleNotification)
}

// StartLifecycleConsumer drains the due queue that the wait queue
// dead-letters into. Each job is checked against the scheduler's
// cancellation tombstones before the ride is completed; the completion
// itself re-validates state, so replayed or superseded jobs are no-ops.
func StartLifecycleConsumer(url string, sched *AMQPScheduler, lifecycle RideCompleter) {
	waitArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": LifecycleDueQueue,
	}
	handle := func(body []byte) error {
		var job LifecycleJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if job.Kind != service.JobKindCompleteRide {
			log.Printf("lifecycle-consumer: unknown job kind %q, dropping", job.Kind)
			return nil
		}
		if sched.cancelled(ctx, job.Kind, job.RideID) {
			log.Printf("lifecycle-consumer: job %s for ride %d cancelled, skipping", job.ID, job.RideID)
			return nil
		}
		return lifecycle.CompleteRide(ctx, job.RideID)
	}
	runConsumer(url, "lifecycle-consumer", LifecycleDueQueue, waitArgs, handle)
}

// runConsumer is the shared reconnect loop. waitArgs, when non-nil, is
// the argument table for the companion wait queue that must exist with
// matching arguments before anything dead-letters into the consumed one.
func runConsumer(url, name, queueName string, waitArgs amqp.Table, handle func([]byte) error) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("%s: failed to dial broker: %v; retrying in %s", name, err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, name, queueName, waitArgs, handle); err != nil {
			log.Printf("%s: consume loop ended: %v; reconnecting", name, err)
			time.Sleep(2 * time.Second)
		}
		_ = conn.Close()
	}
}

func consumeLoop(conn *amqp.Connection, name, queueName string, waitArgs amqp.Table, handle func([]byte) error) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s: set QoS failed: %v", name, err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if waitArgs != nil {
		if _, err := ch.QueueDeclare(LifecycleWaitQueue, true, false, false, false, waitArgs); err != nil {
			return fmt.Errorf("wait queue declare: %w", err)
		}
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handle(d.Body); err != nil {
			log.Printf("%s: handle message failed: %v", name, err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleNotification(body []byte) error {
	var ev NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "notifications.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | recipient=%d | %s | %s\n",
		ev.CreatedAt, ev.EventType, ev.RecipientID, ev.Title, ev.Message)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
