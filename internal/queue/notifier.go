package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Sitaras/JourneyLink-sub000/internal/service"
)

// AMQPNotifier publishes notification events to the notification queue.
// It dials per publish so a broker restart never leaves it holding a dead
// channel; the booking paths it serves are low-volume. Errors are logged
// and returned so the caller can count the miss without interrupting the
// request flow.
type AMQPNotifier struct {
	URL string
}

func NewAMQPNotifier(url string) *AMQPNotifier { return &AMQPNotifier{URL: url} }

// Notify implements service.Notifier. Messages are persistent so they
// survive broker restarts.
func (p *AMQPNotifier) Notify(ctx context.Context, n service.Notification) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	event := NotificationEvent{
		ID:          uuid.NewString(),
		RecipientID: n.RecipientID,
		EventType:   n.EventType,
		Title:       n.Title,
		Message:     n.Message,
		Data:        n.Data,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", NotificationQueue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}
