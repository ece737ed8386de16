package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Publisher sends events to RabbitMQ.  Each publish opens its own
// connection, which is plenty for the low event volume of registrations.
type Publisher struct {
	url    string
	logger zerolog.Logger
}

func NewPublisher(url string, logger zerolog.Logger) *Publisher {
	return &Publisher{url: url, logger: logger.With().Str("component", "queue-publisher").Logger()}
}

// PublishUserRegistered publishes a UserRegisteredEvent as a persistent
// message.  Errors are logged and returned; callers may ignore them.
func (p *Publisher) PublishUserRegistered(ctx context.Context, ev UserRegisteredEvent) error {
	return p.publish(ctx, UserRegisteredQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.logger.Warn().Err(err).Msg("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warn().Err(err).Msg("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declare(ch, queueName); err != nil {
		p.logger.Warn().Err(err).Str("queue", queueName).Msg("rabbitmq queue declare failed")
		return err
	}

	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("queue", queueName).Msg("rabbitmq publish failed")
		return err
	}
	p.logger.Debug().Str("queue", queueName).Msg("event published")
	return nil
}

// declare makes sure the durable queue exists.
func declare(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(name, true, false, false, false, nil)
}
