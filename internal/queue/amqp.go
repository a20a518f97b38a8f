package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AMQPQueue publishes and consumes JSON payloads over RabbitMQ. One durable
// queue per topic.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

func NewAMQPQueue(url string, log *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return &AMQPQueue{conn: conn, ch: ch, log: log}, nil
}

func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	declared, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return q.ch.Publish(
		"",
		declared.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Subscribe consumes the topic queue in a goroutine. Payloads are the raw
// JSON-decoded values; failed handlers get one requeue via Nack.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	declared, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	msgs, err := q.ch.Consume(
		declared.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for d := range msgs {
			var payload any
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				q.log.Warn("invalid job payload", zap.Error(err))
				d.Ack(false)
				continue
			}

			if err := handler(payload); err != nil {
				q.log.Warn("job handler failed", zap.String("topic", topic), zap.Error(err))
				if !d.Redelivered {
					d.Nack(false, true)
					continue
				}
			}
			d.Ack(false)
		}
	}()

	return nil
}

var _ Queue = (*AMQPQueue)(nil)
