// internal/queue/rabbitmq.go
package queue

import (
	"context"
	"fmt"

	"github.com/fawad-mazhar/skyhub/internal/config"
	"github.com/fawad-mazhar/skyhub/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQ struct {
	conn        *amqp.Connection
	taskChannel *amqp.Channel
	config      config.RabbitMQConfig
}

func NewRabbitMQ(cfg config.RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	taskCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open task channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:        conn,
		taskChannel: taskCh,
		config:      cfg,
	}

	if err := rmq.setupQueues(); err != nil {
		rmq.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return rmq, nil
}

func (r *RabbitMQ) setupQueues() error {
	err := r.taskChannel.ExchangeDeclare(
		r.config.Exchange,     // name
		r.config.ExchangeType, // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return err
	}

	_, err = r.taskChannel.QueueDeclare(
		r.config.TasksQueue, // name
		true,                // durable
		false,               // delete when unused
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return err
	}

	return r.taskChannel.QueueBind(
		r.config.TasksQueue, // queue name
		"tasks",             // routing key
		r.config.Exchange,   // exchange
		false,
		nil,
	)
}

// PublishTask enqueues one task message for the executor. Messages are
// persistent; the broker delivers them at least once.
func (r *RabbitMQ) PublishTask(ctx context.Context, msg *models.QueueMessage) error {
	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal task message: %w", err)
	}

	return r.taskChannel.PublishWithContext(ctx,
		r.config.Exchange, // exchange
		"tasks",           // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp.Persistent,
		},
	)
}

// ConsumeTasks opens the delivery stream the executor drains.
func (r *RabbitMQ) ConsumeTasks(ctx context.Context) (<-chan amqp.Delivery, error) {
	return r.taskChannel.Consume(
		r.config.TasksQueue, // queue
		"",                  // consumer
		false,               // auto-ack
		false,               // exclusive
		false,               // no-local
		false,               // no-wait
		nil,                 // args
	)
}

// DecodeDelivery adapts a broker delivery envelope into the canonical message shape.
func DecodeDelivery(d amqp.Delivery) (*models.QueueMessage, error) {
	var msg models.QueueMessage
	if err := msg.FromJSON(d.Body); err != nil {
		return nil, fmt.Errorf("failed to decode task message: %w", err)
	}
	return &msg, nil
}

func (r *RabbitMQ) Close() error {
	if err := r.taskChannel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
