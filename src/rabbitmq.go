package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"hn-sampler/src/pipeline"
	"hn-sampler/src/posts"
)

// rowPublisher delivers one encoded row per call.
type rowPublisher interface {
	Publish(ctx context.Context, body []byte) error
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Queue    string
}

// Validate reports the first missing or invalid setting.
func (c RabbitMQConfig) Validate() error {
	if c.Host == "" {
		return errors.New("empty host")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Queue == "" {
		return errors.New("empty queue name")
	}
	return nil
}

// URL builds the AMQP connection URL, escaping the credentials.
func (c RabbitMQConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/",
	}
	if c.Username != "" || c.Password != "" {
		u.User = url.UserPassword(c.Username, c.Password)
	}
	return u.String()
}

// RabbitMQ publishes sampled rows to a durable queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	config  RabbitMQConfig
}

// NewRabbitMQ creates a new RabbitMQ connection
func NewRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid RabbitMQ config: %w", err)
	}

	conn, err := amqp.Dial(config.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		config.Queue, // name
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQ{
		conn:    conn,
		channel: ch,
		queue:   q,
		config:  config,
	}, nil
}

// ErrNacked is returned when the broker refuses a published message.
var ErrNacked = errors.New("message nacked by broker")

// confirmation is the broker's answer to one published message.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// awaitConfirm blocks until the broker acks or nacks the message, or ctx ends.
func awaitConfirm(ctx context.Context, queue string, c confirmation) error {
	acked, err := c.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm from %s: %w", queue, err)
	}
	if !acked {
		return fmt.Errorf("%w: queue %s", ErrNacked, queue)
	}
	return nil
}

// Publish sends body as a persistent message to the configured queue and
// waits for the broker to confirm it.
func (r *RabbitMQ) Publish(ctx context.Context, body []byte) error {
	dc, err := r.channel.PublishWithDeferredConfirmWithContext(ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "text/csv",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.queue.Name, err)
	}
	if dc == nil {
		return fmt.Errorf("failed to publish to %s: channel is not in confirm mode", r.queue.Name)
	}
	return awaitConfirm(ctx, r.queue.Name, dc)
}

// Close closes the RabbitMQ connection. It is safe on a nil or partially
// initialised value.
func (r *RabbitMQ) Close() error {
	if r == nil {
		return nil
	}
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// publishSample encodes each row as a single delimited line and publishes it.
// It returns the number of rows published before any error.
func publishSample(ctx context.Context, pub rowPublisher, rows []posts.Row, delimiter rune) (int, error) {
	var buf []byte
	for i, row := range rows {
		buf = pipeline.AppendRecord(buf[:0], row.Fields, delimiter)
		if err := pub.Publish(ctx, bytes.Clone(buf)); err != nil {
			return i, fmt.Errorf("row from line %d: %w", row.Line, err)
		}
	}
	return len(rows), nil
}
