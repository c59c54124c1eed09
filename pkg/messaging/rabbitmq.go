package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds configuration for the RabbitMQ client.
type Config struct {
	URL               string
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	HeartbeatTimeout  time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig(url string) Config {
	return Config{
		URL:               url,
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 60 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
	}
}

// RabbitMQClient is a reconnecting AMQP client used for the notification
// task queues. A lost connection is re-dialed with exponential backoff;
// publishing while disconnected fails fast instead of blocking.
type RabbitMQClient struct {
	config Config
	logger *slog.Logger

	mu              sync.RWMutex
	conn            *amqp.Connection
	ch              *amqp.Channel
	notifyConnClose chan *amqp.Error
	isReconnecting  bool
	isClosed        bool
}

func NewRabbitMQClient(config Config, logger *slog.Logger) (*RabbitMQClient, error) {
	if config.ReconnectDelay == 0 {
		config.ReconnectDelay = time.Second
	}
	if config.MaxReconnectDelay == 0 {
		config.MaxReconnectDelay = 60 * time.Second
	}
	if config.HeartbeatTimeout == 0 {
		config.HeartbeatTimeout = 10 * time.Second
	}

	client := &RabbitMQClient{config: config, logger: logger}
	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.handleReconnect()
	return client, nil
}

func (r *RabbitMQClient) connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("connecting to RabbitMQ", "url", maskURL(r.config.URL))

	conn, err := amqp.DialConfig(r.config.URL, amqp.Config{
		Heartbeat: r.config.HeartbeatTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open a channel: %w", err)
	}

	r.conn = conn
	r.ch = ch
	r.notifyConnClose = make(chan *amqp.Error)
	r.conn.NotifyClose(r.notifyConnClose)
	r.isReconnecting = false

	return nil
}

func (r *RabbitMQClient) handleReconnect() {
	r.mu.RLock()
	if r.isClosed {
		r.mu.RUnlock()
		return
	}
	notifyClose := r.notifyConnClose
	r.mu.RUnlock()

	if err := <-notifyClose; err != nil {
		r.logger.Warn("RabbitMQ connection closed, reconnecting", "error", err)
		r.reconnect()
	}
}

func (r *RabbitMQClient) reconnect() {
	r.mu.Lock()
	r.isReconnecting = true
	r.mu.Unlock()

	backoff := r.config.ReconnectDelay
	for {
		r.mu.RLock()
		closed := r.isClosed
		r.mu.RUnlock()
		if closed {
			return
		}

		if err := r.connect(); err == nil {
			r.logger.Info("RabbitMQ reconnected")
			go r.handleReconnect()
			return
		}

		r.logger.Warn("RabbitMQ reconnect failed", "retry_in", backoff)
		time.Sleep(backoff)

		backoff *= 2
		if backoff > r.config.MaxReconnectDelay {
			backoff = r.config.MaxReconnectDelay
		}
	}
}

// DeclareQueueWithDLQ declares a durable queue whose rejected messages are
// routed to a companion dead-letter queue named "<name>.dlq".
func (r *RabbitMQClient) DeclareQueueWithDLQ(name string) (amqp.Queue, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.ch == nil {
		return amqp.Queue{}, fmt.Errorf("channel is not initialized")
	}

	dlqName := name + ".dlq"
	if _, err := r.ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare DLQ: %w", err)
	}

	return r.ch.QueueDeclare(name, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlqName,
	})
}

// Publish sends a JSON body to the named queue via the default exchange.
func (r *RabbitMQClient) Publish(ctx context.Context, queueName string, body []byte) error {
	r.mu.RLock()
	if r.isReconnecting || r.ch == nil {
		r.mu.RUnlock()
		return fmt.Errorf("connection is not available")
	}
	ch := r.ch
	r.mu.RUnlock()

	return ch.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
}

// ConsumeWithContext delivers messages from the named queue to handler until
// ctx is cancelled. A handler error nacks the message without requeue so it
// lands on the DLQ instead of looping forever.
func (r *RabbitMQClient) ConsumeWithContext(ctx context.Context, queueName string, handler func(body []byte) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		r.mu.RLock()
		if r.isReconnecting || r.ch == nil {
			r.mu.RUnlock()
			time.Sleep(time.Second)
			continue
		}
		ch := r.ch
		r.mu.RUnlock()

		msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
		if err != nil {
			r.logger.Warn("failed to register consumer", "queue", queueName, "error", err)
			time.Sleep(2 * time.Second)
			continue
		}

	deliver:
		for {
			select {
			case <-ctx.Done():
				return nil
			case d, ok := <-msgs:
				if !ok {
					break deliver
				}
				if err := handler(d.Body); err != nil {
					r.logger.Error("message handling failed", "queue", queueName, "error", err)
					d.Nack(false, false)
				} else {
					d.Ack(false)
				}
			}
		}

		r.logger.Warn("consumer channel closed, waiting for reconnection", "queue", queueName)
		time.Sleep(r.config.ReconnectDelay)
	}
}

func (r *RabbitMQClient) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.isClosed = true
	if r.ch != nil {
		r.ch.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

func (r *RabbitMQClient) IsHealthy() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn != nil && !r.conn.IsClosed() && !r.isReconnecting
}

func maskURL(url string) string {
	if parts := strings.Split(url, "@"); len(parts) > 1 {
		prefixParts := strings.Split(parts[0], "://")
		if len(prefixParts) == 2 {
			return prefixParts[0] + "://***:***@" + parts[1]
		}
	}
	return url
}
