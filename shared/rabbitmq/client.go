package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned when publishing on a closed client
var ErrNotConnected = errors.New("not connected to RabbitMQ")

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	// QueueName is optional. When set the queue is declared and bound so
	// events are retained before any consumer attaches.
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// URL builds the AMQP connection string
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   c.VHost,
	}
	return u.String()
}

// Client publishes messages to a single exchange
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *slog.Logger
	closeChan   chan *amqp.Error
	isConnected atomic.Bool
}

// NewClient creates a new RabbitMQ client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config:    config,
		logger:    logger,
		closeChan: make(chan *amqp.Error, 1),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	attempts := max(c.config.RetryAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(c.config.URL(), amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.channel, err = c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.setup(); err != nil {
		c.channel.Close()
		c.conn.Close()
		return fmt.Errorf("failed to setup exchange: %w", err)
	}

	c.channel.NotifyClose(c.closeChan)
	c.isConnected.Store(true)
	go c.watch()

	c.logger.Info("RabbitMQ client initialized",
		slog.String("exchange", c.config.ExchangeName),
		slog.String("queue", c.config.QueueName),
	)

	return nil
}

// watch flips the connected flag when the broker closes the channel
func (c *Client) watch() {
	amqpErr, ok := <-c.closeChan
	c.isConnected.Store(false)
	if ok && amqpErr != nil {
		c.logger.Error("RabbitMQ channel closed", slog.Any("error", amqpErr))
	}
}

// setup declares the exchange and, when configured, a bound queue
func (c *Client) setup() error {
	cfg := c.config
	if err := c.channel.ExchangeDeclare(cfg.ExchangeName, cfg.ExchangeType,
		cfg.ExchangeDurable, cfg.ExchangeAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", cfg.ExchangeName, err)
	}

	if cfg.QueueName == "" {
		return nil
	}

	if _, err := c.channel.QueueDeclare(cfg.QueueName, cfg.QueueDurable,
		cfg.QueueAutoDelete, cfg.QueueExclusive, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", cfg.QueueName, err)
	}

	if err := c.channel.QueueBind(cfg.QueueName, cfg.RoutingKey, cfg.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %q: %w", cfg.QueueName, err)
	}

	return nil
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.isConnected.Store(false)

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	return c.isConnected.Load() && c.conn != nil && !c.conn.IsClosed()
}

// PublishWithRetry publishes a persistent message with exponential backoff.
// It gives up early when ctx ends.
func (c *Client) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	if !c.isConnected.Load() {
		return ErrNotConnected
	}

	retries := c.config.PublishRetries
	if retries <= 0 {
		retries = 3
	}

	msg := amqp.Publishing{
		ContentType:  contentType,
		Body:         body,
		DeliveryMode: amqp.Persistent,
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		msg.Timestamp = time.Now()
		lastErr = c.channel.PublishWithContext(ctx, c.config.ExchangeName, c.config.RoutingKey, false, false, msg)
		if lastErr == nil {
			c.logger.Debug("Published message",
				slog.String("routing_key", c.config.RoutingKey),
				slog.Int("body_size", len(body)),
				slog.Int("attempt", attempt+1),
			)
			return nil
		}

		if attempt == retries {
			break
		}

		delay := c.config.backoff(attempt)
		c.logger.Warn("Publish failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", retries),
			slog.Duration("retry_after", delay),
			slog.Any("error", lastErr),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("publish aborted after %d attempts: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}
	}

	c.logger.Error("Publish failed after all retries",
		slog.Int("attempts", retries+1),
		slog.Any("error", lastErr),
	)
	return fmt.Errorf("failed to publish message after %d attempts: %w", retries+1, lastErr)
}

// backoff returns the wait before retry number attempt+1
func (c *Config) backoff(attempt int) time.Duration {
	base := c.PublishRetryDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	mult := c.PublishBackoffMult
	if mult <= 0 {
		mult = 2.0
	}
	return time.Duration(float64(base) * math.Pow(mult, float64(attempt)))
}
