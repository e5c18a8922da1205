package amqp

import (
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

const (
	RoutingKeySummaryCompleted = "summary.completed"

	// VoiceQueue is consumed by the audio pipeline
	VoiceQueue = "voice.summaries"
)

// Client manages the RabbitMQ connection and channel
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex
	url     string
}

func NewClient(url string) (*Client, error) {
	client := &Client{url: url}
	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create AMQP client: %w", err)
	}
	return client, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	c.conn = conn
	c.channel = ch
	go c.handleConnectionClose(conn)

	log.Info("[AMQP] Connected")
	return nil
}

func (c *Client) handleConnectionClose(conn *amqp.Connection) {
	closeErr := conn.NotifyClose(make(chan *amqp.Error, 1))
	if err := <-closeErr; err != nil {
		log.Errorf("[AMQP] Connection closed: %v", err)
	}
}

func (c *Client) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// SetupTopology declares the durable topic exchange and the voice pipeline queue
func (c *Client) SetupTopology(exchange string) error {
	ch := c.Channel()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange '%s': %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(VoiceQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", VoiceQueue, err)
	}
	if err := ch.QueueBind(VoiceQueue, RoutingKeySummaryCompleted, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue '%s': %w", VoiceQueue, err)
	}
	log.WithFields(log.Fields{"exchange": exchange, "queue": VoiceQueue}).Debug("[AMQP] Topology ready")
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}
