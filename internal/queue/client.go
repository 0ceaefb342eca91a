package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"
)

// ErrDiscard tells the consume loop to acknowledge a delivery without
// retrying it. Handlers return it for payloads that can never succeed, such
// as malformed jobs.
var ErrDiscard = errors.New("queue: discard message")

// Handler processes one delivery. A nil return acknowledges the message; any
// other error routes it through the retry/dead-letter policy.
type Handler func(ctx context.Context, body []byte, headers amqp.Table) error

// Client is a durable AMQP queue client. Publishes run on a confirm channel
// and resolve only after the broker acknowledges them; consumption is
// prefetch-1 with manual acks.
type Client struct {
	url            string
	connectRetries int
	connectDelay   time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects with bounded retries and a fixed delay between attempts.
func Dial(url string, maxRetries int, retryDelay time.Duration) (*Client, error) {
	c := &Client{url: url, connectRetries: maxRetries, connectDelay: retryDelay}
	if _, err := c.channel(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil && c.conn != nil && !c.conn.IsClosed() {
		return c.ch, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.connectRetries; attempt++ {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			lastErr = err
			zlog.Error().Err(err).Int("attempt", attempt).Int("max", c.connectRetries).
				Msg("broker connection failed")
			time.Sleep(c.connectDelay)
			continue
		}

		ch, err := conn.Channel()
		if err != nil {
			lastErr = err
			_ = conn.Close()
			time.Sleep(c.connectDelay)
			continue
		}
		if err := ch.Confirm(false); err != nil {
			lastErr = err
			_ = conn.Close()
			time.Sleep(c.connectDelay)
			continue
		}

		c.conn = conn
		c.ch = ch
		zlog.Info().Msg("broker connected, confirm channel open")
		return ch, nil
	}

	return nil, fmt.Errorf("queue: connect failed after %d attempts: %w", c.connectRetries, lastErr)
}

// declare asserts the durable queue plus its retry and dead-letter siblings.
// The retry queue dead-letters back into the primary queue, so a delayed
// redelivery survives a worker crash during the backoff window.
func (c *Client) declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue: declare %s: %w", queue, err)
	}
	if _, err := ch.QueueDeclare(RetryQueue(queue), true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": queue,
	}); err != nil {
		return fmt.Errorf("queue: declare %s: %w", RetryQueue(queue), err)
	}
	if _, err := ch.QueueDeclare(DeadLetterQueue(queue), true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue: declare %s: %w", DeadLetterQueue(queue), err)
	}
	return nil
}

// Publish marshals payload as JSON and sends it to the named durable queue,
// waiting for the broker's publish confirm.
func (c *Client) Publish(ctx context.Context, queue string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("queue: marshal payload: %w", err)
	}
	return c.publishRaw(ctx, queue, body, nil, "")
}

func (c *Client) publishRaw(ctx context.Context, queue string, body []byte, headers amqp.Table, expiration string) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	if err := c.declare(ch, primaryQueue(queue)); err != nil {
		return err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
		Expiration:   expiration,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("queue: publish to %s: %w", queue, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("queue: confirm for %s: %w", queue, err)
	}
	if !acked {
		return fmt.Errorf("queue: broker nacked publish to %s", queue)
	}

	zlog.Debug().Str("queue", queue).Msg("published message")
	return nil
}

// Consume delivers messages from the named queue one at a time to handler.
// Successful handling acks the delivery; ErrDiscard acks and drops it; any
// other error runs the retry/dead-letter policy. Blocks until ctx is done or
// the delivery channel closes.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	if err := c.declare(ch, queue); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("queue: qos: %w", err)
	}

	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue: consume %s: %w", queue, err)
	}

	zlog.Info().Str("queue", queue).Msg("waiting for messages")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("queue: delivery channel for %s closed", queue)
			}

			err := handler(ctx, d.Body, d.Headers)
			switch {
			case err == nil:
				if ackErr := d.Ack(false); ackErr != nil {
					zlog.Error().Err(ackErr).Str("queue", queue).Msg("ack failed")
				}
			case errors.Is(err, ErrDiscard):
				zlog.Warn().Str("queue", queue).Msg("discarding message without retry")
				if ackErr := d.Ack(false); ackErr != nil {
					zlog.Error().Err(ackErr).Str("queue", queue).Msg("ack failed")
				}
			default:
				c.retryOrDeadLetter(ctx, queue, d, err)
			}
		}
	}
}

// Close shuts the channel and connection down gracefully.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
