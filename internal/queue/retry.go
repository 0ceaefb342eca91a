package queue

import (
	"context"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	zlog "github.com/rs/zerolog/log"
)

const (
	// MaxRetries is the total number of handler failures a message is allowed
	// before it is dead-lettered.
	MaxRetries = 5
	// BaseBackoff is the first retry delay; each further retry doubles it.
	BaseBackoff = 2 * time.Second

	retriesHeader = "x-retries"
)

// RetryQueue names the delayed-redelivery queue for a primary queue.
func RetryQueue(queue string) string { return queue + "_retry" }

// DeadLetterQueue names the terminal queue for a primary queue.
func DeadLetterQueue(queue string) string { return queue + "_dlq" }

func primaryQueue(queue string) string {
	queue = strings.TrimSuffix(queue, "_retry")
	return strings.TrimSuffix(queue, "_dlq")
}

// RetryCount reads the retry counter from message headers, defaulting to 0.
// Header values arrive as whatever integer width the broker round-tripped.
func RetryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[retriesHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// Backoff returns the delay before the given (1-based) retry attempt:
// BaseBackoff doubled once per prior failure.
func Backoff(retries int) time.Duration {
	if retries < 1 {
		retries = 1
	}
	return BaseBackoff << (retries - 1)
}

// Exhausted reports whether a message that already failed `next` times must
// be dead-lettered instead of retried.
func Exhausted(next int) bool {
	return next >= MaxRetries
}

// retryOrDeadLetter acknowledges a failed delivery and either schedules a
// delayed redelivery through the retry queue or moves the body verbatim to
// the dead-letter queue. Either way the message leaves the primary queue
// exactly once per failure; nothing is silently dropped.
func (c *Client) retryOrDeadLetter(ctx context.Context, queue string, d amqp.Delivery, cause error) {
	next := RetryCount(d.Headers) + 1

	if Exhausted(next) {
		dlq := DeadLetterQueue(queue)
		if err := c.publishRaw(ctx, dlq, d.Body, amqp.Table{retriesHeader: int32(next)}, ""); err != nil {
			zlog.Error().Err(err).Str("queue", dlq).Msg("dead-letter publish failed, leaving delivery unacked")
			_ = d.Nack(false, true)
			return
		}
		zlog.Error().Err(cause).Str("queue", queue).Int("retries", next).
			Msg("retries exhausted, moved to dead-letter queue")
		if err := d.Ack(false); err != nil {
			zlog.Error().Err(err).Str("queue", queue).Msg("ack failed after dead-letter")
		}
		return
	}

	delay := Backoff(next)
	expiration := strconv.FormatInt(delay.Milliseconds(), 10)
	if err := c.publishRaw(ctx, RetryQueue(queue), d.Body, amqp.Table{retriesHeader: int32(next)}, expiration); err != nil {
		// Leave the delivery unacked so the broker redelivers it; losing the
		// message entirely would be worse than an early retry.
		zlog.Error().Err(err).Str("queue", queue).Msg("retry publish failed, leaving delivery unacked")
		_ = d.Nack(false, true)
		return
	}

	zlog.Warn().Err(cause).Str("queue", queue).Int("retries", next).Dur("backoff", delay).
		Msg("handler failed, scheduled retry")
	if err := d.Ack(false); err != nil {
		zlog.Error().Err(err).Str("queue", queue).Msg("ack failed after retry publish")
	}
}
