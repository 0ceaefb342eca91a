package queue

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestRetryCountHeaderWidths(t *testing.T) {
	cases := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{"nil headers", nil, 0},
		{"missing header", amqp.Table{}, 0},
		{"int", amqp.Table{"x-retries": 3}, 3},
		{"int32", amqp.Table{"x-retries": int32(4)}, 4},
		{"int64", amqp.Table{"x-retries": int64(2)}, 2},
		{"float64", amqp.Table{"x-retries": float64(1)}, 1},
		{"string", amqp.Table{"x-retries": "5"}, 5},
		{"garbage string", amqp.Table{"x-retries": "many"}, 0},
	}

	for _, tc := range cases {
		if got := RetryCount(tc.headers); got != tc.want {
			t.Errorf("%s: RetryCount = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestBackoffDoubles(t *testing.T) {
	expected := []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
	for i, want := range expected {
		if got := Backoff(i + 1); got != want {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, want)
		}
	}
	if got := Backoff(0); got != BaseBackoff {
		t.Errorf("Backoff(0) = %v, want %v", got, BaseBackoff)
	}
}

func TestExhaustedBoundary(t *testing.T) {
	if Exhausted(MaxRetries - 1) {
		t.Errorf("attempt %d should still be retried", MaxRetries-1)
	}
	if !Exhausted(MaxRetries) {
		t.Errorf("attempt %d should be dead-lettered", MaxRetries)
	}
}

func TestQueueNaming(t *testing.T) {
	if got := RetryQueue("image_processing"); got != "image_processing_retry" {
		t.Errorf("RetryQueue = %q", got)
	}
	if got := DeadLetterQueue("image_processing"); got != "image_processing_dlq" {
		t.Errorf("DeadLetterQueue = %q", got)
	}
	for _, name := range []string{"order_emails", "order_emails_retry", "order_emails_dlq"} {
		if got := primaryQueue(name); got != "order_emails" {
			t.Errorf("primaryQueue(%q) = %q, want order_emails", name, got)
		}
	}
}
