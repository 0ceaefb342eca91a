package worker

import (
	"encoding/json"
	"errors"
	"testing"

	"estore/internal/queue"
)

func TestDecodeEmailJobDropsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("{{{")},
		{"missing to", mustJSON(t, queue.EmailJob{Order: &queue.EmailOrder{OrderNumber: 1}})},
		{"missing order", mustJSON(t, queue.EmailJob{To: "a@b.c"})},
	}

	for _, tc := range cases {
		_, err := decodeEmailJob(tc.body)
		if !errors.Is(err, queue.ErrDiscard) {
			t.Errorf("%s: err = %v, want ErrDiscard", tc.name, err)
		}
	}
}

func TestDecodeEmailJobAcceptsValid(t *testing.T) {
	body := mustJSON(t, queue.EmailJob{
		To:    "shopper@example.com",
		Order: &queue.EmailOrder{OrderNumber: 42, TotalAmount: 10},
	})

	job, err := decodeEmailJob(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.To != "shopper@example.com" || job.Order.OrderNumber != 42 {
		t.Fatalf("decoded job = %+v", job)
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}
