package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"estore/internal/models"
)

func TestNotifyProductStatusPassesStatusThrough(t *testing.T) {
	var got ProductStatus
	var secret string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/internal/notify-product" {
			t.Errorf("path = %q", r.URL.Path)
		}
		secret = r.Header.Get("x-worker-secret")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, "s3cret")

	// A product with unprocessed sibling images reports pending, not
	// completed; the endpoint must receive whatever the worker computed.
	err := client.NotifyProductStatus(context.Background(), ProductStatus{
		ProductID:  "p1",
		Status:     models.ImageStatusPending,
		ImageIndex: 1,
		Rendition:  "https://cdn/p1-medium.webp",
	})
	if err != nil {
		t.Fatalf("NotifyProductStatus: %v", err)
	}

	if secret != "s3cret" {
		t.Errorf("x-worker-secret = %q", secret)
	}
	if got.Status != models.ImageStatusPending {
		t.Errorf("status = %q, want %q", got.Status, models.ImageStatusPending)
	}
	if got.ProductID != "p1" || got.ImageIndex != 1 {
		t.Errorf("payload = %+v", got)
	}
}

func TestNotifyProductStatusNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, "wrong")
	err := client.NotifyProductStatus(context.Background(), ProductStatus{ProductID: "p1"})
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
