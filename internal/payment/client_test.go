package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateIntent_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/payment_intents" {
			t.Fatalf("path = %s, want /v1/payment_intents", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk_test_123" {
			t.Fatalf("authorization = %q", auth)
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("amount"); got != "1999" {
			t.Fatalf("amount = %q, want 1999", got)
		}
		if got := r.PostForm.Get("currency"); got != "usd" {
			t.Fatalf("currency = %q, want usd", got)
		}
		if got := r.PostForm.Get("metadata[productId]"); got != "7" {
			t.Fatalf("metadata[productId] = %q, want 7", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Intent{
			ID:           "pi_123",
			ClientSecret: "pi_123_secret",
			Status:       "requires_payment_method",
			Amount:       1999,
			Currency:     "usd",
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test_123")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	intent, err := client.CreateIntent(ctx, 1999, "usd", map[string]string{"productId": "7"})
	if err != nil {
		t.Fatalf("CreateIntent error: %v", err)
	}
	if intent.ID != "pi_123" || intent.ClientSecret != "pi_123_secret" {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestGetIntent_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents/pi_42" {
			t.Fatalf("path = %s, want /v1/payment_intents/pi_42", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Intent{
			ID:       "pi_42",
			Status:   StatusSucceeded,
			Amount:   500,
			Currency: "usd",
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test_123")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	intent, err := client.GetIntent(ctx, "pi_42")
	if err != nil {
		t.Fatalf("GetIntent error: %v", err)
	}
	if intent.Status != StatusSucceeded || intent.Amount != 500 {
		t.Fatalf("unexpected intent: %+v", intent)
	}
}

func TestGetIntent_GatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"No such payment_intent"}}`))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "sk_test_123")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.GetIntent(ctx, "pi_missing")
	if err == nil {
		t.Fatalf("expected error for 404 response")
	}
}

func TestGetIntent_EmptyID(t *testing.T) {
	client := NewClient("http://localhost:1", "sk_test_123")

	_, err := client.GetIntent(context.Background(), "")
	if err == nil {
		t.Fatalf("expected error for empty intent id")
	}
}
