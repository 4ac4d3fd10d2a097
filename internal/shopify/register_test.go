package shopify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeAdmin emulates the Shopify Admin webhooks endpoint.
type fakeAdmin struct {
	existing []webhookSubscription
	created  []webhookSubscription
}

func (f *fakeAdmin) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Shopify-Access-Token") == "" {
			t.Error("missing access token header")
		}
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(webhookList{Webhooks: f.existing})
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			var env webhookEnvelope
			if err := json.Unmarshal(body, &env); err != nil {
				t.Errorf("bad create payload: %v", err)
			}
			f.created = append(f.created, env.Webhook)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(env)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func newTestRegistrar(srvURL string) *Registrar {
	r := NewRegistrar("test-shop.myshopify.com", "shpat_test", "", testLogger())
	r.baseURL = srvURL
	return r
}

func TestEnsureWebhooks_RegistersAllTopics(t *testing.T) {
	fake := &fakeAdmin{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	r := newTestRegistrar(srv.URL)
	err := r.EnsureWebhooks(context.Background(), "https://example.com/webhook/orders", nil)
	if err != nil {
		t.Fatalf("EnsureWebhooks() error = %v", err)
	}

	if len(fake.created) != len(OrderTopics) {
		t.Fatalf("created %d webhooks, want %d", len(fake.created), len(OrderTopics))
	}
	for i, topic := range OrderTopics {
		if fake.created[i].Topic != topic {
			t.Errorf("created[%d].Topic = %q, want %q", i, fake.created[i].Topic, topic)
		}
		if fake.created[i].Address != "https://example.com/webhook/orders" {
			t.Errorf("created[%d].Address = %q", i, fake.created[i].Address)
		}
		if fake.created[i].Format != "json" {
			t.Errorf("created[%d].Format = %q, want json", i, fake.created[i].Format)
		}
	}
}

func TestEnsureWebhooks_Idempotent(t *testing.T) {
	fake := &fakeAdmin{
		existing: []webhookSubscription{
			{ID: 1, Topic: "orders/create", Address: "https://example.com/webhook/orders"},
			{ID: 2, Topic: "orders/paid", Address: "https://example.com/webhook/orders"},
			// Same topic, different address: must still be registered.
			{ID: 3, Topic: "orders/updated", Address: "https://old.example.com/hook"},
		},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	r := newTestRegistrar(srv.URL)
	err := r.EnsureWebhooks(context.Background(), "https://example.com/webhook/orders", nil)
	if err != nil {
		t.Fatalf("EnsureWebhooks() error = %v", err)
	}

	want := map[string]bool{"orders/updated": true, "orders/fulfilled": true, "orders/cancelled": true}
	if len(fake.created) != len(want) {
		t.Fatalf("created %d webhooks, want %d", len(fake.created), len(want))
	}
	for _, wh := range fake.created {
		if !want[wh.Topic] {
			t.Errorf("unexpected webhook created for %q", wh.Topic)
		}
	}
}

func TestEnsureWebhooks_EmptyCallback(t *testing.T) {
	r := newTestRegistrar("http://127.0.0.1:0")
	if err := r.EnsureWebhooks(context.Background(), "", nil); err == nil {
		t.Fatal("expected error for empty callback URL")
	}
}

func TestEnsureWebhooks_ListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := newTestRegistrar(srv.URL)
	if err := r.EnsureWebhooks(context.Background(), "https://example.com/webhook/orders", nil); err == nil {
		t.Fatal("expected error when listing webhooks fails")
	}
}
