package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OrderTopics are the webhook subscriptions the setup helper registers.
var OrderTopics = []string{
	"orders/create",
	"orders/updated",
	"orders/fulfilled",
	"orders/paid",
	"orders/cancelled",
}

// DefaultAPIVersion is the Shopify Admin API version used when the config
// does not pin one.
const DefaultAPIVersion = "2024-01"

// Registrar registers webhook subscriptions with the Shopify Admin REST API.
// This is a manual, administrative operation, never part of the request path.
type Registrar struct {
	client      *http.Client
	baseURL     string
	accessToken string
	apiVersion  string
	logger      *slog.Logger
}

// NewRegistrar creates a Registrar for the given shop domain
// (e.g. "your-shop.myshopify.com") and Admin API access token.
func NewRegistrar(shopDomain, accessToken, apiVersion string, logger *slog.Logger) *Registrar {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Registrar{
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     "https://" + shopDomain,
		accessToken: accessToken,
		apiVersion:  apiVersion,
		logger:      logger,
	}
}

type webhookSubscription struct {
	ID      int64  `json:"id,omitempty"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format,omitempty"`
}

type webhookList struct {
	Webhooks []webhookSubscription `json:"webhooks"`
}

type webhookEnvelope struct {
	Webhook webhookSubscription `json:"webhook"`
}

// EnsureWebhooks idempotently registers callbackURL for each topic. Existing
// subscriptions with the same topic and address are left alone, so the helper
// is safe to re-run.
func (r *Registrar) EnsureWebhooks(ctx context.Context, callbackURL string, topics []string) error {
	if callbackURL == "" {
		return fmt.Errorf("callback URL is empty")
	}
	if len(topics) == 0 {
		topics = OrderTopics
	}

	existing, err := r.listWebhooks(ctx)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}

	registered := make(map[string]bool, len(existing))
	for _, wh := range existing {
		registered[wh.Topic+"|"+wh.Address] = true
	}

	for _, topic := range topics {
		if registered[topic+"|"+callbackURL] {
			r.logger.Info("webhook already registered", "topic", topic, "address", callbackURL)
			continue
		}
		if err := r.createWebhook(ctx, topic, callbackURL); err != nil {
			return fmt.Errorf("register %s: %w", topic, err)
		}
		r.logger.Info("webhook registered", "topic", topic, "address", callbackURL)
	}

	return nil
}

func (r *Registrar) listWebhooks(ctx context.Context) ([]webhookSubscription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Shopify-Access-Token", r.accessToken)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	}

	var list webhookList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode webhook list: %w", err)
	}
	return list.Webhooks, nil
}

func (r *Registrar) createWebhook(ctx context.Context, topic, address string) error {
	payload, err := json.Marshal(webhookEnvelope{
		Webhook: webhookSubscription{Topic: topic, Address: address, Format: "json"},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", r.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readBodyPrefix(resp.Body))
	}
	return nil
}

func (r *Registrar) endpoint() string {
	return fmt.Sprintf("%s/admin/api/%s/webhooks.json", r.baseURL, r.apiVersion)
}

func readBodyPrefix(body io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(body, 512))
	return string(b)
}
