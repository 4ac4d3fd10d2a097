package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"orderledger/internal/ledger"
	"orderledger/internal/order"
	"orderledger/internal/shopify"
)

// Server is the webhook intake HTTP server.
type Server struct {
	config  Config
	ledger  LedgerAppender
	journal DeliveryJournal
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new intake server. journal may be nil to disable the local
// delivery journal.
func New(config Config, appender LedgerAppender, journal DeliveryJournal, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.WriteAttempts == 0 {
		config.WriteAttempts = DefaultWriteAttempts
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = DefaultRetryBackoff
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if config.TopicHeader == "" {
		config.TopicHeader = DefaultTopicHeader
	}

	return &Server{
		config:  config,
		ledger:  appender,
		journal: journal,
		logger:  logger,
	}
}

// Start starts the intake HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/webhook/orders", s.handleOrders)
	r.Get("/health", s.handleHealth)

	return r
}

// loggingMiddleware logs HTTP requests (excludes payload content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleOrders runs the intake pipeline: verify, normalize, append, ack.
func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Buffer the exact wire bytes; the verifier must see what the sender
	// signed, not a re-serialized form.
	limitedReader := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	signature := r.Header.Get(s.config.SignatureHeader)
	if !shopify.VerifySignature(body, signature, s.config.Secret) {
		s.logger.Warn("webhook signature verification failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(ctx),
		)
		s.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	topic := r.Header.Get(s.config.TopicHeader)
	if topic == "" {
		topic = UnknownTopic
	}

	o, err := shopify.Normalize(body, topic, time.Now().UTC())
	if err != nil {
		s.logger.Warn("webhook payload rejected",
			"topic", topic,
			"request_id", middleware.GetReqID(ctx),
			"error", err,
		)
		s.respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	deliveryID := s.recordDelivery(ctx, topic, o, body)

	attempts, err := s.appendWithRetry(ctx, o)
	if err != nil {
		s.logger.Error("ledger write failed",
			"order_id", o.ID,
			"order_number", o.Number,
			"topic", topic,
			"attempts", attempts,
			"delivery_id", deliveryID,
			"error", err,
		)
		s.completeDelivery(deliveryID, attempts, err)
		// Shopify redelivers on 5xx, so an exhausted write is recoverable
		// upstream even though we give up here.
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info("order recorded",
		"order_id", o.ID,
		"order_number", o.Number,
		"topic", topic,
		"attempts", attempts,
		"delivery_id", deliveryID,
	)
	s.completeDelivery(deliveryID, attempts, nil)
	s.respondText(w, http.StatusOK, "OK")
}

// appendWithRetry issues the ledger append, retrying transient failures with
// exponential backoff. Returns the number of attempts made.
func (s *Server) appendWithRetry(ctx context.Context, o order.Order) (int, error) {
	backoff := s.config.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= s.config.WriteAttempts; attempt++ {
		err := s.ledger.Append(ctx, o)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !ledger.IsTransient(err) {
			return attempt, err
		}
		if attempt == s.config.WriteAttempts {
			break
		}

		s.logger.Warn("transient ledger write failure, retrying",
			"order_id", o.ID,
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return s.config.WriteAttempts, fmt.Errorf("ledger append exhausted after %d attempts: %w", s.config.WriteAttempts, lastErr)
}

// recordDelivery journals the accepted delivery. Best-effort: failures are
// logged and an empty id is returned.
func (s *Server) recordDelivery(ctx context.Context, topic string, o order.Order, body []byte) string {
	if s.journal == nil {
		return ""
	}
	id, err := s.journal.Record(ctx, topic, o.ID, o.Number, body)
	if err != nil {
		s.logger.Warn("failed to journal delivery", "order_id", o.ID, "error", err)
		return ""
	}
	return id
}

// completeDelivery updates the journal entry with the terminal outcome.
// Runs on the background context so a canceled request still records.
func (s *Server) completeDelivery(id string, attempts int, writeErr error) {
	if s.journal == nil || id == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	if writeErr != nil {
		err = s.journal.MarkFailed(ctx, id, attempts, writeErr.Error())
	} else {
		err = s.journal.MarkDelivered(ctx, id, attempts)
	}
	if err != nil {
		s.logger.Warn("failed to update delivery journal", "delivery_id", id, "error", err)
	}
}

// handleHealth reports liveness. No side effects.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}

// respondText sends a plain-text response; the provider only checks the
// status code, "OK" matches its delivery logs.
func (s *Server) respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
