package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	platformlogging "github.com/sidelinehq/trophy-cabinet/platform/go/logging"
)

// Stripe caps event payloads well below this, anything larger is junk.
const maxPayloadBytes = 1 << 20

// Handler receives Stripe webhook notifications. Events are verified and
// acknowledged only; subscription state is not tracked yet.
type Handler struct {
	signingSecret string
	logger        *zap.Logger
}

// New constructs a Handler instance.
func New(signingSecret string, logger *zap.Logger) *Handler {
	if signingSecret == "" {
		panic("stripe signing secret is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{signingSecret: signingSecret, logger: logger}
}

// Register mounts the webhook route. It lives outside the authenticated
// API group; Stripe authenticates through the signature header.
func (h *Handler) Register(r chi.Router) {
	r.Post("/webhooks/stripe", h.Receive)
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerFrom(r)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		logger.Warn("reading stripe payload failed", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		logger.Warn("stripe signature verification failed", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted,
		stripe.EventTypeInvoicePaid,
		stripe.EventTypeInvoicePaymentFailed:
		logger.Info("stripe event received",
			zap.String("eventId", event.ID),
			zap.String("eventType", string(event.Type)))
	default:
		logger.Debug("stripe event ignored",
			zap.String("eventId", event.ID),
			zap.String("eventType", string(event.Type)))
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) loggerFrom(r *http.Request) *zap.Logger {
	if logger, ok := platformlogging.FromContext(r.Context()); ok {
		return logger
	}
	return h.logger
}
