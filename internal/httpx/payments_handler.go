package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/ariefcatur/go-storefront-payments/internal/payment"
	"github.com/ariefcatur/go-storefront-payments/internal/webhook"
	"github.com/go-chi/chi/v5"
)

const maxWebhookBody = 64 << 10

// PaymentsHandler receives payment provider callbacks.
type PaymentsHandler struct {
	Reconciler *payment.Reconciler
	AllowList  *webhook.AllowList
	Secret     string
	// Sandbox skips the shared secret check.
	Sandbox bool
	Log     *slog.Logger
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/webhooks/sepay", h.sepayIPN)
}

var outcomeMessages = map[payment.Outcome]string{
	payment.OutcomeApplied:        "payment applied",
	payment.OutcomeAlreadyPaid:    "order already paid",
	payment.OutcomeDuplicate:      "duplicate notification",
	payment.OutcomeAmountMismatch: "amount mismatch",
	payment.OutcomeFailed:         "payment failure recorded",
	payment.OutcomePending:        "payment pending",
}

func (h *PaymentsHandler) sepayIPN(w http.ResponseWriter, r *http.Request) {
	// caller checks happen before the body is read
	ip, err := webhook.ClientIP(r.Header)
	if err != nil {
		h.Log.Warn("webhook caller ip unresolvable", "remote_addr", r.RemoteAddr)
		writeError(w, h.Log, err)
		return
	}
	if !h.AllowList.Allows(ip) {
		h.Log.Warn("webhook caller not allow-listed", "ip", ip)
		writeError(w, h.Log, fmt.Errorf("ip %s not allowed: %w", ip, webhook.ErrForbidden))
		return
	}
	if !h.Sandbox {
		if err := webhook.VerifySecret(r.Header.Get(webhook.HeaderSecretKey), h.Secret); err != nil {
			h.Log.Warn("webhook secret rejected", "ip", ip)
			writeError(w, h.Log, err)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, h.Log, fmt.Errorf("read body: %v: %w", err, webhook.ErrMalformedPayload))
		return
	}
	n, err := webhook.ParseNotification(body)
	if err != nil {
		h.Log.Warn("malformed ipn", "ip", ip, "err", err)
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reconciler.Reconcile(ctx, n)
	var te *orders.TransitionError
	if errors.As(err, &te) {
		// a retry cannot succeed, so answer 2xx and stop provider redelivery
		writeJSON(w, http.StatusOK, envelope{Success: false, Message: fmt.Sprintf("order not payable in status %s", te.From)})
		return
	}
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: res.Outcome.Accepted(), Message: outcomeMessages[res.Outcome]})
}
