package httpx

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/ariefcatur/go-storefront-payments/internal/webhook"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, webhook.ErrMalformedPayload), errors.Is(err, orders.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, webhook.ErrForbidden), errors.Is(err, webhook.ErrClientIPUnresolvable):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrOrderNotFound), errors.Is(err, orders.ErrVariantNotFound):
		return http.StatusNotFound
	case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrStatusConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError translates err into a status code and error envelope. Details
// of unexpected failures are logged, not returned.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Error("request failed", "err", err)
		msg = "internal error"
	}
	writeJSON(w, code, envelope{Success: false, Message: msg})
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
