package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-payments/internal/kafka"
	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/ariefcatur/go-storefront-payments/internal/payment"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// OrderCache is satisfied by *redisx.StatusCache.
type OrderCache interface {
	SetOrderStatus(ctx context.Context, orderID string, status orders.Status) error
	OrderStatus(ctx context.Context, orderID string) (orders.Status, bool, error)
	RememberOrder(ctx context.Context, reference, orderID string) error
	KnownOrder(ctx context.Context, reference string) (string, bool, error)
}

type OrdersHandler struct {
	Orders  *orders.Service
	Cache   OrderCache             // optional
	Events  payment.EventPublisher // optional
	Service string
	Log     *slog.Logger
}

type CreateOrderResp struct {
	OrderID    string        `json:"order_id"`
	Reference  string        `json:"reference"`
	Status     orders.Status `json:"status"`
	Total      int64         `json:"total"`
	Idempotent bool          `json:"idempotent"`
}

type OrderStatusResp struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
}

type PaymentStateResp struct {
	OrderID     string              `json:"order_id"`
	OrderStatus orders.Status       `json:"order_status"`
	Payment     *orders.Transaction `json:"payment"`
}

type AdminOrderResp struct {
	*orders.Order
	NextStatuses []orders.Status `json:"next_statuses"`
}

type TransitionReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrderStatus)
	r.Get("/orders/{id}/payment", h.getPaymentState)
}

// RegisterAdmin mounts the admin console routes; callers wrap them with auth.
func (h *OrdersHandler) RegisterAdmin(r chi.Router) {
	r.Get("/orders/{id}", h.adminGetOrder)
	r.Post("/orders/{id}/status", h.adminTransition)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Log, fmt.Errorf("invalid json: %w", orders.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis (DB tetap jadi kebenaran)
	if h.Cache != nil {
		if id, ok, _ := h.Cache.KnownOrder(ctx, strings.TrimSpace(req.Reference)); ok {
			if o, err := h.Orders.Get(ctx, id); err == nil {
				writeJSON(w, http.StatusOK, createResp(o, true))
				return
			}
		}
	}

	o, existed, err := h.Orders.Create(ctx, req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	if h.Cache != nil {
		_ = h.Cache.RememberOrder(ctx, o.Reference, o.ID)
		_ = h.Cache.SetOrderStatus(ctx, o.ID, o.Status)
	}
	if existed {
		writeJSON(w, http.StatusOK, createResp(o, true))
		return
	}

	h.publish(r, orders.TopicOrderCreated, orders.EventOrderCreated, o.ID, orders.OrderCreatedPayload{
		OrderID:   o.ID,
		Reference: o.Reference,
		UserID:    o.UserID,
		Items:     o.Items,
		Total:     o.Total,
	})
	writeJSON(w, http.StatusCreated, createResp(o, false))
}

func createResp(o *orders.Order, idempotent bool) CreateOrderResp {
	return CreateOrderResp{OrderID: o.ID, Reference: o.Reference, Status: o.Status, Total: o.Total, Idempotent: idempotent}
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	if h.Cache != nil {
		if s, ok, err := h.Cache.OrderStatus(ctx, orderID); err == nil && ok {
			writeJSON(w, http.StatusOK, OrderStatusResp{OrderID: orderID, Status: s})
			return
		}
	}

	// 2) fallback DB
	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Cache != nil {
		_ = h.Cache.SetOrderStatus(ctx, o.ID, o.Status)
	}
	writeJSON(w, http.StatusOK, OrderStatusResp{OrderID: o.ID, Status: o.Status})
}

func (h *OrdersHandler) getPaymentState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, t, err := h.Orders.PaymentState(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentStateResp{OrderID: o.ID, OrderStatus: o.Status, Payment: t})
}

func (h *OrdersHandler) adminGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, AdminOrderResp{Order: o, NextStatuses: orders.NextStatuses(o.Status)})
}

func (h *OrdersHandler) adminTransition(w http.ResponseWriter, r *http.Request) {
	var req TransitionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Log, fmt.Errorf("invalid json: %w", orders.ErrInvalidInput))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, from, err := h.Orders.Transition(ctx, chi.URLParam(r, "id"), orders.Status(strings.ToUpper(string(req.Status))))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Cache != nil {
		_ = h.Cache.SetOrderStatus(ctx, o.ID, o.Status)
	}
	h.publish(r, orders.TopicOrderStatus, orders.EventOrderStatusChanged, o.ID, orders.OrderStatusChangedPayload{
		OrderID: o.ID, From: from, To: o.Status,
	})
	writeJSON(w, http.StatusOK, AdminOrderResp{Order: o, NextStatuses: orders.NextStatuses(o.Status)})
}

func (h *OrdersHandler) publish(r *http.Request, topic, eventType, orderID string, payload any) {
	if h.Events == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Events.Publish(topic, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
