package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentAuthorized  = "PaymentAuthorized"
	EventPaymentFailed      = "PaymentFailed"
)

// Reasons carried by PaymentFailed.
const (
	ReasonAmountMismatch   = "AMOUNT_MISMATCH"
	ReasonProviderDeclined = "PROVIDER_DECLINED"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderCreatedPayload struct {
	OrderID   string      `json:"order_id"`
	Reference string      `json:"reference"`
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     int64       `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type PaymentAuthorizedPayload struct {
	OrderID       string `json:"order_id"`
	Reference     string `json:"reference"`
	ProviderTxnID string `json:"provider_txn_id,omitempty"`
	Amount        int64  `json:"amount"`
}

type PaymentFailedPayload struct {
	OrderID        string `json:"order_id"`
	Reference      string `json:"reference"`
	ProviderTxnID  string `json:"provider_txn_id,omitempty"`
	Reason         string `json:"reason"` // AMOUNT_MISMATCH | PROVIDER_DECLINED
	ExpectedAmount int64  `json:"expected_amount"`
	ReportedAmount int64  `json:"reported_amount"`
}
