package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/ariefcatur/go-storefront-payments/internal/payment"
	"github.com/shopspring/decimal"
)

// HeaderSecretKey carries the shared secret configured in the SePay dashboard.
const HeaderSecretKey = "X-Secret-Key"

// SePayIPN is the IPN body posted by SePay.
type SePayIPN struct {
	Timestamp        int64  `json:"timestamp"`
	NotificationType string `json:"notification_type"`
	Order            struct {
		ID                 string `json:"id"`
		OrderID            string `json:"order_id"`
		OrderStatus        string `json:"order_status"`
		OrderCurrency      string `json:"order_currency"`
		OrderAmount        string `json:"order_amount"`
		OrderInvoiceNumber string `json:"order_invoice_number"`
		OrderDescription   string `json:"order_description"`
	} `json:"order"`
	Transaction struct {
		ID                  string `json:"id"`
		PaymentMethod       string `json:"payment_method"`
		TransactionID       string `json:"transaction_id"`
		TransactionType     string `json:"transaction_type"`
		TransactionDate     string `json:"transaction_date"`
		TransactionStatus   string `json:"transaction_status"`
		TransactionAmount   string `json:"transaction_amount"`
		TransactionCurrency string `json:"transaction_currency"`
	} `json:"transaction"`
}

// VerifySecret compares the X-Secret-Key header with the configured
// secret. An empty expected secret disables the check.
func VerifySecret(got, expected string) error {
	if expected == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(expected)) != 1 {
		return fmt.Errorf("secret key mismatch: %w", ErrForbidden)
	}
	return nil
}

// ParseNotification decodes a SePay IPN body into a payment.Notification.
func ParseNotification(body []byte) (payment.Notification, error) {
	var ipn SePayIPN
	if err := json.Unmarshal(body, &ipn); err != nil {
		return payment.Notification{}, fmt.Errorf("decode ipn: %v: %w", err, ErrMalformedPayload)
	}

	ref := strings.TrimSpace(ipn.Order.OrderInvoiceNumber)
	if ref == "" {
		return payment.Notification{}, fmt.Errorf("missing order_invoice_number: %w", ErrMalformedPayload)
	}

	rawAmount := ipn.Transaction.TransactionAmount
	if strings.TrimSpace(rawAmount) == "" {
		rawAmount = ipn.Order.OrderAmount
	}
	amount, err := parseAmount(rawAmount)
	if err != nil {
		return payment.Notification{}, err
	}

	txnID := strings.TrimSpace(ipn.Transaction.TransactionID)
	if txnID == "" {
		txnID = strings.TrimSpace(ipn.Transaction.ID)
	}

	return payment.Notification{
		Provider:      payment.ProviderSePay,
		Reference:     ref,
		Amount:        amount,
		Status:        mapStatus(ipn.NotificationType, ipn.Transaction.TransactionStatus),
		ProviderTxnID: txnID,
	}, nil
}

// parseAmount accepts "100000" or "100000.00"; fractional units are rejected
// because orders are priced in whole currency units.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing amount: %w", ErrMalformedPayload)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, ErrMalformedPayload)
	}
	if d.IsNegative() || !d.IsInteger() {
		return 0, fmt.Errorf("amount %q: %w", s, ErrMalformedPayload)
	}
	// IntPart silently wraps values beyond int64
	n := d.BigInt()
	if !n.IsInt64() {
		return 0, fmt.Errorf("amount %q out of range: %w", s, ErrMalformedPayload)
	}
	return n.Int64(), nil
}

func mapStatus(notificationType, txnStatus string) orders.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(notificationType)) {
	case "ORDER_PAID":
		return orders.PaymentPaid
	case "ORDER_FAILED", "TRANSACTION_VOID":
		return orders.PaymentFailed
	}
	switch strings.ToUpper(strings.TrimSpace(txnStatus)) {
	case "APPROVED", "SUCCESS", "CAPTURED", "PAID":
		return orders.PaymentPaid
	case "DECLINED", "FAILED", "CANCELLED", "EXPIRED", "VOID":
		return orders.PaymentFailed
	}
	return orders.PaymentPending
}
