package payment

import "github.com/ariefcatur/go-storefront-payments/internal/orders"

// ProviderSePay is recorded on transactions created from SePay callbacks.
const ProviderSePay = "sepay"

// Notification is a provider callback reduced to what reconciliation needs.
type Notification struct {
	Provider      string
	Reference     string
	Amount        int64
	Status        orders.PaymentStatus
	ProviderTxnID string
}

// Outcome says what a reconciliation did.
type Outcome string

const (
	// OutcomeApplied: the order moved to PAID.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyPaid: the order was PAID before this callback.
	OutcomeAlreadyPaid Outcome = "already_paid"
	// OutcomeDuplicate: this provider transaction was processed before; nothing written.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeAmountMismatch: recorded as a FAILED transaction, order untouched.
	OutcomeAmountMismatch Outcome = "amount_mismatch"
	OutcomeFailed         Outcome = "payment_failed"
	OutcomePending        Outcome = "payment_pending"
)

// Accepted is false only for callbacks whose amount disagrees with the order.
func (o Outcome) Accepted() bool {
	return o != OutcomeAmountMismatch
}

type Result struct {
	OrderID     string
	Reference   string
	Status      orders.Status
	Outcome     Outcome
	Transaction *orders.Transaction
}
