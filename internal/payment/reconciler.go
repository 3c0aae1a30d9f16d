package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-payments/internal/kafka"
	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

const reasonAmountMismatch = "amount mismatch"

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// StatusCache is satisfied by *redisx.StatusCache.
type StatusCache interface {
	SetOrderStatus(ctx context.Context, orderID string, status orders.Status) error
}

type PaymentStore interface {
	orders.OrderStore
	orders.TransactionStore
}

// Reconciler applies payment provider callbacks to orders.
//
// Reconcile is safe to call any number of times with the same
// Notification: after the first successful application the order status
// and its transaction rows stay as they are. A duplicate is recognised by
// the provider transaction id, or, when the provider sent none, by the
// newest transaction carrying the same amount and status.
type Reconciler struct {
	Store   PaymentStore
	Tx      orders.TxManager
	Events  EventPublisher // optional
	Cache   StatusCache    // optional
	Service string
	Log     *slog.Logger
}

type decision struct {
	outcome   Outcome
	txnStatus orders.PaymentStatus
	reason    string
	to        orders.Status // empty: order status unchanged
}

// decide is the whole policy; it does not touch the store.
func decide(o *orders.Order, n Notification) (decision, error) {
	if n.Amount != o.Total {
		return decision{outcome: OutcomeAmountMismatch, txnStatus: orders.PaymentFailed, reason: reasonAmountMismatch}, nil
	}
	switch n.Status {
	case orders.PaymentPaid:
		if o.Status == orders.StatusPaid {
			return decision{outcome: OutcomeAlreadyPaid, txnStatus: orders.PaymentPaid}, nil
		}
		if !orders.CanTransition(o.Status, orders.StatusPaid) {
			return decision{}, &orders.TransitionError{From: o.Status, To: orders.StatusPaid}
		}
		return decision{outcome: OutcomeApplied, txnStatus: orders.PaymentPaid, to: orders.StatusPaid}, nil
	case orders.PaymentFailed:
		return decision{outcome: OutcomeFailed, txnStatus: orders.PaymentFailed, reason: "declined by provider"}, nil
	default:
		return decision{outcome: OutcomePending, txnStatus: orders.PaymentPending}, nil
	}
}

func sameDelivery(t *orders.Transaction, n Notification, d decision) bool {
	return t.Provider == n.Provider && t.ProviderTxnID == "" &&
		t.Amount == n.Amount && t.Status == d.txnStatus && t.Reason == d.reason
}

func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (Result, error) {
	if n.Provider == "" {
		n.Provider = ProviderSePay
	}
	log := r.Log.With("reference", n.Reference, "provider_txn_id", n.ProviderTxnID, "reported_status", n.Status)

	var (
		res      Result
		expected int64
		from     orders.Status
		written  bool
	)
	err := r.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := r.Store.LockOrderByReference(ctx, n.Reference)
		if err != nil {
			return err
		}
		res = Result{OrderID: o.ID, Reference: o.Reference, Status: o.Status}
		expected, from = o.Total, o.Status

		prev, err := r.Store.FindTransaction(ctx, n.Provider, n.ProviderTxnID)
		switch {
		case err == nil:
			res.Outcome, res.Transaction = OutcomeDuplicate, prev
			return nil
		case !errors.Is(err, orders.ErrTransactionNotFound):
			return err
		}

		latest, err := r.Store.LatestTransaction(ctx, o.ID)
		if err != nil && !errors.Is(err, orders.ErrTransactionNotFound) {
			return err
		}

		d, err := decide(o, n)
		if err != nil {
			return err
		}
		if n.ProviderTxnID == "" && latest != nil && sameDelivery(latest, n, d) {
			res.Outcome, res.Transaction = OutcomeDuplicate, latest
			return nil
		}

		txn := &orders.Transaction{
			OrderID:       o.ID,
			Provider:      n.Provider,
			ProviderTxnID: n.ProviderTxnID,
			Amount:        n.Amount,
			Status:        d.txnStatus,
			Reason:        d.reason,
		}
		inserted, err := r.Store.AppendTransaction(ctx, txn)
		if err != nil {
			return err
		}
		if !inserted {
			res.Outcome = OutcomeDuplicate
			return nil
		}
		if d.to != "" {
			if err := r.Store.UpdateOrderStatus(ctx, o.ID, o.Status, d.to); err != nil {
				return err
			}
			res.Status = d.to
		}
		res.Outcome, res.Transaction, written = d.outcome, txn, true
		return nil
	})
	if err != nil {
		var te *orders.TransitionError
		if errors.As(err, &te) {
			log.Warn("payment for order outside payable state", "order_id", res.OrderID, "status", te.From)
		}
		return res, err
	}

	switch res.Outcome {
	case OutcomeAmountMismatch:
		// recorded, not thrown; the PaymentFailed event is the alerting path
		log.Warn("payment amount mismatch", "order_id", res.OrderID, "expected", expected, "reported", n.Amount)
	case OutcomeDuplicate:
		log.Info("duplicate payment callback ignored", "order_id", res.OrderID)
	default:
		log.Info("payment reconciled", "order_id", res.OrderID, "outcome", res.Outcome, "from", from, "status", res.Status)
	}

	if written {
		r.afterCommit(ctx, res, n, expected)
	}
	return res, nil
}

func (r *Reconciler) afterCommit(ctx context.Context, res Result, n Notification, expected int64) {
	if res.Outcome == OutcomeApplied && r.Cache != nil {
		if err := r.Cache.SetOrderStatus(ctx, res.OrderID, res.Status); err != nil {
			r.Log.Warn("status cache update failed", "order_id", res.OrderID, "err", err)
		}
	}
	if r.Events == nil {
		return
	}

	switch res.Outcome {
	case OutcomeApplied:
		r.publish(orders.TopicPaymentAuthorized, orders.EventPaymentAuthorized, res.OrderID, orders.PaymentAuthorizedPayload{
			OrderID:       res.OrderID,
			Reference:     res.Reference,
			ProviderTxnID: n.ProviderTxnID,
			Amount:        n.Amount,
		})
	case OutcomeAmountMismatch, OutcomeFailed:
		reason := orders.ReasonProviderDeclined
		if res.Outcome == OutcomeAmountMismatch {
			reason = orders.ReasonAmountMismatch
		}
		r.publish(orders.TopicPaymentFailed, orders.EventPaymentFailed, res.OrderID, orders.PaymentFailedPayload{
			OrderID:        res.OrderID,
			Reference:      res.Reference,
			ProviderTxnID:  n.ProviderTxnID,
			Reason:         reason,
			ExpectedAmount: expected,
			ReportedAmount: n.Amount,
		})
	}
}

func (r *Reconciler) publish(topic, eventType, orderID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      r.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	r.Events.Publish(topic, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
