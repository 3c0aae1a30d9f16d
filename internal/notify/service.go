package notify

import (
	"context"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/go-storefront-payments/internal/kafka"
	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/ariefcatur/go-storefront-payments/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// StatusCache is satisfied by *redisx.StatusCache.
type StatusCache interface {
	InvalidateOrderStatus(ctx context.Context, orderID string) error
}

// Service consumes payment events. Amount mismatches become alerts;
// authorised payments drop the cached order status so the next read goes
// to the database. The reconciler owns writing the cache, and an event can
// arrive after a later admin transition.
type Service struct {
	Redis       *redis.Client
	Cache       StatusCache
	ServiceName string
	Log         *slog.Logger
}

// HandlePaymentEvent dipasang sebagai handler consumer.
func (s *Service) HandlePaymentEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		s.Log.Warn("skipping undecodable event", "topic", m.Topic, "offset", m.Offset, "err", err)
		return nil // poison message, commit and move on
	}

	// 2) dedup via Redis (pakai event_id); the mark is released when handling fails
	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		first, err := redisx.MarkOnce(ctx, s.Redis, key, redisx.TTLDedup)
		if err != nil {
			return fmt.Errorf("dedup %s: %w", env.EventID, err)
		}
		if !first {
			return nil
		}
		if err := s.dispatch(ctx, env); err != nil {
			if derr := s.Redis.Del(context.WithoutCancel(ctx), key).Err(); derr != nil {
				s.Log.Warn("release dedup key failed", "event_id", env.EventID, "err", derr)
			}
			return err
		}
		return nil
	}
	return s.dispatch(ctx, env)
}

func (s *Service) dispatch(ctx context.Context, env orders.Envelope) error {
	switch env.EventType {
	case orders.EventPaymentFailed:
		p, err := kafkax.UnwrapPayload[orders.PaymentFailedPayload](env.Payload)
		if err != nil {
			return err
		}
		s.paymentFailed(p)
	case orders.EventPaymentAuthorized:
		p, err := kafkax.UnwrapPayload[orders.PaymentAuthorizedPayload](env.Payload)
		if err != nil {
			return err
		}
		if s.Cache != nil {
			if err := s.Cache.InvalidateOrderStatus(ctx, p.OrderID); err != nil {
				return fmt.Errorf("invalidate status %s: %w", p.OrderID, err)
			}
		}
		s.Log.Info("payment authorized", "order_id", p.OrderID, "reference", p.Reference, "amount", p.Amount)
	}
	return nil
}

func (s *Service) paymentFailed(p orders.PaymentFailedPayload) {
	if p.Reason == orders.ReasonAmountMismatch {
		s.Log.Error("ALERT payment amount mismatch",
			"order_id", p.OrderID,
			"reference", p.Reference,
			"provider_txn_id", p.ProviderTxnID,
			"expected", p.ExpectedAmount,
			"reported", p.ReportedAmount,
		)
		return
	}
	s.Log.Info("payment declined", "order_id", p.OrderID, "reference", p.Reference, "reason", p.Reason)
}
