package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type ItemInput struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type CreateInput struct {
	Reference string      `json:"reference"`
	UserID    string      `json:"user_id"`
	Items     []ItemInput `json:"items"`
}

// Service holds the order operations used by the storefront and the admin
// console. Payment-driven status changes go through payment.Reconciler.
type Service struct {
	Store Store
	Tx    TxManager
	Log   *slog.Logger
}

// Create places a PENDING order priced from the catalog. It is idempotent
// by reference: a repeated call returns the stored order with existed=true.
func (s *Service) Create(ctx context.Context, in CreateInput) (o *Order, existed bool, err error) {
	in.Reference = strings.TrimSpace(in.Reference)
	if in.Reference == "" || in.UserID == "" || len(in.Items) == 0 {
		return nil, false, fmt.Errorf("reference, user_id and items are required: %w", ErrInvalidInput)
	}
	for _, it := range in.Items {
		if it.VariantID == "" || it.Quantity <= 0 {
			return nil, false, fmt.Errorf("invalid qty for variant %q: %w", it.VariantID, ErrInvalidInput)
		}
	}

	if o, err := s.Store.GetOrderByReference(ctx, in.Reference); err == nil {
		return o, true, nil
	} else if !errors.Is(err, ErrOrderNotFound) {
		return nil, false, err
	}

	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		// hitung total dari harga variant (jangan percaya harga dari client)
		o = &Order{Reference: in.Reference, UserID: in.UserID, Status: StatusPending}
		for _, it := range in.Items {
			v, err := s.Store.GetVariant(ctx, it.VariantID)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, OrderItem{
				ProductID: v.ProductID,
				VariantID: v.ID,
				Quantity:  it.Quantity,
				UnitPrice: v.Price,
			})
			o.Total += v.Price * int64(it.Quantity)
		}
		return s.Store.CreateOrder(ctx, o)
	})
	if errors.Is(err, ErrDuplicateReference) {
		// lost a race with a concurrent create for the same reference
		o, err := s.Store.GetOrderByReference(ctx, in.Reference)
		return o, err == nil, err
	}
	if err != nil {
		return nil, false, err
	}

	s.Log.Info("order created", "order_id", o.ID, "reference", o.Reference, "total", o.Total)
	return o, false, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.Store.GetOrder(ctx, id)
}

// PaymentState returns the newest payment attempt for the order.
func (s *Service) PaymentState(ctx context.Context, orderID string) (*Order, *Transaction, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.Store.LatestTransaction(ctx, orderID)
	if errors.Is(err, ErrTransactionNotFound) {
		return o, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return o, t, nil
}

// Transition moves an order to the requested status when the lifecycle
// allows it. The check and the write happen under the order's row lock.
func (s *Service) Transition(ctx context.Context, orderID string, to Status) (o *Order, from Status, err error) {
	if !to.Valid() {
		return nil, "", fmt.Errorf("unknown status %q: %w", to, ErrInvalidInput)
	}
	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err = s.Store.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		if !CanTransition(from, to) {
			return &TransitionError{From: from, To: to}
		}
		if err := s.Store.UpdateOrderStatus(ctx, o.ID, from, to); err != nil {
			return err
		}
		o.Status = to
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	s.Log.Info("order status changed", "order_id", o.ID, "from", from, "to", to)
	return o, from, nil
}
