package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_OrderLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	o := Order{Reference: "INV-1", UserID: "u1", Total: 100000, Items: []OrderItem{{VariantID: "v1", Quantity: 1, UnitPrice: 100000}}}
	require.NoError(t, m.CreateOrder(ctx, &o))
	require.NotEmpty(t, o.ID)
	assert.Equal(t, StatusPending, o.Status)

	got, err := m.GetOrderByReference(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	require.Len(t, got.Items, 1)

	dup := Order{Reference: "INV-1", UserID: "u2"}
	assert.ErrorIs(t, m.CreateOrder(ctx, &dup), ErrDuplicateReference)

	require.NoError(t, m.UpdateOrderStatus(ctx, o.ID, StatusPending, StatusPaid))
	err = m.UpdateOrderStatus(ctx, o.ID, StatusPending, StatusPaid)
	assert.ErrorIs(t, err, ErrStatusConflict)

	_, err = m.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryStore_Transactions(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	o := Order{Reference: "INV-2", UserID: "u1", Total: 5}
	require.NoError(t, m.CreateOrder(ctx, &o))

	_, err := m.LatestTransaction(ctx, o.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	first := Transaction{OrderID: o.ID, Provider: "sepay", ProviderTxnID: "T1", Amount: 5, Status: PaymentFailed}
	ok, err := m.AppendTransaction(ctx, &first)
	require.NoError(t, err)
	assert.True(t, ok)

	again := Transaction{OrderID: o.ID, Provider: "sepay", ProviderTxnID: "T1", Amount: 5, Status: PaymentPaid}
	ok, err = m.AppendTransaction(ctx, &again)
	require.NoError(t, err)
	assert.False(t, ok, "same provider txn id must not be stored twice")

	second := Transaction{OrderID: o.ID, Provider: "sepay", ProviderTxnID: "T2", Amount: 5, Status: PaymentPaid}
	_, err = m.AppendTransaction(ctx, &second)
	require.NoError(t, err)

	latest, err := m.LatestTransaction(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "T2", latest.ProviderTxnID)

	found, err := m.FindTransaction(ctx, "sepay", "T1")
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, found.Status)

	_, err = m.FindTransaction(ctx, "sepay", "")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.Len(t, m.Transactions(o.ID), 2)
}

func TestMemoryStore_Variants(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.AddVariant(Variant{ID: "v1", ProductID: "p1", Name: "1 month", Price: 50000}, 3)

	n, err := m.CountAvailableUnits(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = m.GetVariant(ctx, "nope")
	var vnf *VariantNotFoundError
	require.True(t, errors.As(err, &vnf))
	assert.Equal(t, "nope", vnf.ID)
	assert.ErrorIs(t, err, ErrVariantNotFound)
}

func TestMemoryStore_WithTransactionNests(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	err := m.WithTransaction(ctx, func(ctx context.Context) error {
		o := Order{Reference: "INV-3", UserID: "u"}
		if err := m.CreateOrder(ctx, &o); err != nil {
			return err
		}
		return m.WithTransaction(ctx, func(ctx context.Context) error {
			_, err := m.LockOrderByReference(ctx, "INV-3")
			return err
		})
	})
	require.NoError(t, err)
}
