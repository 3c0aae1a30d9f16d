//go:build integration

package orders

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/ariefcatur/go-storefront-payments/internal/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: STOREFRONT_TEST_DSN=postgres://... go test -tags integration ./internal/orders/
func setupRepo(t *testing.T) (*Repo, *postgres.TxManager) {
	t.Helper()
	dsn := os.Getenv("STOREFRONT_TEST_DSN")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, postgres.Migrate(ctx, db, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return &Repo{DB: db}, &postgres.TxManager{DB: db}
}

func seedVariant(t *testing.T, r *Repo, price int64, units, sold int) Variant {
	t.Helper()
	ctx := context.Background()
	v := Variant{ID: uuid.NewString(), ProductID: uuid.NewString(), Name: "1 month", Price: price}
	_, err := r.DB.Exec(ctx, `INSERT INTO products(id, name) VALUES ($1, 'test product')`, v.ProductID)
	require.NoError(t, err)
	_, err = r.DB.Exec(ctx, `INSERT INTO variants(id, product_id, name, price) VALUES ($1, $2, $3, $4)`, v.ID, v.ProductID, v.Name, v.Price)
	require.NoError(t, err)
	for i := 0; i < units; i++ {
		_, err = r.DB.Exec(ctx, `INSERT INTO inventory_units(id, variant_id, sold) VALUES ($1, $2, $3)`, uuid.NewString(), v.ID, i < sold)
		require.NoError(t, err)
	}
	return v
}

func newOrder(t *testing.T, r *Repo, v Variant) *Order {
	t.Helper()
	o := &Order{
		Reference: "INV-" + uuid.NewString(),
		UserID:    "u1",
		Total:     v.Price,
		Items:     []OrderItem{{ProductID: v.ProductID, VariantID: v.ID, Quantity: 1, UnitPrice: v.Price}},
	}
	require.NoError(t, r.CreateOrder(context.Background(), o))
	return o
}

func TestRepo_CreateAndDuplicateReference(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	v := seedVariant(t, r, 100000, 0, 0)
	o := newOrder(t, r, v)

	got, err := r.GetOrderByReference(ctx, o.Reference)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	require.Len(t, got.Items, 1)

	dup := &Order{Reference: o.Reference, UserID: "u2"}
	assert.ErrorIs(t, r.CreateOrder(ctx, dup), ErrDuplicateReference)
}

func TestRepo_ConditionalStatusUpdate(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	o := newOrder(t, r, seedVariant(t, r, 100000, 0, 0))

	require.NoError(t, r.UpdateOrderStatus(ctx, o.ID, StatusPending, StatusPaid))
	assert.ErrorIs(t, r.UpdateOrderStatus(ctx, o.ID, StatusPending, StatusPaid), ErrStatusConflict)

	// concurrent writers from the same status: exactly one wins
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.UpdateOrderStatus(ctx, o.ID, StatusPaid, StatusProcessing); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestRepo_TransactionDedup(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	o := newOrder(t, r, seedVariant(t, r, 100000, 0, 0))
	txnID := uuid.NewString()

	ok, err := r.AppendTransaction(ctx, &Transaction{OrderID: o.ID, Provider: "sepay", ProviderTxnID: txnID, Amount: 90000, Status: PaymentFailed, Reason: "amount mismatch"})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.AppendTransaction(ctx, &Transaction{OrderID: o.ID, Provider: "sepay", ProviderTxnID: txnID, Amount: 100000, Status: PaymentPaid})
	require.NoError(t, err)
	assert.False(t, ok)

	// rows without a provider txn id are outside the unique index
	for i := 0; i < 2; i++ {
		ok, err = r.AppendTransaction(ctx, &Transaction{OrderID: o.ID, Provider: "sepay", Amount: 100000, Status: PaymentPending})
		require.NoError(t, err)
		assert.True(t, ok)
	}

	found, err := r.FindTransaction(ctx, "sepay", txnID)
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, found.Status)
	latest, err := r.LatestTransaction(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, latest.Status)
}

func TestRepo_LockInsideTransaction(t *testing.T) {
	ctx := context.Background()
	r, tx := setupRepo(t)
	o := newOrder(t, r, seedVariant(t, r, 100000, 0, 0))

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		locked, err := r.LockOrderByReference(ctx, o.Reference)
		if err != nil {
			return err
		}
		return r.UpdateOrderStatus(ctx, locked.ID, locked.Status, StatusCancelled)
	})
	require.NoError(t, err)

	got, err := r.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestRepo_VariantsAndUnits(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)
	v := seedVariant(t, r, 59000, 3, 1)

	n, err := r.CountAvailableUnits(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = r.GetVariant(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrVariantNotFound)
}
