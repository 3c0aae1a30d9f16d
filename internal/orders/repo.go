package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-payments/internal/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed Store. Methods join the transaction carried by
// ctx when called inside postgres.TxManager.WithTransaction.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const orderColumns = `id, reference, user_id, status, total, created_at, updated_at`

func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	q := postgres.Conn(ctx, r.DB)
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	err := q.QueryRow(ctx, `
		INSERT INTO orders(id, reference, user_id, status, total)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, o.ID, o.Reference, o.UserID, string(o.Status), o.Total).Scan(&o.CreatedAt, &o.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("reference %s: %w", o.Reference, ErrDuplicateReference)
	}
	if err != nil {
		return err
	}

	for _, it := range o.Items {
		if _, err := q.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, variant_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, it.ProductID, it.VariantID, it.Quantity, it.UnitPrice,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r *Repo) GetOrderByReference(ctx context.Context, ref string) (*Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE reference=$1`, ref)
}

func (r *Repo) LockOrder(ctx context.Context, id string) (*Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (r *Repo) LockOrderByReference(ctx context.Context, ref string) (*Order, error) {
	return r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE reference=$1 FOR UPDATE`, ref)
}

func (r *Repo) getOrder(ctx context.Context, query string, arg string) (*Order, error) {
	q := postgres.Conn(ctx, r.DB)

	var (
		o      Order
		status string
	)
	err := q.QueryRow(ctx, query, arg).Scan(&o.ID, &o.Reference, &o.UserID, &status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)

	rows, err := q.Query(ctx, `
		SELECT product_id, variant_id, quantity, unit_price
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.VariantID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *Repo) UpdateOrderStatus(ctx context.Context, id string, from, to Status) error {
	ct, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE orders SET status=$3, updated_at=now()
		WHERE id=$1 AND status=$2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("update order %s %s->%s: %w", id, from, to, ErrStatusConflict)
	}
	return nil
}

const txnColumns = `id, order_id, provider, provider_txn_id, amount, status, reason, created_at`

func (r *Repo) LatestTransaction(ctx context.Context, orderID string) (*Transaction, error) {
	return r.getTransaction(ctx, `
		SELECT `+txnColumns+` FROM transactions
		WHERE order_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, orderID)
}

func (r *Repo) FindTransaction(ctx context.Context, provider, providerTxnID string) (*Transaction, error) {
	if providerTxnID == "" {
		return nil, ErrTransactionNotFound
	}
	return r.getTransaction(ctx, `
		SELECT `+txnColumns+` FROM transactions
		WHERE provider=$1 AND provider_txn_id=$2`, provider, providerTxnID)
}

func (r *Repo) getTransaction(ctx context.Context, query string, args ...any) (*Transaction, error) {
	var (
		t      Transaction
		status string
	)
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, query, args...).
		Scan(&t.ID, &t.OrderID, &t.Provider, &t.ProviderTxnID, &t.Amount, &status, &t.Reason, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	t.Status = PaymentStatus(status)
	return &t, nil
}

func (r *Repo) AppendTransaction(ctx context.Context, t *Transaction) (bool, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		INSERT INTO transactions(id, order_id, provider, provider_txn_id, amount, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, provider_txn_id) WHERE provider_txn_id <> '' DO NOTHING
		RETURNING created_at
	`, t.ID, t.OrderID, t.Provider, t.ProviderTxnID, t.Amount, string(t.Status), t.Reason).Scan(&t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) GetVariant(ctx context.Context, id string) (*Variant, error) {
	var v Variant
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT id, product_id, name, price FROM variants WHERE id=$1`, id).
		Scan(&v.ID, &v.ProductID, &v.Name, &v.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &VariantNotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *Repo) CountAvailableUnits(ctx context.Context, variantID string) (int, error) {
	var n int
	err := postgres.Conn(ctx, r.DB).QueryRow(ctx, `
		SELECT COUNT(*) FROM inventory_units
		WHERE variant_id=$1 AND NOT sold`, variantID).Scan(&n)
	return n, err
}
