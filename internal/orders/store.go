package orders

import "context"

// OrderStore persists orders and their items.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	GetOrderByReference(ctx context.Context, ref string) (*Order, error)
	// LockOrderByReference loads the order and holds it until the
	// surrounding transaction ends.
	LockOrderByReference(ctx context.Context, ref string) (*Order, error)
	LockOrder(ctx context.Context, id string) (*Order, error)
	// UpdateOrderStatus writes to only if the stored status is still from.
	UpdateOrderStatus(ctx context.Context, id string, from, to Status) error
}

// TransactionStore persists payment attempts.
type TransactionStore interface {
	LatestTransaction(ctx context.Context, orderID string) (*Transaction, error)
	FindTransaction(ctx context.Context, provider, providerTxnID string) (*Transaction, error)
	// AppendTransaction reports false when (provider, provider txn id) is
	// already recorded.
	AppendTransaction(ctx context.Context, t *Transaction) (bool, error)
}

// VariantStore exposes the catalog side used for pricing and stock.
type VariantStore interface {
	GetVariant(ctx context.Context, id string) (*Variant, error)
	CountAvailableUnits(ctx context.Context, variantID string) (int, error)
}

type Store interface {
	OrderStore
	TransactionStore
	VariantStore
}

// TxManager runs fn inside a single store transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
