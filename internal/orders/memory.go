package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for local runs and tests.
// WithTransaction holds the write lock for the whole callback, which gives
// the same serialisation as row locks on a single order.
type MemoryStore struct {
	mu           sync.RWMutex
	orders       map[string]Order
	byReference  map[string]string
	transactions []Transaction
	variants     map[string]Variant
	units        map[string]int // variant id -> unsold units
	now          func() time.Time
}

var (
	_ Store     = (*MemoryStore)(nil)
	_ TxManager = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:      make(map[string]Order),
		byReference: make(map[string]string),
		variants:    make(map[string]Variant),
		units:       make(map[string]int),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// transaction-aware locking helpers
type memTxKey struct{}

func inMemTx(ctx context.Context) bool {
	b, _ := ctx.Value(memTxKey{}).(bool)
	return b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !inMemTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !inMemTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !inMemTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !inMemTx(ctx) {
		m.mu.Unlock()
	}
}

// WithTransaction has no rollback; callers write only after every check passed.
func (m *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if inMemTx(ctx) {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}

// AddVariant registers a variant with the given number of unsold units.
func (m *MemoryStore) AddVariant(v Variant, available int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[v.ID] = v
	m.units[v.ID] = available
}

func (m *MemoryStore) CreateOrder(ctx context.Context, o *Order) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.byReference[o.Reference]; ok {
		return fmt.Errorf("reference %s: %w", o.Reference, ErrDuplicateReference)
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	o.CreatedAt = m.now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	m.orders[o.ID] = cp
	m.byReference[o.Reference] = o.ID
	return nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	return m.order(id)
}

func (m *MemoryStore) LockOrder(ctx context.Context, id string) (*Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *MemoryStore) GetOrderByReference(ctx context.Context, ref string) (*Order, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	id, ok := m.byReference[ref]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return m.order(id)
}

func (m *MemoryStore) LockOrderByReference(ctx context.Context, ref string) (*Order, error) {
	return m.GetOrderByReference(ctx, ref)
}

func (m *MemoryStore) order(id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	// return copy
	cp := o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, from, to Status) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != from {
		return fmt.Errorf("update order %s %s->%s: %w", id, from, to, ErrStatusConflict)
	}
	o.Status = to
	o.UpdatedAt = m.now()
	m.orders[id] = o
	return nil
}

func (m *MemoryStore) LatestTransaction(ctx context.Context, orderID string) (*Transaction, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	// appended in creation order, so the last match is the newest
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].OrderID == orderID {
			t := m.transactions[i]
			return &t, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *MemoryStore) FindTransaction(ctx context.Context, provider, providerTxnID string) (*Transaction, error) {
	if providerTxnID == "" {
		return nil, ErrTransactionNotFound
	}
	m.rlock(ctx)
	defer m.runlock(ctx)
	for _, t := range m.transactions {
		if t.Provider == provider && t.ProviderTxnID == providerTxnID {
			cp := t
			return &cp, nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (m *MemoryStore) AppendTransaction(ctx context.Context, t *Transaction) (bool, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if t.ProviderTxnID != "" {
		for _, x := range m.transactions {
			if x.Provider == t.Provider && x.ProviderTxnID == t.ProviderTxnID {
				return false, nil
			}
		}
	}
	if _, ok := m.orders[t.OrderID]; !ok {
		return false, ErrOrderNotFound
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = m.now()
	m.transactions = append(m.transactions, *t)
	return true, nil
}

// Transactions returns every recorded attempt for orderID, oldest first.
func (m *MemoryStore) Transactions(orderID string) []Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Transaction
	for _, t := range m.transactions {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out
}

func (m *MemoryStore) GetVariant(ctx context.Context, id string) (*Variant, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	v, ok := m.variants[id]
	if !ok {
		return nil, &VariantNotFoundError{ID: id}
	}
	return &v, nil
}

func (m *MemoryStore) CountAvailableUnits(ctx context.Context, variantID string) (int, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	return m.units[variantID], nil
}
