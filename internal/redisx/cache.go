package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-payments/internal/orders"
	"github.com/redis/go-redis/v9"
)

type cachedStatus struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
}

// StatusCache keeps a short-lived copy of each order's status so status
// polling does not hit Postgres. The database stays the source of truth.
type StatusCache struct {
	RDB *redis.Client
}

func (c *StatusCache) SetOrderStatus(ctx context.Context, orderID string, status orders.Status) error {
	b, err := json.Marshal(cachedStatus{OrderID: orderID, Status: status})
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

// InvalidateOrderStatus drops the cached status; the next read falls back
// to the database.
func (c *StatusCache) InvalidateOrderStatus(ctx context.Context, orderID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

// OrderStatus returns ok=false on a cache miss.
func (c *StatusCache) OrderStatus(ctx context.Context, orderID string) (orders.Status, bool, error) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var cs cachedStatus
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return "", false, err
	}
	return cs.Status, true, nil
}

// RememberOrder stores reference -> order id for the create-order fast path.
func (c *StatusCache) RememberOrder(ctx context.Context, reference, orderID string) error {
	return c.RDB.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, reference), orderID, TTLIdempotency).Err()
}

// KnownOrder returns the order id recorded for reference, if any.
func (c *StatusCache) KnownOrder(ctx context.Context, reference string) (string, bool, error) {
	id, err := c.RDB.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, reference)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
