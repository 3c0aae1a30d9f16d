package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-storefront-payments/internal/orders"
)

type Line struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

type StockInfo struct {
	VariantID    string `json:"variantId"`
	Required     int    `json:"required"`
	Available    int    `json:"available"`
	IsSufficient bool   `json:"isSufficient"`
}

// Checker answers "is there enough stock" for a batch of lines.
//
// Lines are evaluated independently: two lines for the same variant are
// each compared with the same available count. The answer is advisory;
// allocation has to re-check when it commits.
type Checker struct {
	Variants orders.VariantStore
	Log      *slog.Logger
}

// Check fails the whole batch when any variant is unknown; no partial
// result is returned.
func (c *Checker) Check(ctx context.Context, lines []Line) ([]StockInfo, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no items: %w", orders.ErrInvalidInput)
	}
	for _, l := range lines {
		if l.VariantID == "" || l.Quantity <= 0 {
			return nil, fmt.Errorf("invalid qty for variant %q: %w", l.VariantID, orders.ErrInvalidInput)
		}
	}

	out := make([]StockInfo, 0, len(lines))
	for _, l := range lines {
		v, err := c.Variants.GetVariant(ctx, l.VariantID)
		if err != nil {
			return nil, err
		}
		available, err := c.Variants.CountAvailableUnits(ctx, v.ID)
		if err != nil {
			return nil, fmt.Errorf("count units for %s: %w", v.ID, err)
		}
		out = append(out, StockInfo{
			VariantID:    v.ID,
			Required:     l.Quantity,
			Available:    available,
			IsSufficient: available >= l.Quantity,
		})
	}

	c.Log.Debug("stock checked", "lines", len(lines))
	return out, nil
}
