// Package availability answers "how many units are already spoken for"
// questions over existing reservations.
package availability

import (
	"context"
	"time"

	"rentmarket/internal/domain"
	"rentmarket/internal/models"
	"rentmarket/internal/timerange"
)

// Store is the read-only slice of the repository the calculator needs.
type Store interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ReservedQuantity(ctx context.Context, productID string, start, end time.Time, excludeID string) (int64, error)
}

type Calculator struct {
	store Store
}

func NewCalculator(store Store) *Calculator {
	return &Calculator{store: store}
}

// ReservedQuantity sums quantities of reservations holding a claim on the
// product whose range overlaps r. An unbounded range enforces no
// constraint and reports 0.
func (c *Calculator) ReservedQuantity(ctx context.Context, productID string, r timerange.Range, excludeID string) (int64, error) {
	if !r.Bounded() {
		return 0, nil
	}
	return c.store.ReservedQuantity(ctx, productID, r.Start, r.End, excludeID)
}

// Available returns how many units remain free for r, excluding the given
// reservation from the count.
func (c *Calculator) Available(ctx context.Context, productID string, r timerange.Range, excludeID string) (int64, error) {
	product, err := c.store.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	reserved, err := c.ReservedQuantity(ctx, productID, r, excludeID)
	if err != nil {
		return 0, err
	}
	available := product.TotalUnits - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}

// CanReserve re-verifies that quantity units fit into r. Run both at
// creation and again at commit time: concurrent requests can race between
// the check and the commit.
func (c *Calculator) CanReserve(ctx context.Context, productID string, r timerange.Range, quantity int64, excludeID string) error {
	available, err := c.Available(ctx, productID, r, excludeID)
	if err != nil {
		return err
	}
	if quantity > available {
		return domain.ErrInsufficientInventory
	}
	return nil
}
