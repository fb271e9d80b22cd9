// Package inventory owns all mutation of a product's available-unit
// counter. Nothing else writes it.
package inventory

import (
	"context"
	"errors"

	"rentmarket/internal/domain"

	"github.com/rs/zerolog"
)

// Store applies a clamped, conditional delta to the counter.
type Store interface {
	AdjustAvailableUnits(ctx context.Context, productID string, delta int64) error
}

type Ledger struct {
	store  Store
	logger *zerolog.Logger
}

func NewLedger(store Store, logger *zerolog.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// Reserve takes quantity units out of the counter when a reservation
// enters a committing status. A vanished product is logged and ignored:
// the transition itself must not fail over stale catalog state.
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int64) error {
	return l.adjust(ctx, productID, -quantity, "reserve")
}

// Release puts quantity units back when a reservation leaves a committing
// status.
func (l *Ledger) Release(ctx context.Context, productID string, quantity int64) error {
	return l.adjust(ctx, productID, quantity, "release")
}

func (l *Ledger) adjust(ctx context.Context, productID string, delta int64, op string) error {
	err := l.store.AdjustAvailableUnits(ctx, productID, delta)
	if errors.Is(err, domain.ErrNotFound) {
		l.logger.Warn().
			Str("product_id", productID).
			Int64("delta", delta).
			Str("op", op).
			Msg("ledger adjustment on missing product, skipped")
		return nil
	}
	return err
}
