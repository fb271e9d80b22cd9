package inventory

import (
	"context"
	"errors"
	"testing"

	"rentmarket/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeStore struct {
	deltas []int64
	err    error
}

func (f *fakeStore) AdjustAvailableUnits(ctx context.Context, productID string, delta int64) error {
	if f.err != nil {
		return f.err
	}
	f.deltas = append(f.deltas, delta)
	return nil
}

func testLedger(store Store) *Ledger {
	logger := zerolog.Nop()
	return NewLedger(store, &logger)
}

func TestReserveAndRelease(t *testing.T) {
	store := &fakeStore{}
	ledger := testLedger(store)
	ctx := context.Background()

	assert.NoError(t, ledger.Reserve(ctx, "p1", 2))
	assert.NoError(t, ledger.Release(ctx, "p1", 2))
	assert.Equal(t, []int64{-2, 2}, store.deltas)
}

func TestMissingProductIsNonFatal(t *testing.T) {
	ledger := testLedger(&fakeStore{err: domain.ErrNotFound})

	assert.NoError(t, ledger.Reserve(context.Background(), "gone", 1))
	assert.NoError(t, ledger.Release(context.Background(), "gone", 1))
}

func TestStoreErrorPropagates(t *testing.T) {
	boom := errors.New("disk on fire")
	ledger := testLedger(&fakeStore{err: boom})

	assert.ErrorIs(t, ledger.Reserve(context.Background(), "p1", 1), boom)
}
