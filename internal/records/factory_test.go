package records

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rentmarket/internal/database"
	"rentmarket/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFactory(t *testing.T) *Factory {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFactory(db)
}

func TestEnsurePickupIdempotent(t *testing.T) {
	f := setupFactory(t)
	ctx := context.Background()
	scheduled := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := f.EnsurePickup(ctx, "res-1", scheduled)
	require.NoError(t, err)

	second, err := f.EnsurePickup(ctx, "res-1", scheduled.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "second call returns the existing record")
}

func TestEnsurePaymentDueIdempotent(t *testing.T) {
	f := setupFactory(t)
	ctx := context.Background()

	first, err := f.EnsurePaymentDue(ctx, "res-1", 400)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, first.Status)

	second, err := f.EnsurePaymentDue(ctx, "res-1", 999)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 400.0, second.Amount, "amount is fixed at first creation")
}

func TestEnsureReturnIdempotent(t *testing.T) {
	f := setupFactory(t)
	ctx := context.Background()
	returnedAt := time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC)

	first, err := f.EnsureReturn(ctx, "res-1", returnedAt, 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, first.LateFee)

	second, err := f.EnsureReturn(ctx, "res-1", returnedAt.AddDate(0, 0, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 500.0, second.LateFee)
}

// stalePickupStore hands out one stale pickup read, as if another
// caller stamped the row between our read and our update.
type stalePickupStore struct {
	Store
	stale bool
}

func (s *stalePickupStore) GetPickupByReservation(ctx context.Context, reservationID string) (*models.Pickup, error) {
	p, err := s.Store.GetPickupByReservation(ctx, reservationID)
	if err == nil && s.stale {
		s.stale = false
		clone := *p
		clone.PickedUpAt = nil
		return &clone, nil
	}
	return p, err
}

func TestMarkPickedUpLostRaceKeepsFirstTimestamp(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = NewFactory(db).MarkPickedUp(ctx, "res-1", first)
	require.NoError(t, err)

	// This factory reads the row as still unstamped, so its update
	// matches no rows. It must report the winner's time, not its own.
	f := NewFactory(&stalePickupStore{Store: db, stale: true})
	got, err := f.MarkPickedUp(ctx, "res-1", first.Add(3*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, got.PickedUpAt)
	assert.Equal(t, first, got.PickedUpAt.UTC())
}

func TestMarkPickedUp(t *testing.T) {
	f := setupFactory(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	pickup, err := f.MarkPickedUp(ctx, "res-1", at)
	require.NoError(t, err)
	require.NotNil(t, pickup.PickedUpAt)
	assert.Equal(t, at, pickup.PickedUpAt.UTC())

	// A second mark keeps the original timestamp.
	again, err := f.MarkPickedUp(ctx, "res-1", at.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, again.PickedUpAt)
	assert.Equal(t, at, again.PickedUpAt.UTC())
}
