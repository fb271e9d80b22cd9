// Package records creates the secondary entities (payment-due, pickup,
// return) that fall out of reservation transitions, exactly once each.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentmarket/internal/domain"
	"rentmarket/internal/models"

	"github.com/google/uuid"
)

type Store interface {
	GetPaymentByReservation(ctx context.Context, reservationID string) (*models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPickupByReservation(ctx context.Context, reservationID string) (*models.Pickup, error)
	CreatePickup(ctx context.Context, p *models.Pickup) error
	UpdatePickupTime(ctx context.Context, pickupID string, at time.Time) (bool, error)
	GetReturnByReservation(ctx context.Context, reservationID string) (*models.Return, error)
	CreateReturn(ctx context.Context, r *models.Return) error
}

type Factory struct {
	store Store
}

func NewFactory(store Store) *Factory {
	return &Factory{store: store}
}

// EnsurePaymentDue creates the payment-due record for a reservation if
// none exists yet. Safe to call on a retried transition: look up first,
// and if a concurrent caller won the insert race, return its record.
func (f *Factory) EnsurePaymentDue(ctx context.Context, reservationID string, amount float64) (*models.Payment, error) {
	existing, err := f.store.GetPaymentByReservation(ctx, reservationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	payment := &models.Payment{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		Amount:        amount,
		Status:        models.PaymentPending,
	}
	if err := f.store.CreatePayment(ctx, payment); err != nil {
		return f.recheckPayment(ctx, reservationID, err)
	}
	return payment, nil
}

func (f *Factory) recheckPayment(ctx context.Context, reservationID string, createErr error) (*models.Payment, error) {
	if existing, err := f.store.GetPaymentByReservation(ctx, reservationID); err == nil {
		return existing, nil
	}
	return nil, fmt.Errorf("create payment for %s: %w", reservationID, createErr)
}

// EnsurePickup creates the pickup record once per reservation.
func (f *Factory) EnsurePickup(ctx context.Context, reservationID string, scheduledAt time.Time) (*models.Pickup, error) {
	existing, err := f.store.GetPickupByReservation(ctx, reservationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	pickup := &models.Pickup{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		ScheduledAt:   scheduledAt,
	}
	if err := f.store.CreatePickup(ctx, pickup); err != nil {
		if existing, lookupErr := f.store.GetPickupByReservation(ctx, reservationID); lookupErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create pickup for %s: %w", reservationID, err)
	}
	return pickup, nil
}

// MarkPickedUp stamps the actual pickup time on an existing record,
// creating it first when confirmation was skipped.
func (f *Factory) MarkPickedUp(ctx context.Context, reservationID string, at time.Time) (*models.Pickup, error) {
	pickup, err := f.EnsurePickup(ctx, reservationID, at)
	if err != nil {
		return nil, err
	}
	if pickup.PickedUpAt == nil {
		stamped, err := f.store.UpdatePickupTime(ctx, pickup.ID, at)
		if err != nil {
			return nil, err
		}
		if !stamped {
			// a concurrent caller stamped it first, report their time
			return f.store.GetPickupByReservation(ctx, reservationID)
		}
		pickup.PickedUpAt = &at
	}
	return pickup, nil
}

// EnsureReturn creates the return record once per reservation.
func (f *Factory) EnsureReturn(ctx context.Context, reservationID string, returnedAt time.Time, lateFee float64) (*models.Return, error) {
	existing, err := f.store.GetReturnByReservation(ctx, reservationID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	ret := &models.Return{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		ReturnedAt:    returnedAt,
		LateFee:       lateFee,
	}
	if err := f.store.CreateReturn(ctx, ret); err != nil {
		if existing, lookupErr := f.store.GetReturnByReservation(ctx, reservationID); lookupErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create return for %s: %w", reservationID, err)
	}
	return ret, nil
}
