package domain

import (
	"context"
	"time"

	"rentmarket/internal/events"
	"rentmarket/internal/models"
)

// Repository is the document store contract: find-by-id, filtered queries,
// conditional updates. Implemented by internal/database.
type Repository interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
	// AdjustAvailableUnits applies delta to the available-unit counter in a
	// single conditional update, clamped to [0, total_units].
	AdjustAvailableUnits(ctx context.Context, productID string, delta int64) error

	// CreateReservationHolding checks availability for the reservation's
	// range and inserts it inside one transaction.
	CreateReservationHolding(ctx context.Context, res *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	UpdateReservationWithVersion(ctx context.Context, res *models.Reservation, fromVersion int64) error
	ReservedQuantity(ctx context.Context, productID string, start, end time.Time, excludeID string) (int64, error)
	ListReservationsByProduct(ctx context.Context, productID string, start, end time.Time) ([]*models.Reservation, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Reservation, error)

	GetPaymentByReservation(ctx context.Context, reservationID string) (*models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPickupByReservation(ctx context.Context, reservationID string) (*models.Pickup, error)
	CreatePickup(ctx context.Context, p *models.Pickup) error
	UpdatePickupTime(ctx context.Context, pickupID string, at time.Time) (bool, error)
	GetReturnByReservation(ctx context.Context, reservationID string) (*models.Return, error)
	CreateReturn(ctx context.Context, r *models.Return) error
}

// Notifier fans reservation events out to live subscribers and any
// configured external sinks. Delivery is best-effort and never blocks a
// status transition.
type Notifier interface {
	PublishJSON(reservationID, eventType string, payload any) error
	Subscribe(reservationID string, h events.Handler) (unsubscribe func())
}
