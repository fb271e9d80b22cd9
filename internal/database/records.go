package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentmarket/internal/domain"
	"rentmarket/internal/models"
)

func (db *DB) CreatePayment(ctx context.Context, p *models.Payment) error {
	query := `INSERT INTO payments (id, reservation_id, amount, status, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.ExecContext(ctx, query, p.ID, p.ReservationID, p.Amount, p.Status, now, now)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (db *DB) GetPaymentByReservation(ctx context.Context, reservationID string) (*models.Payment, error) {
	var p models.Payment
	query := `SELECT id, reservation_id, amount, status, created_at, updated_at
              FROM payments WHERE reservation_id = ?`
	err := db.QueryRowContext(ctx, query, reservationID).Scan(
		&p.ID, &p.ReservationID, &p.Amount, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

func (db *DB) CreatePickup(ctx context.Context, p *models.Pickup) error {
	query := `INSERT INTO pickups (id, reservation_id, scheduled_at, picked_up_at, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.ExecContext(ctx, query, p.ID, p.ReservationID, p.ScheduledAt, p.PickedUpAt, now)
	if err != nil {
		return fmt.Errorf("failed to create pickup: %w", err)
	}
	p.CreatedAt = now
	return nil
}

func (db *DB) GetPickupByReservation(ctx context.Context, reservationID string) (*models.Pickup, error) {
	var p models.Pickup
	query := `SELECT id, reservation_id, scheduled_at, picked_up_at, created_at
              FROM pickups WHERE reservation_id = ?`
	err := db.QueryRowContext(ctx, query, reservationID).Scan(
		&p.ID, &p.ReservationID, &p.ScheduledAt, &p.PickedUpAt, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pickup: %w", err)
	}
	return &p, nil
}

// UpdatePickupTime stamps the actual pickup time, only once. Returns
// false when the pickup was already stamped and the row was left alone.
func (db *DB) UpdatePickupTime(ctx context.Context, pickupID string, at time.Time) (bool, error) {
	query := `UPDATE pickups SET picked_up_at = ? WHERE id = ? AND picked_up_at IS NULL`
	result, err := db.ExecContext(ctx, query, at, pickupID)
	if err != nil {
		return false, fmt.Errorf("failed to update pickup time: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to update pickup time: %w", err)
	}
	return rows > 0, nil
}

func (db *DB) CreateReturn(ctx context.Context, r *models.Return) error {
	query := `INSERT INTO returns (id, reservation_id, returned_at, late_fee, created_at)
              VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.ExecContext(ctx, query, r.ID, r.ReservationID, r.ReturnedAt, r.LateFee, now)
	if err != nil {
		return fmt.Errorf("failed to create return: %w", err)
	}
	r.CreatedAt = now
	return nil
}

func (db *DB) GetReturnByReservation(ctx context.Context, reservationID string) (*models.Return, error) {
	var r models.Return
	query := `SELECT id, reservation_id, returned_at, late_fee, created_at
              FROM returns WHERE reservation_id = ?`
	err := db.QueryRowContext(ctx, query, reservationID).Scan(
		&r.ID, &r.ReservationID, &r.ReturnedAt, &r.LateFee, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return: %w", err)
	}
	return &r, nil
}
