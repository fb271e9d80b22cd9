package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rentmarket/internal/domain"
	"rentmarket/internal/models"
)

// holdingStatuses are the statuses that still hold a claim on inventory
// for availability math: pending claims in flight plus everything that
// has committed and not yet released.
const holdingStatuses = `('pending', 'approved', 'confirmed', 'active', 'picked_up')`

const reservationColumns = `id, kind, product_id, product_name, requester_id, provider_id,
        start_at, end_at, quantity, total_cost, late_fee, status, history,
        payment_id, pickup_id, return_id, created_at, updated_at, version`

// CreateReservationHolding verifies availability for the reservation's
// range and inserts it inside a single transaction, so two racing
// creations cannot both pass the check.
func (db *DB) CreateReservationHolding(ctx context.Context, res *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var totalUnits int64
	err = tx.QueryRowContext(ctx, `SELECT total_units FROM products WHERE id = ?`, res.ProductID).Scan(&totalUnits)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read product in tx: %w", err)
	}

	var reserved int64
	queryReserved := `SELECT COALESCE(SUM(quantity), 0) FROM reservations
              WHERE product_id = ? AND status IN ` + holdingStatuses + `
              AND start_at < ? AND end_at > ?`
	err = tx.QueryRowContext(ctx, queryReserved, res.ProductID, res.End, res.Start).Scan(&reserved)
	if err != nil {
		return fmt.Errorf("failed to sum reserved quantity in tx: %w", err)
	}

	if reserved+res.Quantity > totalUnits {
		return domain.ErrInsufficientInventory
	}

	history, err := json.Marshal(res.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	now := time.Now()
	queryInsert := `INSERT INTO reservations (` + reservationColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, queryInsert,
		res.ID, res.Kind, res.ProductID, res.ProductName, res.RequesterID, res.ProviderID,
		res.Start, res.End, res.Quantity, res.TotalCost, res.LateFee, res.Status, string(history),
		nullable(res.PaymentID), nullable(res.PickupID), nullable(res.ReturnID), now, now, 1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	res.CreatedAt = now
	res.UpdatedAt = now
	res.Version = 1

	return tx.Commit()
}

func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return res, nil
}

// UpdateReservationWithVersion persists status, history, fees and linked
// record ids with an optimistic version check.
func (db *DB) UpdateReservationWithVersion(ctx context.Context, res *models.Reservation, fromVersion int64) error {
	history, err := json.Marshal(res.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	now := time.Now()
	query := `UPDATE reservations
              SET status = ?, history = ?, late_fee = ?, payment_id = ?, pickup_id = ?, return_id = ?,
                  version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query,
		res.Status, string(history), res.LateFee,
		nullable(res.PaymentID), nullable(res.PickupID), nullable(res.ReturnID),
		now, res.ID, fromVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrConcurrentModification
	}

	res.Version = fromVersion + 1
	res.UpdatedAt = now
	return nil
}

// ReservedQuantity sums the quantities of reservations for the product
// that hold a claim and overlap [start, end), excluding excludeID so a
// reservation does not count against itself at transition time.
func (db *DB) ReservedQuantity(ctx context.Context, productID string, start, end time.Time, excludeID string) (int64, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM reservations
              WHERE product_id = ? AND status IN ` + holdingStatuses + `
              AND start_at < ? AND end_at > ? AND id != ?`
	var reserved int64
	err := db.QueryRowContext(ctx, query, productID, end, start, excludeID).Scan(&reserved)
	if err != nil {
		return 0, fmt.Errorf("failed to sum reserved quantity: %w", err)
	}
	return reserved, nil
}

func (db *DB) ListReservationsByProduct(ctx context.Context, productID string, start, end time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE product_id = ? AND start_at < ? AND end_at > ?
              ORDER BY start_at, created_at`
	rows, err := db.QueryContext(ctx, query, productID, end, start)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListOverdue returns picked-up reservations whose committed end has
// passed, candidates for the late transition.
func (db *DB) ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE status = ? AND end_at <= ?
              ORDER BY end_at`
	rows, err := db.QueryContext(ctx, query, models.StatusPickedUp, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue reservations: %w", err)
	}
	defer rows.Close()
	return collectReservations(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var res models.Reservation
	var history string
	var paymentID, pickupID, returnID sql.NullString
	err := row.Scan(
		&res.ID, &res.Kind, &res.ProductID, &res.ProductName, &res.RequesterID, &res.ProviderID,
		&res.Start, &res.End, &res.Quantity, &res.TotalCost, &res.LateFee, &res.Status, &history,
		&paymentID, &pickupID, &returnID, &res.CreatedAt, &res.UpdatedAt, &res.Version,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(history), &res.History); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", res.ID, err)
	}
	res.PaymentID = paymentID.String
	res.PickupID = pickupID.String
	res.ReturnID = returnID.String
	return &res, nil
}

func collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
