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

func (db *DB) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.AvailableUnits == 0 {
		p.AvailableUnits = p.TotalUnits
	}
	query := `INSERT INTO products (id, owner_id, name, description, total_units, available_units,
                daily_rate, weekly_rate, monthly_rate, late_fee_per_day, published, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		p.ID,
		p.OwnerID,
		p.Name,
		p.Description,
		p.TotalUnits,
		p.AvailableUnits,
		p.DailyRate,
		p.WeeklyRate,
		p.MonthlyRate,
		p.LateFeePerDay,
		p.Published,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// UpsertProduct seeds a catalog entry, preserving the live available-unit
// counter on conflict so restarts do not reset inventory bookkeeping.
func (db *DB) UpsertProduct(ctx context.Context, p *models.Product) error {
	query := `INSERT INTO products (id, owner_id, name, description, total_units, available_units,
                daily_rate, weekly_rate, monthly_rate, late_fee_per_day, published, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                owner_id = excluded.owner_id,
                name = excluded.name,
                description = excluded.description,
                total_units = excluded.total_units,
                available_units = MIN(products.available_units, excluded.total_units),
                daily_rate = excluded.daily_rate,
                weekly_rate = excluded.weekly_rate,
                monthly_rate = excluded.monthly_rate,
                late_fee_per_day = excluded.late_fee_per_day,
                published = excluded.published,
                updated_at = excluded.updated_at`
	now := time.Now()
	available := p.AvailableUnits
	if available == 0 {
		available = p.TotalUnits
	}
	_, err := db.ExecContext(ctx, query,
		p.ID, p.OwnerID, p.Name, p.Description, p.TotalUnits, available,
		p.DailyRate, p.WeeklyRate, p.MonthlyRate, p.LateFeePerDay, p.Published, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (db *DB) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	query := `SELECT id, owner_id, name, description, total_units, available_units,
                     daily_rate, weekly_rate, monthly_rate, late_fee_per_day, published,
                     created_at, updated_at
              FROM products WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.TotalUnits, &p.AvailableUnits,
		&p.DailyRate, &p.WeeklyRate, &p.MonthlyRate, &p.LateFeePerDay, &p.Published,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (db *DB) ListProducts(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT id, owner_id, name, description, total_units, available_units,
                     daily_rate, weekly_rate, monthly_rate, late_fee_per_day, published,
                     created_at, updated_at
              FROM products ORDER BY name, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.TotalUnits, &p.AvailableUnits,
			&p.DailyRate, &p.WeeklyRate, &p.MonthlyRate, &p.LateFeePerDay, &p.Published,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// AdjustAvailableUnits applies delta to the counter in one conditional
// update, clamped to [0, total_units]. The clamping lives in the statement
// so there is no read-then-write window.
func (db *DB) AdjustAvailableUnits(ctx context.Context, productID string, delta int64) error {
	query := `UPDATE products
              SET available_units = MIN(MAX(available_units + ?, 0), total_units), updated_at = ?
              WHERE id = ?`
	result, err := db.ExecContext(ctx, query, delta, time.Now(), productID)
	if err != nil {
		return fmt.Errorf("failed to adjust available units: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
