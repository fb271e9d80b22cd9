package database

import (
	"path/filepath"
	"testing"
	"time"

	"rentmarket/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testProduct(total int64) *models.Product {
	return &models.Product{
		ID:         uuid.NewString(),
		OwnerID:    "owner-1",
		Name:       "Pressure Washer",
		TotalUnits: total,
		DailyRate:  100,
		Published:  true,
	}
}

func testReservation(productID string, qty int64, start, end time.Time, status string) *models.Reservation {
	return &models.Reservation{
		ID:          uuid.NewString(),
		Kind:        models.KindRental,
		ProductID:   productID,
		ProductName: "Pressure Washer",
		RequesterID: "renter-1",
		ProviderID:  "owner-1",
		Start:       start,
		End:         end,
		Quantity:    qty,
		TotalCost:   float64(qty) * 100,
		Status:      status,
		History: []models.StatusChange{
			{Status: status, At: time.Now(), By: "renter-1"},
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
