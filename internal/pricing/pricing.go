// Package pricing computes rental costs and late fees. All functions are
// pure; policy knobs come in as arguments.
package pricing

import (
	"time"

	"rentmarket/internal/models"
	"rentmarket/internal/timerange"
)

// TotalCost prices a rental of days whole days for quantity units,
// decomposing the window into monthly, weekly and daily blocks. Longer
// rates are used only when configured on the product; everything falls
// back to the daily rate otherwise.
func TotalCost(p *models.Product, days int, quantity int64) float64 {
	if days < 1 {
		days = 1
	}

	remaining := days
	var perUnit float64

	if p.MonthlyRate > 0 {
		perUnit += float64(remaining/30) * p.MonthlyRate
		remaining = remaining % 30
	}
	if p.WeeklyRate > 0 {
		perUnit += float64(remaining/7) * p.WeeklyRate
		remaining = remaining % 7
	}
	perUnit += float64(remaining) * p.DailyRate

	return perUnit * float64(quantity)
}

// LateFee charges perUnitPerDay for every started day past the committed
// end. Returns 0 when goods come back on time.
func LateFee(committedEnd, actualReturn time.Time, quantity int64, perUnitPerDay float64) float64 {
	daysLate := timerange.DaysLate(committedEnd, actualReturn)
	if daysLate == 0 {
		return 0
	}
	return float64(daysLate) * perUnitPerDay * float64(quantity)
}

// AverageDailyRate derives a per-unit daily rate from a reservation's
// total cost and its committed window. Used as the late-fee base when a
// product carries no explicit penalty rate; the 100%-of-average-rate
// default is a configurable policy choice, not a law of nature.
func AverageDailyRate(totalCost float64, r timerange.Range, quantity int64) float64 {
	if quantity < 1 {
		quantity = 1
	}
	return totalCost / float64(r.Days()) / float64(quantity)
}

// LateFeeRate picks the per-unit-per-day penalty rate for a reservation:
// the product's configured rate, or the fallback scaled average daily rate.
func LateFeeRate(p *models.Product, res *models.Reservation, fallbackMultiplier float64) float64 {
	if p != nil && p.LateFeePerDay > 0 {
		return p.LateFeePerDay
	}
	if fallbackMultiplier <= 0 {
		fallbackMultiplier = models.DefaultLateFeeMultiplier
	}
	r := timerange.New(res.Start, res.End)
	return AverageDailyRate(res.TotalCost, r, res.Quantity) * fallbackMultiplier
}
