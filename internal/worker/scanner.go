// Package worker runs the background jobs around the reservation
// engine, chiefly the overdue scanner that flags rentals not returned
// by their committed end date.
package worker

import (
	"context"
	"errors"
	"math"
	"time"

	"rentmarket/internal/domain"
	"rentmarket/internal/models"

	"github.com/rs/zerolog"
)

// RetryPolicy spaces out the scanner's retries of a flaky transition,
// doubling the wait each attempt until MaxDelay caps it. The zero value
// starts at one second.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay computes the wait before the given attempt. Attempts count
// from 1; anything lower is treated as the first.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// systemActor performs scanner-initiated transitions. Admin role, so the
// state machine never rejects it on ownership grounds.
var systemActor = models.Actor{ID: "system", Role: models.RoleAdmin}

// TransitionService is the slice of the reservation service the scanner
// drives.
type TransitionService interface {
	RequestTransition(ctx context.Context, id, target string, actor models.Actor) (*models.Reservation, error)
}

// OverdueStore lists reservations whose goods are still out past the
// committed end.
type OverdueStore interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]*models.Reservation, error)
}

type OverdueScanner struct {
	store       OverdueStore
	svc         TransitionService
	interval    time.Duration
	retryPolicy RetryPolicy
	logger      *zerolog.Logger
	now         func() time.Time
}

func NewOverdueScanner(store OverdueStore, svc TransitionService, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *OverdueScanner {
	if interval <= 0 {
		interval = models.DefaultScanIntervalSeconds * time.Second
	}
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 30 * time.Second
	}
	return &OverdueScanner{
		store:       store,
		svc:         svc,
		interval:    interval,
		retryPolicy: retry,
		logger:      logger,
		now:         time.Now,
	}
}

// Run scans on the configured interval until ctx is cancelled.
func (s *OverdueScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("overdue scanner started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("overdue scanner stopped")
			return
		case <-ticker.C:
			if err := s.ScanOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("overdue scan failed")
			}
		}
	}
}

// ScanOnce flags every picked-up reservation past its end date as late.
// Per-reservation failures are retried with backoff and never abort the
// rest of the batch.
func (s *OverdueScanner) ScanOnce(ctx context.Context) error {
	overdue, err := s.store.ListOverdue(ctx, s.now())
	if err != nil {
		return err
	}

	for _, res := range overdue {
		if err := s.flagLate(ctx, res.ID); err != nil {
			s.logger.Error().Err(err).
				Str("reservation_id", res.ID).
				Msg("failed to flag overdue reservation")
			continue
		}
		s.logger.Info().
			Str("reservation_id", res.ID).
			Str("product_id", res.ProductID).
			Msg("reservation flagged late")
	}
	return nil
}

func (s *OverdueScanner) flagLate(ctx context.Context, id string) error {
	var lastErr error
	for attempt := 1; attempt <= s.retryPolicy.MaxRetries; attempt++ {
		_, err := s.svc.RequestTransition(ctx, id, models.StatusLate, systemActor)
		if err == nil {
			return nil
		}
		// someone else already moved it, which is fine
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		lastErr = err
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryPolicy.NextDelay(attempt)):
		}
	}
	return lastErr
}
