// Package service hosts the reservation lifecycle engine: creation,
// the status state machine, role checks and the side effects each
// transition carries.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentmarket/internal/availability"
	"rentmarket/internal/domain"
	"rentmarket/internal/events"
	"rentmarket/internal/inventory"
	"rentmarket/internal/metrics"
	"rentmarket/internal/models"
	"rentmarket/internal/pricing"
	"rentmarket/internal/records"
	"rentmarket/internal/timerange"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type ReservationService struct {
	repo     domain.Repository
	calc     *availability.Calculator
	ledger   *inventory.Ledger
	records  *records.Factory
	notifier domain.Notifier
	logger   *zerolog.Logger
	locks    *productLocks

	lateFeeMultiplier float64
	maxRentalDays     int

	now func() time.Time
}

type Options struct {
	// LateFeeMultiplier scales the average daily rate used as the
	// late-fee base for products without an explicit penalty rate.
	LateFeeMultiplier float64
	// MaxRentalDays caps the reservation window length.
	MaxRentalDays int
}

func NewReservationService(
	repo domain.Repository,
	calc *availability.Calculator,
	ledger *inventory.Ledger,
	factory *records.Factory,
	notifier domain.Notifier,
	logger *zerolog.Logger,
	opts Options,
) *ReservationService {
	if opts.LateFeeMultiplier <= 0 {
		opts.LateFeeMultiplier = models.DefaultLateFeeMultiplier
	}
	if opts.MaxRentalDays <= 0 {
		opts.MaxRentalDays = models.DefaultMaxRentalDays
	}
	return &ReservationService{
		repo:              repo,
		calc:              calc,
		ledger:            ledger,
		records:           factory,
		notifier:          notifier,
		logger:            logger,
		locks:             newProductLocks(),
		lateFeeMultiplier: opts.LateFeeMultiplier,
		maxRentalDays:     opts.MaxRentalDays,
		now:               time.Now,
	}
}

// CreateReservation validates the request, prices it and inserts a
// pending reservation. The availability check and the insert run under a
// per-product lock and a single transaction, so when several requests
// race for the last units exactly one wins.
func (s *ReservationService) CreateReservation(
	ctx context.Context,
	kind, productID, requesterID string,
	r timerange.Range,
	quantity int64,
) (*models.Reservation, error) {
	if kind != models.KindRental && kind != models.KindOrder {
		return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInput, kind)
	}
	if productID == "" || requesterID == "" {
		return nil, fmt.Errorf("%w: product and requester are required", domain.ErrInvalidInput)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidInput)
	}
	if !r.Bounded() || !r.Start.Before(r.End) {
		return nil, fmt.Errorf("%w: start must be before end", domain.ErrInvalidInput)
	}
	if r.Days() > s.maxRentalDays {
		return nil, fmt.Errorf("%w: window exceeds %d days", domain.ErrInvalidInput, s.maxRentalDays)
	}

	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Published {
		return nil, domain.ErrNotFound
	}

	now := s.now()
	res := &models.Reservation{
		ID:          uuid.NewString(),
		Kind:        kind,
		ProductID:   product.ID,
		ProductName: product.Name,
		RequesterID: requesterID,
		ProviderID:  product.OwnerID,
		Start:       r.Start,
		End:         r.End,
		Quantity:    quantity,
		TotalCost:   pricing.TotalCost(product, r.Days(), quantity),
		Status:      models.StatusPending,
		History: []models.StatusChange{
			{Status: models.StatusPending, At: now, By: requesterID},
		},
	}

	unlock := s.locks.lock(product.ID)
	defer unlock()

	if err := s.repo.CreateReservationHolding(ctx, res); err != nil {
		if errors.Is(err, domain.ErrInsufficientInventory) {
			metrics.IncConflict("insufficient_inventory")
		}
		return nil, err
	}

	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("product_id", res.ProductID).
		Str("requester_id", res.RequesterID).
		Int64("quantity", res.Quantity).
		Float64("total_cost", res.TotalCost).
		Msg("reservation created")

	s.publish(res, events.EventReservationCreated)
	return res, nil
}

// RequestTransition moves a reservation to the target status on behalf
// of actor. Checks run in a fixed order: existence, graph edge, role,
// then inventory for edges entering a committing status.
func (s *ReservationService) RequestTransition(ctx context.Context, id, target string, actor models.Actor) (*models.Reservation, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(res.ProductID)
	defer unlock()

	// Re-read under the lock: a transition that just won the same
	// critical section must be visible before the edge check, or two
	// approvals of one pending reservation could both reserve.
	res, err = s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canTransition(res.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, res.Status, target)
	}
	if !allowedActor(res, target, actor) {
		return nil, fmt.Errorf("%w: %s may not set %s", domain.ErrForbidden, actor.Role, target)
	}

	entering := !isCommitting(res.Status) && isCommitting(target)
	leaving := isCommitting(res.Status) && !isCommitting(target)

	if entering {
		// Re-check against concurrent committed claims; the reservation's
		// own holding claim is excluded from the sum.
		if err := s.checkInventory(ctx, res); err != nil {
			return nil, err
		}
		if err := s.ledger.Reserve(ctx, res.ProductID, res.Quantity); err != nil {
			return nil, fmt.Errorf("reserve inventory: %w", err)
		}
	}

	fromVersion := res.Version
	now := s.now()
	previous := res.Status
	res.Status = target
	res.History = append(res.History, models.StatusChange{Status: target, At: now, By: actor.ID})

	// Derived records are secondary to the status change itself: a
	// failure here is logged, never a reason to abort the transition.
	if err := s.applySideEffects(ctx, res, target, now); err != nil {
		s.logger.Error().Err(err).
			Str("reservation_id", res.ID).
			Str("target", target).
			Msg("derived record creation failed")
	}

	if err := s.repo.UpdateReservationWithVersion(ctx, res, fromVersion); err != nil {
		s.compensate(ctx, res, entering)
		if errors.Is(err, domain.ErrConcurrentModification) {
			metrics.IncConflict("version")
		}
		return nil, err
	}

	if leaving {
		if err := s.ledger.Release(ctx, res.ProductID, res.Quantity); err != nil {
			// The transition is already durable; a failed counter release
			// is logged rather than surfaced.
			s.logger.Error().Err(err).
				Str("reservation_id", res.ID).
				Msg("failed to release inventory after transition")
		}
	}

	metrics.IncTransition(target)
	s.logger.Info().
		Str("reservation_id", res.ID).
		Str("from", previous).
		Str("to", target).
		Str("actor_id", actor.ID).
		Str("actor_role", actor.Role).
		Msg("reservation transitioned")

	s.publish(res, events.EventStatusChanged)
	return res, nil
}

func (s *ReservationService) checkInventory(ctx context.Context, res *models.Reservation) error {
	r := timerange.New(res.Start, res.End)
	return s.calc.CanReserve(ctx, res.ProductID, r, res.Quantity, res.ID)
}

// applySideEffects creates the derived records a target status implies.
// Each builder is idempotent, so a retried transition never duplicates.
func (s *ReservationService) applySideEffects(ctx context.Context, res *models.Reservation, target string, now time.Time) error {
	if isCommitting(target) && res.PaymentID == "" {
		payment, err := s.records.EnsurePaymentDue(ctx, res.ID, res.TotalCost)
		if err != nil {
			return fmt.Errorf("payment record: %w", err)
		}
		res.PaymentID = payment.ID
	}

	switch target {
	case models.StatusConfirmed:
		pickup, err := s.records.EnsurePickup(ctx, res.ID, res.Start)
		if err != nil {
			return fmt.Errorf("pickup record: %w", err)
		}
		res.PickupID = pickup.ID

	case models.StatusPickedUp:
		pickup, err := s.records.MarkPickedUp(ctx, res.ID, now)
		if err != nil {
			return fmt.Errorf("pickup record: %w", err)
		}
		res.PickupID = pickup.ID

	case models.StatusReturned, models.StatusLate:
		fee, err := s.lateFee(ctx, res, now)
		if err != nil {
			return err
		}
		res.LateFee = fee
		ret, err := s.records.EnsureReturn(ctx, res.ID, now, fee)
		if err != nil {
			return fmt.Errorf("return record: %w", err)
		}
		res.ReturnID = ret.ID
	}

	return nil
}

func (s *ReservationService) lateFee(ctx context.Context, res *models.Reservation, returnedAt time.Time) (float64, error) {
	daysLate := timerange.DaysLate(res.End, returnedAt)
	if daysLate == 0 {
		return 0, nil
	}
	product, err := s.repo.GetProduct(ctx, res.ProductID)
	if err != nil {
		return 0, fmt.Errorf("late fee product lookup: %w", err)
	}
	rate := pricing.LateFeeRate(product, res, s.lateFeeMultiplier)
	return pricing.LateFee(res.End, returnedAt, res.Quantity, rate), nil
}

// compensate rolls back the ledger reservation taken earlier in the
// same call when the persist step failed.
func (s *ReservationService) compensate(ctx context.Context, res *models.Reservation, reserved bool) {
	if !reserved {
		return
	}
	if err := s.ledger.Release(ctx, res.ProductID, res.Quantity); err != nil {
		s.logger.Error().Err(err).
			Str("reservation_id", res.ID).
			Msg("failed to roll back inventory reservation")
	}
}

func (s *ReservationService) publish(res *models.Reservation, eventType string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishJSON(res.ID, eventType, res); err != nil {
		s.logger.Error().Err(err).
			Str("reservation_id", res.ID).
			Str("event_type", eventType).
			Msg("failed to publish reservation event")
	}
}

// ListProducts exposes the catalog for API listings.
func (s *ReservationService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.repo.ListProducts(ctx)
}

// GetReservation fetches a reservation by id.
func (s *ReservationService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

// GetTimeline returns the audit trail of status changes. Reservations
// created before history was recorded get a synthesized single entry
// from the stored timestamps.
func (s *ReservationService) GetTimeline(ctx context.Context, id string) ([]models.StatusChange, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(res.History) == 0 {
		timeline := []models.StatusChange{
			{Status: models.StatusPending, At: res.CreatedAt, By: res.RequesterID},
		}
		if res.Status != models.StatusPending {
			timeline = append(timeline, models.StatusChange{Status: res.Status, At: res.UpdatedAt})
		}
		return timeline, nil
	}
	return res.History, nil
}

// Availability reports how many units of a product remain free over the
// given range.
func (s *ReservationService) Availability(ctx context.Context, productID string, r timerange.Range) (int64, error) {
	if !r.Valid() {
		return 0, fmt.Errorf("%w: start must not be after end", domain.ErrInvalidInput)
	}
	return s.calc.Available(ctx, productID, r, "")
}

// Subscribe delivers a snapshot of the reservation's current state to h,
// then registers it for live updates. Returns the unsubscribe function.
func (s *ReservationService) Subscribe(ctx context.Context, id string, h events.Handler) (func(), error) {
	res, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshot, err := events.New(events.EventSnapshot, id, res)
	if err != nil {
		return nil, err
	}
	h(snapshot)

	return s.notifier.Subscribe(id, h), nil
}
