package models

import "time"

// Payment is a settlement record linked 1:1 to a reservation. Payment
// capture is out of scope; only the "payment is due/exists" fact lives here.
type Payment struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Pickup records the scheduled and actual pickup of reserved goods.
type Pickup struct {
	ID            string     `json:"id"`
	ReservationID string     `json:"reservation_id"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	PickedUpAt    *time.Time `json:"picked_up_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Return records the actual return of goods and the late fee charged.
type Return struct {
	ID            string    `json:"id"`
	ReservationID string    `json:"reservation_id"`
	ReturnedAt    time.Time `json:"returned_at"`
	LateFee       float64   `json:"late_fee"`
	CreatedAt     time.Time `json:"created_at"`
}
