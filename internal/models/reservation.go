package models

import "time"

// StatusChange is one entry in a reservation's status history.
type StatusChange struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	By     string    `json:"by"`
}

// Reservation is a renter's claim on a quantity of a product for a
// half-open date range [Start, End). Rental-style and order-style
// reservations share the schema and are told apart by Kind.
type Reservation struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name"`
	RequesterID string         `json:"requester_id"`
	ProviderID  string         `json:"provider_id"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	Quantity    int64          `json:"quantity"`
	TotalCost   float64        `json:"total_cost"`
	LateFee     float64        `json:"late_fee"`
	Status      string         `json:"status"`
	History     []StatusChange `json:"history"`
	PaymentID   string         `json:"payment_id,omitempty"`
	PickupID    string         `json:"pickup_id,omitempty"`
	ReturnID    string         `json:"return_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Version     int64          `json:"version"`
}

// TotalDue is the financial summary: base cost plus any late fee.
func (r *Reservation) TotalDue() float64 {
	return r.TotalCost + r.LateFee
}

type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
