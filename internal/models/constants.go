package models

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusConfirmed = "confirmed"
	StatusActive    = "active"
	StatusPickedUp  = "picked_up"
	StatusReturned  = "returned"
	StatusLate      = "late"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

const (
	KindRental = "rental"
	KindOrder  = "order"
)

const (
	RoleRenter   = "renter"
	RoleProvider = "provider"
	RoleAdmin    = "admin"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

const (
	// DefaultScanIntervalSeconds interval between overdue scans
	DefaultScanIntervalSeconds = 300

	// DefaultMaxRentalDays upper bound for a reservation window
	DefaultMaxRentalDays = 365

	// DefaultLateFeeMultiplier share of the average daily rate charged
	// per late day when a product has no explicit penalty rate
	DefaultLateFeeMultiplier = 1.0

	// EventBufferSize per-subscriber delivery buffer for streaming
	EventBufferSize = 16
)
