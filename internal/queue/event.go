// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingCreatedEvent is published when a customer submits a booking.  It
// carries enough information for downstream consumers to log, notify, or
// feed analytics without querying the primary database.
type BookingCreatedEvent struct {
	BookingID        uint64 `json:"booking_id"`
	UserID           uint64 `json:"user_id"`
	VehicleID        uint64 `json:"vehicle_id"`
	VehicleLabel     string `json:"vehicle_label"` // "<make> <model> <year>"
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	PickupLocation   string `json:"pickup_location"`
	DropoffLocation  string `json:"dropoff_location"`
	TotalAmountCents uint64 `json:"total_amount_cents"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}
