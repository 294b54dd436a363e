package model

import "time"

// Booking statuses as stored in bookings.status.  A booking is created
// PENDING by the customer flow; all later transitions are admin actions.
// CONFIRMED and ACTIVE bookings block the vehicle for their date range.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingActive    = "ACTIVE"
	BookingCompleted = "COMPLETED"
	BookingCancelled = "CANCELLED"
)

// BlocksAvailability reports whether a booking in the given status makes
// its vehicle unavailable for overlapping ranges.
func BlocksAvailability(status string) bool {
	return status == BookingConfirmed || status == BookingActive
}

// Booking records a customer's reservation of a vehicle for an inclusive
// date range.  Dates are stored as DATE columns at day granularity.
//
// Fields:
//  ID               – primary key identifier.
//  UserID           – profile that placed the booking.
//  VehicleID        – vehicle being reserved.
//  StartDate        – first rental day (inclusive).
//  EndDate          – last rental day (inclusive).
//  PickupLocation   – branch where the vehicle is collected.
//  DropoffLocation  – branch where the vehicle is returned.
//  CustomerName     – contact name captured at submission.
//  CustomerEmail    – contact email captured at submission.
//  CustomerPhone    – contact phone captured at submission.
//  SpecialRequests  – free-form notes from the customer.
//  TotalAmountCents – price computed server-side at submission time.
//  Status           – one of the Booking* constants.
//  IdempotencyKey   – unique token guarding against duplicate submission.
type Booking struct {
	ID               uint64    // bookings.id
	UserID           uint64    // bookings.user_id
	VehicleID        uint64    // bookings.vehicle_id
	StartDate        time.Time // bookings.start_date
	EndDate          time.Time // bookings.end_date
	PickupLocation   string    // bookings.pickup_location
	DropoffLocation  string    // bookings.dropoff_location
	CustomerName     string    // bookings.customer_name
	CustomerEmail    string    // bookings.customer_email
	CustomerPhone    string    // bookings.customer_phone
	SpecialRequests  string    // bookings.special_requests
	TotalAmountCents uint64    // bookings.total_amount_cents (BIGINT)
	Status           string    // bookings.status
	IdempotencyKey   string    // bookings.idempotency_key
	CreatedAt        time.Time // bookings.created_at
	UpdatedAt        time.Time // bookings.updated_at
}
