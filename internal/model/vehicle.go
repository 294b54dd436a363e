package model

import "time"

// Vehicle categories as stored in vehicles.category.
const (
	CategoryEconomic = "ECONOMIC"
	CategoryLuxury   = "LUXURY"
	CategorySUV      = "SUV"
	CategoryUtility  = "UTILITY"
)

// Vehicle rental statuses as stored in vehicles.status.  Only AVAILABLE
// vehicles are candidates for the availability search.
const (
	VehicleAvailable   = "AVAILABLE"
	VehicleRented      = "RENTED"
	VehicleMaintenance = "MAINTENANCE"
	VehicleRetired     = "RETIRED"
)

// VehicleSpecs is the decoded form of the vehicles.specs JSON column.
// Fields are pointers so an absent spec can be told apart from a zero
// value; an active search filter does not match a vehicle missing the
// corresponding field.
type VehicleSpecs struct {
	Seats        *int    `json:"seats,omitempty"`
	Transmission *string `json:"transmission,omitempty"` // MANUAL | AUTOMATIC
	FuelType     *string `json:"fuel_type,omitempty"`    // PETROL | DIESEL | HYBRID | ELECTRIC
}

// Vehicle mirrors the `vehicles` table.  Catalog entries are created and
// edited by admin flows and read-only to the pricing engine.
//
// Fields:
//  ID                 – primary key identifier.
//  Make, Model, Year  – manufacturer identity.
//  Category           – one of the Category* constants.
//  DailyRateCents     – rental price per day in cents.
//  WeeklyDiscountPct  – percentage off for rentals of 7+ days (nil = none).
//  MonthlyDiscountPct – percentage off for rentals of 30+ days (nil = none).
//  Features           – free-form feature labels (JSON array column).
//  Specs              – structured specifications (JSON object column).
//  Status             – one of the Vehicle* status constants.
//  Location           – branch where the vehicle is stationed.
type Vehicle struct {
	ID                 uint64       // vehicles.id
	Make               string       // vehicles.make
	Model              string       // vehicles.model
	Year               int          // vehicles.year
	Category           string       // vehicles.category
	DailyRateCents     uint32       // vehicles.daily_rate_cents
	WeeklyDiscountPct  *uint8       // vehicles.weekly_discount_pct (nullable)
	MonthlyDiscountPct *uint8       // vehicles.monthly_discount_pct (nullable)
	Features           []string     // vehicles.features (JSON)
	Specs              VehicleSpecs // vehicles.specs (JSON)
	Status             string       // vehicles.status
	Location           string       // vehicles.location
	CreatedAt          time.Time    // vehicles.created_at
	UpdatedAt          time.Time    // vehicles.updated_at
}
