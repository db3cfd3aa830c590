package domain

import "github.com/shopspring/decimal"

// Driver represents a physical driver and their mutable assignment
// state. Assigned is only ever mutated inside the same transaction as
// the booking state change it corresponds to.
type Driver struct {
	TenantID      string
	DriverID      string
	Name          string
	Phone         string
	PushToken     string
	IsActive      bool
	Assigned      bool
	BookingCount  int
	TotalEarnings decimal.Decimal
}
