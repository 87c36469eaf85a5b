package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trip struct {
	ID        string
	VesselID  string
	Route     string
	Departure time.Time
	BaseFare  decimal.Decimal
	Currency  string
}
