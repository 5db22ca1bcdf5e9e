package types

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hoursPerDay  = decimal.NewFromInt(24)
	daysPerYear  = decimal.NewFromInt(365)
	eightHours   = decimal.NewFromInt(8)
	safetyBuffer = decimal.NewFromFloat(1.2)
)

// FundingRate is a single perp-venue funding observation for one coin.
type FundingRate struct {
	VenueCoin  string
	Rate8h     decimal.Decimal
	ObservedAt time.Time
}

// RateHourly is the 8-hour rate spread evenly across the period.
func (f FundingRate) RateHourly() decimal.Decimal {
	return f.Rate8h.Div(eightHours)
}

// RateAnnual annualizes the hourly rate (24h * 365d).
func (f FundingRate) RateAnnual() decimal.Decimal {
	return f.RateHourly().Mul(hoursPerDay).Mul(daysPerYear)
}

// IsNegative reports whether shorts are currently being paid.
func (f FundingRate) IsNegative() bool {
	return f.Rate8h.IsNegative()
}

// VenueRates is one protocol's lending/borrowing quote for a given asset,
// plus its borrow capacity ceiling.
type VenueRates struct {
	Protocol             Protocol
	LongAssetMint        string
	QuoteMint            string
	LendingAPY           decimal.Decimal
	BorrowingAPY         decimal.Decimal
	MaxBorrowCapacityUSD decimal.Decimal
}

// NetCarryAPY computes L*lending - (L-1)*borrowing for the given leverage.
func (v VenueRates) NetCarryAPY(leverage decimal.Decimal) decimal.Decimal {
	lMinus1 := leverage.Sub(decimal.NewFromInt(1))
	return leverage.Mul(v.LendingAPY).Sub(lMinus1.Mul(v.BorrowingAPY))
}

// HasCapacity reports whether the venue can support borrowing the (L-1)/L
// fraction of positionSize with a 1.2x safety buffer.
func (v VenueRates) HasCapacity(positionSizeUSD, leverage decimal.Decimal) bool {
	if leverage.IsZero() {
		return false
	}
	lMinus1 := leverage.Sub(decimal.NewFromInt(1))
	borrowFraction := lMinus1.Div(leverage)
	required := positionSizeUSD.Mul(borrowFraction).Mul(safetyBuffer)
	return v.MaxBorrowCapacityUSD.GreaterThanOrEqual(required)
}
