// Package consensus compares the long-venue and short-venue prices for the
// same asset before a trade executes, flagging any deviation large enough
// to indicate a stale feed or a bad fill risk.
package consensus

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/venue"
)

var two = decimal.NewFromInt(2)
var bpsConversion = decimal.NewFromInt(10000)

// Result is the outcome of one consensus check between both venues.
type Result struct {
	LongPrice         decimal.Decimal
	ShortPrice        decimal.Decimal
	Deviation         decimal.Decimal
	IsWithinThreshold bool
	Threshold         decimal.Decimal
	Asset             types.Asset
}

// ConsensusPrice is the simple average of both venue prices.
func (r Result) ConsensusPrice() decimal.Decimal {
	return r.LongPrice.Add(r.ShortPrice).Div(two)
}

// Divergence reports which venue is quoting the higher price.
func (r Result) Divergence() string {
	if r.LongPrice.GreaterThan(r.ShortPrice) {
		return "long_higher"
	}
	if r.ShortPrice.GreaterThan(r.LongPrice) {
		return "short_higher"
	}
	return "equal"
}

// Checker compares long-venue and short-venue prices for the same asset.
type Checker struct {
	long         venue.LongVenue
	perp         venue.PerpVenue
	maxDeviation decimal.Decimal
}

// NewChecker builds a checker with the given maximum acceptable deviation
// (0.005 = 0.5% in the original system).
func NewChecker(long venue.LongVenue, perp venue.PerpVenue, maxDeviation decimal.Decimal) *Checker {
	return &Checker{long: long, perp: perp, maxDeviation: maxDeviation}
}

// Check fetches both venues' prices for asset/coin and computes the
// deviation |p1 - p2| / avg(p1, p2).
func (c *Checker) Check(ctx context.Context, asset types.Asset, coin string) (Result, error) {
	longPrice, err := c.long.CurrentPrice(ctx, asset)
	if err != nil {
		return Result{}, err
	}
	shortPrice, err := c.perp.MarkPrice(ctx, coin)
	if err != nil {
		return Result{}, err
	}

	deviation := calculateDeviation(longPrice, shortPrice)
	result := Result{
		LongPrice:         longPrice,
		ShortPrice:        shortPrice,
		Deviation:         deviation,
		IsWithinThreshold: deviation.LessThanOrEqual(c.maxDeviation),
		Threshold:         c.maxDeviation,
		Asset:             asset,
	}

	if result.IsWithinThreshold {
		log.Debug().
			Str("asset", string(asset)).
			Str("deviation_bps", deviation.Mul(bpsConversion).StringFixed(1)).
			Msg("price consensus OK")
	} else {
		log.Warn().
			Str("asset", string(asset)).
			Str("divergence", result.Divergence()).
			Str("deviation_bps", deviation.Mul(bpsConversion).StringFixed(1)).
			Str("threshold_bps", c.maxDeviation.Mul(bpsConversion).StringFixed(1)).
			Msg("⚠️ price deviation detected")
	}

	return result, nil
}

func calculateDeviation(p1, p2 decimal.Decimal) decimal.Decimal {
	if p1.IsZero() && p2.IsZero() {
		return decimal.Zero
	}
	if p1.IsZero() || p2.IsZero() {
		return decimal.NewFromInt(1)
	}
	diff := p1.Sub(p2).Abs()
	avg := p1.Add(p2).Div(two)
	return diff.Div(avg)
}

// SlippageAdjustedPrices returns worst-case long/short execution prices
// given a flat slippage assumption in basis points.
func SlippageAdjustedPrices(result Result, slippageBps decimal.Decimal) (worstLong, worstShort decimal.Decimal) {
	slippagePct := slippageBps.Div(bpsConversion)
	worstLong = result.LongPrice.Mul(decimal.NewFromInt(1).Add(slippagePct))
	worstShort = result.ShortPrice.Mul(decimal.NewFromInt(1).Sub(slippagePct))
	return worstLong, worstShort
}
