// Package validator checks both legs' actual fill prices against the
// pre-trade expectation, recommending whether to proceed, soft-stop, or
// unwind based on how much the realized APY eroded versus the quoted one.
package validator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/types"
)

var minutesPerYear = decimal.NewFromInt(525600)

// FillValidator compares actual leg fills against the quote that justified
// opening the position.
type FillValidator struct{}

// NewFillValidator constructs a stateless validator.
func NewFillValidator() *FillValidator {
	return &FillValidator{}
}

// ValidateFills checks both legs' fills against ref and recomputes the APY
// at actual fill prices. Returns SOFT_STOP if either leg's deviation
// exceeds ref.MaxAcceptableDeviation, HARD_STOP if the recalculated APY
// would be negative, else PROCEED.
func (v *FillValidator) ValidateFills(ctx context.Context, longFill, shortFill types.FillInfo, originalAPY decimal.Decimal, ref types.PositionReference) types.ValidationResult {
	longDeviation := deviation(longFill.ActualPrice, longFill.ExpectedPrice)
	shortDeviation := deviation(shortFill.ActualPrice, shortFill.ExpectedPrice)

	maxDeviation := longDeviation
	if shortDeviation.GreaterThan(maxDeviation) {
		maxDeviation = shortDeviation
	}

	adjustedAPY := v.recalculateAPYAtFills(longFill, shortFill, originalAPY)
	shouldUnwind := adjustedAPY.IsNegative()

	result := types.ValidationResult{
		MaxDeviation: maxDeviation,
		AdjustedAPY:  adjustedAPY,
		ShouldUnwind: shouldUnwind,
	}

	switch {
	case shouldUnwind:
		result.Action = types.ActionHardStop
		result.Reason = fmt.Sprintf("recalculated APY at fills is negative (%s)", adjustedAPY.StringFixed(4))
	case maxDeviation.GreaterThan(ref.MaxAcceptableDeviation):
		result.Action = types.ActionSoftStop
		result.Reason = v.softStopReason(longDeviation, shortDeviation, ref.MaxAcceptableDeviation)
	default:
		result.Action = types.ActionProceed
	}

	log.Info().
		Str("action", string(result.Action)).
		Str("max_deviation_bps", maxDeviation.Mul(decimal.NewFromInt(10000)).StringFixed(1)).
		Str("adjusted_apy", adjustedAPY.StringFixed(4)).
		Msg("fill validation complete")

	return result
}

// ValidateQuick runs a lighter check using only deviation, for callers that
// don't have an original APY to recompute against.
func (v *FillValidator) ValidateQuick(longFill, shortFill types.FillInfo, ref types.PositionReference) types.ValidationResult {
	longDeviation := deviation(longFill.ActualPrice, longFill.ExpectedPrice)
	shortDeviation := deviation(shortFill.ActualPrice, shortFill.ExpectedPrice)

	maxDeviation := longDeviation
	if shortDeviation.GreaterThan(maxDeviation) {
		maxDeviation = shortDeviation
	}

	result := types.ValidationResult{MaxDeviation: maxDeviation}
	if maxDeviation.GreaterThan(ref.MaxAcceptableDeviation) {
		result.Action = types.ActionSoftStop
		result.Reason = v.softStopReason(longDeviation, shortDeviation, ref.MaxAcceptableDeviation)
	} else {
		result.Action = types.ActionProceed
	}
	return result
}

// CreatePositionReference builds the reference fills are checked against.
func CreatePositionReference(longEntry, shortEntry, maxDeviation decimal.Decimal) types.PositionReference {
	return types.PositionReference{
		AsgardEntryPrice:       longEntry,
		HyperliquidEntryPrice:  shortEntry,
		MaxAcceptableDeviation: maxDeviation,
	}
}

func deviation(actual, expected decimal.Decimal) decimal.Decimal {
	if expected.IsZero() {
		return decimal.Zero
	}
	return actual.Sub(expected).Abs().Div(expected)
}

// recalculateAPYAtFills subtracts the negative-for-us price impact of each
// leg from the quoted APY. Only unfavorable drift counts: a long filled
// higher than expected (bad) or a short filled lower than expected (bad).
// Fills that came in better than quoted never add to the adjustment.
func (v *FillValidator) recalculateAPYAtFills(longFill, shortFill types.FillInfo, originalAPY decimal.Decimal) decimal.Decimal {
	longImpact := priceImpact(longFill, true)
	shortImpact := priceImpact(shortFill, false)
	totalImpact := longImpact.Add(shortImpact)
	return originalAPY.Sub(totalImpact)
}

// priceImpact converts a leg's unfavorable price drift into an APY
// deduction. isLong controls which direction of drift counts as bad.
func priceImpact(fill types.FillInfo, isLong bool) decimal.Decimal {
	if fill.ExpectedPrice.IsZero() {
		return decimal.Zero
	}
	diff := fill.ActualPrice.Sub(fill.ExpectedPrice).Div(fill.ExpectedPrice)
	if isLong {
		if diff.IsNegative() {
			return decimal.Zero
		}
		return diff
	}
	if diff.IsPositive() {
		return decimal.Zero
	}
	return diff.Abs()
}

func (v *FillValidator) softStopReason(longDeviation, shortDeviation, threshold decimal.Decimal) string {
	if longDeviation.GreaterThan(threshold) {
		return fmt.Sprintf("long leg deviation %s exceeds threshold %s", longDeviation.StringFixed(4), threshold.StringFixed(4))
	}
	return fmt.Sprintf("short leg deviation %s exceeds threshold %s", shortDeviation.StringFixed(4), threshold.StringFixed(4))
}

// FiveMinuteLossUSD estimates the dollar cost of unwinding now vs. waiting
// five more minutes at the given negative APY, used by the risk engine's
// exit-trigger cost comparison.
func FiveMinuteLossUSD(positionValueUSD, apy decimal.Decimal) decimal.Decimal {
	return positionValueUSD.Mul(apy.Abs()).Mul(decimal.NewFromInt(5)).Div(minutesPerYear)
}
