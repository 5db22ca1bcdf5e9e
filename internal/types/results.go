package types

import "github.com/shopspring/decimal"

// PreflightResult is the outcome of the six gating checks run before a
// position is ever opened.
type PreflightResult struct {
	Passed bool
	Checks map[string]bool
	Errors []string

	// NeedsBridgeDeposit is set by the wallet_balance check when the
	// Hyperliquid account value is below the minimum position size, so a
	// bridge deposit must run before the short opens.
	NeedsBridgeDeposit bool
}

// AllChecksPassed reports whether every named check succeeded.
func (p PreflightResult) AllChecksPassed() bool {
	for _, ok := range p.Checks {
		if !ok {
			return false
		}
	}
	return true
}

// PositionSize is the resolved sizing for both legs of a new position.
type PositionSize struct {
	PositionSizeUSD    decimal.Decimal
	PerLegDeploymentUSD decimal.Decimal
	BorrowedUSD        decimal.Decimal
	TotalDeploymentUSD decimal.Decimal
	Leverage           decimal.Decimal
	DeploymentPct      decimal.Decimal
}

// SizingResult wraps PositionSize with the clamp flags callers need to log
// or surface to an operator.
type SizingResult struct {
	Size                PositionSize
	Ok                  bool
	Reason              string
	WasCappedByMin       bool
	WasCappedByMax       bool
	WasCappedByBalance   string
}

// FillInfo describes one leg's actual vs. expected execution price.
type FillInfo struct {
	ExpectedPrice decimal.Decimal
	ActualPrice   decimal.Decimal
	Qty           decimal.Decimal
}

// SlippageBps is the signed slippage in basis points relative to expected.
func (f FillInfo) SlippageBps() decimal.Decimal {
	if f.ExpectedPrice.IsZero() {
		return decimal.Zero
	}
	diff := f.ActualPrice.Sub(f.ExpectedPrice)
	return diff.Div(f.ExpectedPrice).Mul(decimal.NewFromInt(10000))
}

// PositionReference carries the entry prices a post-fill validation compares
// actual fills against.
type PositionReference struct {
	AsgardEntryPrice        decimal.Decimal
	HyperliquidEntryPrice   decimal.Decimal
	MaxAcceptableDeviation  decimal.Decimal
}

// ValidationAction is the remediation FillValidator recommends.
type ValidationAction string

const (
	ActionProceed  ValidationAction = "PROCEED"
	ActionSoftStop ValidationAction = "SOFT_STOP"
	ActionHardStop ValidationAction = "HARD_STOP"
)

// ValidationResult is the outcome of validating both legs' fills against
// the pre-trade expectation.
type ValidationResult struct {
	Action         ValidationAction
	MaxDeviation   decimal.Decimal
	AdjustedAPY    decimal.Decimal
	ShouldUnwind   bool
	Reason         string
}

// RebalanceResult is the outcome of a delta-rebalance attempt on an open position.
type RebalanceResult struct {
	Performed     bool
	AdjustedLeg   string
	AdjustmentUSD decimal.Decimal
	Reason        string
}
