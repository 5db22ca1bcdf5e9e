package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// RiskLevel is the severity a single health check reports.
type RiskLevel string

const (
	RiskNormal   RiskLevel = "NORMAL"
	RiskWarning  RiskLevel = "WARNING"
	RiskCritical RiskLevel = "CRITICAL"
)

// ExitReason enumerates every trigger evaluate_exit_trigger can report, in
// the priority order the risk engine walks them.
type ExitReason string

const (
	ExitChainOutage     ExitReason = "CHAIN_OUTAGE"
	ExitHealthFactor    ExitReason = "HEALTH_FACTOR"
	ExitMarginFraction  ExitReason = "MARGIN_FRACTION"
	ExitLSTDepeg        ExitReason = "LST_DEPEG"
	ExitPriceDeviation  ExitReason = "PRICE_DEVIATION"
	ExitNegativeAPY     ExitReason = "NEGATIVE_APY"
	ExitFundingFlip     ExitReason = "FUNDING_FLIP"
	ExitStopLoss           ExitReason = "STOP_LOSS"
	ExitTargetProfit       ExitReason = "TARGET_PROFIT"
	ExitInsufficientCarry  ExitReason = "INSUFFICIENT_CARRY"
	ExitManual             ExitReason = "MANUAL"
)

// HealthCheckResult is the Asgard long-leg liquidation-risk snapshot.
type HealthCheckResult struct {
	Level               RiskLevel
	HealthFactor        decimal.Decimal
	ProximityThreshold  decimal.Decimal
	InProximitySince    *time.Time
}

// InProximity reports whether the health factor sits within the debounce
// band above MIN_HEALTH_FACTOR.
func (h HealthCheckResult) InProximity() bool {
	return h.HealthFactor.LessThanOrEqual(h.ProximityThreshold)
}

// ShouldClose reports whether this check alone demands an emergency exit.
func (h HealthCheckResult) ShouldClose() bool {
	return h.Level == RiskCritical
}

// MarginCheckResult is the Hyperliquid short-leg liquidation-risk snapshot.
type MarginCheckResult struct {
	Level              RiskLevel
	MarginFraction     decimal.Decimal
	Threshold          decimal.Decimal
	ProximityThreshold decimal.Decimal
	InProximitySince   *time.Time
}

// InProximity reports whether the margin fraction sits within the debounce
// band above the margin-fraction threshold.
func (m MarginCheckResult) InProximity() bool {
	return m.MarginFraction.LessThanOrEqual(m.ProximityThreshold)
}

// ShouldClose reports whether this check alone demands an emergency exit.
func (m MarginCheckResult) ShouldClose() bool {
	return m.Level == RiskCritical
}

// ExitDecision is the outcome of RiskEngine.EvaluateExitTrigger for one position.
type ExitDecision struct {
	ShouldExit bool
	Reason     ExitReason
	Level      RiskLevel
	Detail     string
	DecidedAt  time.Time
}

// RiskSummary is a point-in-time snapshot suitable for logging/monitoring.
type RiskSummary struct {
	PositionID      string
	AsgardHealth    HealthCheckResult
	HyperliquidMargin MarginCheckResult
	Delta           DeltaInfo
	WorstLevel      RiskLevel
}
