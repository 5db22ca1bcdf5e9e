package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpportunityScore breaks a candidate's expected APY down by contribution so
// downstream logs and the sizing stage can see why an asset ranked where it did.
type OpportunityScore struct {
	LendingAPY       decimal.Decimal
	StakingAPY       decimal.Decimal
	BorrowingCostAPY decimal.Decimal
	FundingAPY       decimal.Decimal
	TotalExpectedAPY decimal.Decimal
}

// Opportunity is one scan result: an asset/protocol pairing on the long leg
// matched against the predicted funding on the short leg.
type Opportunity struct {
	ID                  uuid.UUID
	Asset               Asset
	Protocol            Protocol
	PerpCoin            string
	CurrentFundingRate  decimal.Decimal
	PredictedFundingAPY decimal.Decimal
	FundingVolatility8h decimal.Decimal
	Leverage            decimal.Decimal
	Score               OpportunityScore
	DetectedAt          time.Time
}

// TransactionState tracks a single on-chain action through its lifecycle.
// Transitions are append-only and one-directional except for the terminal
// FAILED state, which any non-terminal state may transition to.
type TransactionState string

const (
	TxIdle       TransactionState = "IDLE"
	TxBuilding   TransactionState = "BUILDING"
	TxBuilt      TransactionState = "BUILT"
	TxSigning    TransactionState = "SIGNING"
	TxSigned     TransactionState = "SIGNED"
	TxSubmitting TransactionState = "SUBMITTING"
	TxSubmitted  TransactionState = "SUBMITTED"
	TxConfirmed  TransactionState = "CONFIRMED"
	TxFailed     TransactionState = "FAILED"
)

// TransactionEvent is one entry in a leg's append-only state_history.
type TransactionEvent struct {
	State  TransactionState
	At     time.Time
	TxHash string
	Detail string
}

// LongLeg is the Asgard margin-lending side of a combined position.
type LongLeg struct {
	Protocol        Protocol
	Asset           Asset
	EntryPrice      decimal.Decimal
	CollateralQty   decimal.Decimal
	BorrowedUSD     decimal.Decimal
	PositionSizeUSD decimal.Decimal
	HealthFactor    decimal.Decimal
	PDAKey          string
	State           TransactionState
	StateHistory    []TransactionEvent
}

// ShortLeg is the Hyperliquid perp side of a combined position.
type ShortLeg struct {
	Coin            string
	EntryPrice      decimal.Decimal
	Qty             decimal.Decimal
	PositionSizeUSD decimal.Decimal
	MarginFraction  decimal.Decimal
	PositionKey     string
	State           TransactionState
	StateHistory    []TransactionEvent
}

// PositionStatus is the combined position's lifecycle state, independent of
// either leg's own transaction state machine.
type PositionStatus string

const (
	StatusOpen    PositionStatus = "open"
	StatusClosing PositionStatus = "closing"
	StatusClosed  PositionStatus = "closed"
	StatusStuck   PositionStatus = "stuck"
)

// CombinedPosition is the full delta-neutral position: one long leg on the
// margin-lending venue matched against one short leg on the perp venue.
type CombinedPosition struct {
	ID       uuid.UUID
	UserID   string
	Asset    Asset
	Leverage decimal.Decimal
	Long     LongLeg
	Short    ShortLeg

	// Reference carries the entry-time prices both legs were snapshotted
	// against via PriceConsensus, and the max acceptable fill deviation.
	Reference PositionReference

	Status             PositionStatus
	ExitReason         ExitReason
	CumFundingReceived decimal.Decimal
	CumFundingPaid     decimal.Decimal

	// State/StateHistory track the combined position's own append-only
	// transition log, distinct from each leg's per-leg history.
	State        TransactionState
	StateHistory []TransactionEvent

	OpenedAt  time.Time
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppendTransition records a combined-position-level state transition.
func (c *CombinedPosition) AppendTransition(state TransactionState, detail string) {
	c.State = state
	c.StateHistory = append(c.StateHistory, TransactionEvent{State: state, At: time.Now(), Detail: detail})
}

// EstimatePnLUSD is the combined unrealized PnL across both legs: the long
// leg's collateral value net of its borrow, plus the short leg's mark-to-entry
// gain/loss.
func (c CombinedPosition) EstimatePnLUSD() decimal.Decimal {
	longPnL := c.Long.PositionSizeUSD.Sub(c.Long.BorrowedUSD).Sub(c.Long.CollateralQty.Mul(c.Long.EntryPrice))
	shortPnL := c.Short.PositionSizeUSD.Sub(c.Short.Qty.Mul(c.Short.EntryPrice))
	return longPnL.Add(shortPnL)
}

// DeltaInfo is the delta-neutrality snapshot for an open position.
type DeltaInfo struct {
	DeltaUSD           decimal.Decimal
	DeltaRatio         decimal.Decimal
	LongValueUSD       decimal.Decimal
	ShortValueUSD      decimal.Decimal
	LSTAppreciationUSD decimal.Decimal
	EffectiveDeltaUSD  decimal.Decimal
}

var (
	deltaWarningThreshold  = decimal.NewFromFloat(0.005)
	deltaCriticalThreshold = decimal.NewFromFloat(0.02)
)

// IsNeutral reports whether drift is at or below the warning threshold
// (inclusive: exactly 0.005 still counts as neutral).
func (d DeltaInfo) IsNeutral() bool {
	return d.DeltaRatio.Abs().LessThanOrEqual(deltaWarningThreshold)
}

// NeedsRebalance reports whether drift has strictly exceeded the warning
// threshold.
func (d DeltaInfo) NeedsRebalance() bool {
	return d.DeltaRatio.Abs().GreaterThan(deltaWarningThreshold)
}

// IsCritical reports whether drift has strictly exceeded the critical
// threshold.
func (d DeltaInfo) IsCritical() bool {
	return d.DeltaRatio.Abs().GreaterThan(deltaCriticalThreshold)
}

// DriftDirection reports which leg has grown relative to the other.
func (d DeltaInfo) DriftDirection() string {
	if d.EffectiveDeltaUSD.IsPositive() {
		return "long_heavy"
	}
	if d.EffectiveDeltaUSD.IsNegative() {
		return "short_heavy"
	}
	return "balanced"
}
