// Package risk hosts the liquidation-risk health checks for both legs of a
// combined position, the exit-trigger priority chain that decides when a
// position must close, and the pause/circuit-breaker machinery that halts
// new entries.
package risk

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/validator"
)

// Engine evaluates per-leg liquidation risk and decides when a combined
// position must exit. Proximity tracking is namespaced per user so a single
// engine instance serves every tenant.
type Engine struct {
	mu              sync.Mutex
	limits          config.RiskLimits
	proximityTimers map[string]time.Time
}

// NewEngine builds a risk engine against the given limits.
func NewEngine(limits config.RiskLimits) *Engine {
	return &Engine{
		limits:          limits,
		proximityTimers: make(map[string]time.Time),
	}
}

// CheckLongHealth classifies the Asgard long leg's liquidation risk from its
// live health factor.
func (e *Engine) CheckLongHealth(userID, pdaKey string, healthFactor decimal.Decimal) types.HealthCheckResult {
	level := types.RiskNormal
	switch {
	case healthFactor.LessThanOrEqual(e.limits.CriticalHealthFactor):
		level = types.RiskCritical
	case healthFactor.LessThanOrEqual(e.limits.EmergencyHealthFactor):
		level = types.RiskCritical
	case healthFactor.LessThanOrEqual(e.limits.MinHealthFactor):
		level = types.RiskWarning
	}

	one := decimal.NewFromInt(1)
	proximityThreshold := e.limits.MinHealthFactor.Mul(one.Add(e.limits.LiquidationProximityPct))

	result := types.HealthCheckResult{
		Level:              level,
		HealthFactor:       healthFactor,
		ProximityThreshold: proximityThreshold,
	}

	key := userID + ":asgard_" + pdaKey
	e.updateProximity(key, result.InProximity())
	if since, ok := e.getProximitySince(key); ok {
		result.InProximitySince = &since
	}

	return result
}

// CheckShortMargin classifies the Hyperliquid short leg's liquidation risk
// from its live margin fraction.
func (e *Engine) CheckShortMargin(userID, positionKey string, marginFraction decimal.Decimal) types.MarginCheckResult {
	level := types.RiskNormal
	half := e.limits.MarginFractionThreshold.Div(decimal.NewFromInt(2))
	switch {
	case marginFraction.LessThanOrEqual(half):
		level = types.RiskCritical
	case marginFraction.LessThanOrEqual(e.limits.MarginFractionThreshold):
		level = types.RiskWarning
	}

	one := decimal.NewFromInt(1)
	proximityThreshold := e.limits.MarginFractionThreshold.Mul(one.Add(e.limits.LiquidationProximityPct))

	result := types.MarginCheckResult{
		Level:              level,
		MarginFraction:     marginFraction,
		Threshold:          e.limits.MarginFractionThreshold,
		ProximityThreshold: proximityThreshold,
	}

	key := userID + ":hyperliquid_" + positionKey
	e.updateProximity(key, result.InProximity())
	if since, ok := e.getProximitySince(key); ok {
		result.InProximitySince = &since
	}

	return result
}

// CheckFundingFlip reports whether the short leg's funding rate has flipped
// positive, which means the position is now paying rather than receiving.
func (e *Engine) CheckFundingFlip(currentFunding decimal.Decimal) bool {
	return currentFunding.IsPositive()
}

// CheckDeltaDrift classifies how far the position has drifted from neutral.
func (e *Engine) CheckDeltaDrift(delta types.DeltaInfo) types.RiskLevel {
	switch {
	case delta.IsCritical():
		return types.RiskCritical
	case delta.NeedsRebalance():
		return types.RiskWarning
	default:
		return types.RiskNormal
	}
}

// ExitTriggerInput bundles every signal EvaluateExitTrigger needs to walk
// its priority chain.
type ExitTriggerInput struct {
	UserID             string
	PositionID         string
	ChainOutage        bool
	LongHealth         types.HealthCheckResult
	ShortMargin        types.MarginCheckResult
	LSTDepegged        bool
	PriceDeviation     decimal.Decimal
	CurrentAPY         decimal.Decimal
	PositionValueUSD   decimal.Decimal
	CurrentFundingRate decimal.Decimal
	Delta              types.DeltaInfo
	PnLUSD             decimal.Decimal
	Leverage           decimal.Decimal
}

// EvaluateExitTrigger walks the fixed priority chain and returns the first
// trigger that fires. Order: chain outage, long-leg liquidation risk,
// short-leg liquidation risk, LST depeg, price deviation, negative APY
// (weighed against the cost of waiting five more minutes), funding flip,
// stop loss, target profit. Returns ShouldExit=false if nothing fires.
func (e *Engine) EvaluateExitTrigger(in ExitTriggerInput) types.ExitDecision {
	now := time.Now()

	if in.ChainOutage {
		return types.ExitDecision{ShouldExit: true, Reason: types.ExitChainOutage, Level: types.RiskCritical, Detail: "chain RPC unreachable", DecidedAt: now}
	}

	if in.LongHealth.ShouldClose() || e.proximityTriggered(in.LongHealth.InProximitySince) {
		return types.ExitDecision{ShouldExit: true, Reason: types.ExitHealthFactor, Level: types.RiskCritical, Detail: "long leg health factor critical or sustained near liquidation", DecidedAt: now}
	}

	if in.ShortMargin.ShouldClose() || e.proximityTriggered(in.ShortMargin.InProximitySince) {
		return types.ExitDecision{ShouldExit: true, Reason: types.ExitMarginFraction, Level: types.RiskCritical, Detail: "short leg margin fraction critical or sustained near liquidation", DecidedAt: now}
	}

	if in.LSTDepegged {
		return types.ExitDecision{ShouldExit: true, Reason: types.ExitLSTDepeg, Level: types.RiskCritical, Detail: "LST has depegged from SOL", DecidedAt: now}
	}

	if in.PriceDeviation.GreaterThan(e.limits.MaxPriceDeviation) {
		return types.ExitDecision{ShouldExit: true, Reason: types.ExitPriceDeviation, Level: types.RiskWarning, Detail: "venue price deviation exceeds threshold", DecidedAt: now}
	}

	if in.CurrentAPY.IsNegative() {
		fiveMinLoss := validator.FiveMinuteLossUSD(in.PositionValueUSD, in.CurrentAPY)
		if fiveMinLoss.IsPositive() {
			return types.ExitDecision{ShouldExit: true, Reason: types.ExitNegativeAPY, Level: types.RiskWarning, Detail: "realized APY negative, cost of waiting exceeds zero", DecidedAt: now}
		}
	}

	if e.CheckFundingFlip(in.CurrentFundingRate) {
		return types.ExitDecision{ShouldExit: true, Reason: types.ExitFundingFlip, Level: types.RiskWarning, Detail: "short leg funding has flipped positive", DecidedAt: now}
	}

	if !e.limits.MinExitCarryAPY.IsZero() {
		fundingAPY := (types.FundingRate{Rate8h: in.CurrentFundingRate}).RateAnnual().Abs().Mul(in.Leverage)
		if fundingAPY.LessThan(e.limits.MinExitCarryAPY) {
			return types.ExitDecision{ShouldExit: true, Reason: types.ExitInsufficientCarry, Level: types.RiskWarning, Detail: "current funding-derived carry below configured floor", DecidedAt: now}
		}
	}

	if in.PositionValueUSD.IsPositive() {
		pnlRatio := in.PnLUSD.Div(in.PositionValueUSD)
		if !e.limits.StopLossPct.IsZero() && pnlRatio.LessThanOrEqual(e.limits.StopLossPct) {
			return types.ExitDecision{ShouldExit: true, Reason: types.ExitStopLoss, Level: types.RiskWarning, Detail: "unrealized pnl at or below configured stop loss", DecidedAt: now}
		}

		if !e.limits.TakeProfitPct.IsZero() && pnlRatio.GreaterThanOrEqual(e.limits.TakeProfitPct) {
			return types.ExitDecision{ShouldExit: true, Reason: types.ExitTargetProfit, Level: types.RiskNormal, Detail: "unrealized pnl reached configured target profit", DecidedAt: now}
		}
	}

	worst := e.worstLevel(in.LongHealth.Level, in.ShortMargin.Level)
	return types.ExitDecision{ShouldExit: false, Level: worst, DecidedAt: now}
}

// GetRiskSummary assembles a point-in-time snapshot suitable for logging.
func (e *Engine) GetRiskSummary(positionID string, longHealth types.HealthCheckResult, shortMargin types.MarginCheckResult, delta types.DeltaInfo) types.RiskSummary {
	return types.RiskSummary{
		PositionID:        positionID,
		AsgardHealth:      longHealth,
		HyperliquidMargin: shortMargin,
		Delta:             delta,
		WorstLevel:        e.worstLevel(longHealth.Level, shortMargin.Level),
	}
}

// ResetProximityTracking clears a leg's debounce timer, called after a
// position closes or its health recovers decisively.
func (e *Engine) ResetProximityTracking(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.proximityTimers, key)
}

func (e *Engine) updateProximity(key string, inProximity bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !inProximity {
		delete(e.proximityTimers, key)
		return
	}
	if _, ok := e.proximityTimers[key]; !ok {
		e.proximityTimers[key] = time.Now()
	}
}

func (e *Engine) getProximitySince(key string) (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.proximityTimers[key]
	return t, ok
}

// proximityTriggered reports whether a leg has sustained a liquidation-
// proximity condition for at least LiquidationProximitySecs, the debounce
// window that turns a momentary dip into a forced exit.
func (e *Engine) proximityTriggered(since *time.Time) bool {
	if since == nil {
		return false
	}
	return time.Since(*since) >= time.Duration(e.limits.LiquidationProximitySecs)*time.Second
}

func (e *Engine) worstLevel(a, b types.RiskLevel) types.RiskLevel {
	rank := func(l types.RiskLevel) int {
		switch l {
		case types.RiskCritical:
			return 2
		case types.RiskWarning:
			return 1
		default:
			return 0
		}
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}
