// Package position drives the open/close/rebalance lifecycle of a combined
// delta-neutral position: long leg first on entry, short leg first on exit,
// with a bounded single-leg exposure window and emergency unwind on partial
// failure.
package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/consensus"
	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/validator"
	"github.com/web3guy0/basisbot/internal/venue"
)

// Stage names the step a failed Result stopped at, mirroring the
// original system's "stage" discriminator on its position-manager result.
type Stage string

const (
	StagePreflight  Stage = "preflight"
	StagePricing    Stage = "pricing"
	StageBridge     Stage = "bridge"
	StageLongOpen   Stage = "long_open"
	StageShortOpen  Stage = "short_open"
	StageValidation Stage = "validation"
	StageCloseShort Stage = "close_short"
	StageCloseLong  Stage = "close_long"
	StageCloseBoth  Stage = "close_both"
	StageDone       Stage = "done"
)

// Result is the outcome of an open/close/rebalance operation.
type Result struct {
	Success  bool
	Stage    Stage
	Error    string
	Position *types.CombinedPosition
}

// HistoryRecorder persists a closed position's summary row. Satisfied by
// internal/store in production; narrow so position doesn't import store.
type HistoryRecorder interface {
	CloseToHistory(ctx context.Context, combined *types.CombinedPosition, pnlUSD decimal.Decimal) error
}

// shortLegRetryBackoff is the pause between retry attempts for the short
// leg's open/close calls, bounded overall by MaxSingleLegExposureSecs.
var shortLegRetryBackoff = 2 * time.Second

// Manager opens, closes, and rebalances combined positions, keyed by
// per-position striped locks so concurrent monitor/bot goroutines never
// race on the same position.
type Manager struct {
	long      venue.LongVenue
	perp      venue.PerpVenue
	prices    *consensus.Checker
	validator *validator.FillValidator
	limits    config.RiskLimits
	history   HistoryRecorder

	locks     sync.Map // position id -> *sync.Mutex
	positions sync.Map // position id -> *types.CombinedPosition
}

// NewManager wires a position manager against both venues and a price
// consensus checker used to reference-price new entries.
func NewManager(long venue.LongVenue, perp venue.PerpVenue, prices *consensus.Checker, limits config.RiskLimits) *Manager {
	return &Manager{long: long, perp: perp, prices: prices, validator: validator.NewFillValidator(), limits: limits}
}

// SetHistoryRecorder wires the persistence layer that records closed
// positions. Optional: if unset, ClosePosition skips history recording.
func (m *Manager) SetHistoryRecorder(h HistoryRecorder) {
	m.history = h
}

func (m *Manager) lockFor(positionID string) *sync.Mutex {
	lock, _ := m.locks.LoadOrStore(positionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// OpenPosition snapshots a price-consensus reference, opens the long leg,
// bridges perp margin if needed, sets leverage, opens the short leg with
// retry bounded by the single-leg exposure window, validates both fills
// against the reference, and unwinds on any unrecoverable failure.
func (m *Manager) OpenPosition(ctx context.Context, userID string, opp types.Opportunity, collateralQty decimal.Decimal) Result {
	positionID := uuid.New().String()
	log.Info().Str("position_id", positionID).Str("asset", string(opp.Asset)).Msg("📈 opening combined position")

	consensusResult, err := m.prices.Check(ctx, opp.Asset, opp.PerpCoin)
	if err != nil {
		return Result{Success: false, Stage: StagePricing, Error: fmt.Sprintf("price consensus snapshot: %v", err)}
	}
	if !consensusResult.IsWithinThreshold {
		return Result{Success: false, Stage: StagePricing, Error: "price consensus deviation exceeds threshold at entry"}
	}
	reference := validator.CreatePositionReference(consensusResult.LongPrice, consensusResult.ShortPrice, m.limits.MaxAcceptableDeviation)

	longLeg, err := m.long.OpenLong(ctx, opp.Protocol, opp.Asset, collateralQty, opp.Leverage)
	if err != nil {
		return Result{Success: false, Stage: StageLongOpen, Error: fmt.Sprintf("open long leg: %v", err)}
	}

	log.Info().
		Str("position_id", positionID).
		Str("pda_key", longLeg.PDAKey).
		Str("position_size_usd", longLeg.PositionSizeUSD.StringFixed(2)).
		Msg("long leg opened")

	shortNotional := longLeg.PositionSizeUSD

	if err := m.ensureBridged(ctx, shortNotional); err != nil {
		log.Error().Err(err).Str("position_id", positionID).Msg("❌ bridge funding failed, unwinding long leg")
		m.unwindLong(ctx, longLeg)
		return Result{Success: false, Stage: StageBridge, Error: fmt.Sprintf("bridge perp margin: %v", err)}
	}

	if err := m.perp.SetLeverage(ctx, opp.PerpCoin, opp.Leverage); err != nil {
		log.Error().Err(err).Str("position_id", positionID).Msg("❌ set leverage failed, unwinding long leg")
		m.unwindLong(ctx, longLeg)
		return Result{Success: false, Stage: StageShortOpen, Error: fmt.Sprintf("set perp leverage: %v", err)}
	}

	shortLeg, err := m.openShortWithRetry(ctx, opp, shortNotional, positionID)
	if err != nil {
		log.Error().Err(err).Str("position_id", positionID).Msg("❌ short leg failed, unwinding long leg")
		m.unwindLong(ctx, longLeg)
		return Result{Success: false, Stage: StageShortOpen, Error: fmt.Sprintf("open short leg: %v", err)}
	}

	log.Info().
		Str("position_id", positionID).
		Str("position_key", shortLeg.PositionKey).
		Msg("short leg opened")

	longFill := types.FillInfo{ExpectedPrice: consensusResult.LongPrice, ActualPrice: longLeg.EntryPrice, Qty: longLeg.CollateralQty}
	shortFill := types.FillInfo{ExpectedPrice: consensusResult.ShortPrice, ActualPrice: shortLeg.EntryPrice, Qty: shortLeg.Qty}
	validation := m.validator.ValidateFills(ctx, longFill, shortFill, opp.Score.TotalExpectedAPY, reference)

	if validation.Action == types.ActionHardStop {
		log.Error().Str("position_id", positionID).Str("reason", validation.Reason).Msg("❌ fill validation hard stop, unwinding both legs")
		m.unwindShort(ctx, shortLeg)
		m.unwindLong(ctx, longLeg)
		return Result{Success: false, Stage: StageValidation, Error: validation.Reason}
	}
	if validation.Action == types.ActionSoftStop {
		log.Warn().Str("position_id", positionID).Str("reason", validation.Reason).Msg("⚠️ fill validation soft stop, proceeding under close watch")
	}

	now := time.Now()
	combined := &types.CombinedPosition{
		ID:        uuid.MustParse(positionID),
		UserID:    userID,
		Asset:     opp.Asset,
		Leverage:  opp.Leverage,
		Long:      longLeg,
		Short:     shortLeg,
		Reference: reference,
		Status:    types.StatusOpen,
		OpenedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	combined.AppendTransition(types.TxConfirmed, "combined position opened")

	m.positions.Store(positionID, combined)

	log.Info().Str("position_id", positionID).Msg("✅ combined position opened")
	return Result{Success: true, Stage: StageDone, Position: combined}
}

// ensureBridged tops up the perp account from the bridge wallet when its
// current value can't cover the notional the short leg is about to open.
func (m *Manager) ensureBridged(ctx context.Context, requiredNotional decimal.Decimal) error {
	accountValue, err := m.perp.AccountValue(ctx)
	if err != nil {
		return fmt.Errorf("check perp account value: %w", err)
	}
	if accountValue.GreaterThanOrEqual(requiredNotional) {
		return nil
	}

	shortfall := requiredNotional.Sub(accountValue)
	bridgeable, err := m.perp.BridgeableBalance(ctx)
	if err != nil {
		return fmt.Errorf("check bridgeable balance: %w", err)
	}
	if bridgeable.LessThan(shortfall) {
		return fmt.Errorf("bridgeable balance %s insufficient for shortfall %s", bridgeable.StringFixed(2), shortfall.StringFixed(2))
	}

	txHash, err := m.perp.BridgeDeposit(ctx, shortfall)
	if err != nil {
		return fmt.Errorf("bridge deposit: %w", err)
	}
	log.Info().Str("tx_hash", txHash).Str("amount_usd", shortfall.StringFixed(2)).Msg("🌉 bridged funds to perp account")
	return nil
}

// openShortWithRetry retries OpenShort until it succeeds or the single-leg
// exposure window elapses, since the long leg is already live and unhedged.
func (m *Manager) openShortWithRetry(ctx context.Context, opp types.Opportunity, notionalUSD decimal.Decimal, positionID string) (types.ShortLeg, error) {
	deadline := time.Now().Add(time.Duration(m.limits.MaxSingleLegExposureSecs) * time.Second)
	var lastErr error
	for attempt := 1; ; attempt++ {
		leg, err := m.perp.OpenShort(ctx, opp.PerpCoin, notionalUSD, opp.Leverage)
		if err == nil {
			return leg, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Str("position_id", positionID).Msg("short leg open attempt failed, retrying")

		if time.Now().Add(shortLegRetryBackoff).After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return types.ShortLeg{}, ctx.Err()
		case <-time.After(shortLegRetryBackoff):
		}
	}
	return types.ShortLeg{}, fmt.Errorf("exhausted retries within %ds single-leg exposure window: %w", m.limits.MaxSingleLegExposureSecs, lastErr)
}

// closeShortWithRetry mirrors openShortWithRetry for the exit path: the
// short leg closes first, so a stuck retry loop here still bounds how long
// the long leg sits alone.
func (m *Manager) closeShortWithRetry(ctx context.Context, leg types.ShortLeg, positionID string) (types.ShortLeg, error) {
	deadline := time.Now().Add(time.Duration(m.limits.MaxSingleLegExposureSecs) * time.Second)
	var lastErr error
	for attempt := 1; ; attempt++ {
		closed, err := m.perp.CloseShort(ctx, leg)
		if err == nil {
			return closed, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Str("position_id", positionID).Msg("short leg close attempt failed, retrying")

		if time.Now().Add(shortLegRetryBackoff).After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return leg, ctx.Err()
		case <-time.After(shortLegRetryBackoff):
		}
	}
	return leg, fmt.Errorf("exhausted retries closing short leg within %ds: %w", m.limits.MaxSingleLegExposureSecs, lastErr)
}

func (m *Manager) unwindLong(ctx context.Context, leg types.LongLeg) {
	if _, err := m.long.CloseLong(ctx, leg); err != nil {
		log.Error().Err(err).Str("pda_key", leg.PDAKey).Msg("🚨 CRITICAL: failed to unwind long leg, manual intervention required")
	}
}

func (m *Manager) unwindShort(ctx context.Context, leg types.ShortLeg) {
	if _, err := m.perp.CloseShort(ctx, leg); err != nil {
		log.Error().Err(err).Str("position_key", leg.PositionKey).Msg("🚨 CRITICAL: failed to unwind short leg, manual intervention required")
	}
}

// ClosePosition closes the short leg first (reduces liquidation risk fastest)
// then the long leg, retrying the short leg within the configured maximum
// single-leg exposure window before falling through to the long leg anyway.
func (m *Manager) ClosePosition(ctx context.Context, positionID string, reason types.ExitReason) Result {
	lock := m.lockFor(positionID)
	lock.Lock()
	defer lock.Unlock()

	value, ok := m.positions.Load(positionID)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("position %s not found", positionID)}
	}
	combined := value.(*types.CombinedPosition)

	log.Info().Str("position_id", positionID).Str("reason", string(reason)).Msg("📉 closing combined position")
	start := time.Now()
	combined.Status = types.StatusClosing
	combined.ExitReason = reason

	shortClosed, shortErr := m.closeShortWithRetry(ctx, combined.Short, positionID)
	if shortErr != nil {
		log.Error().Err(shortErr).Str("position_id", positionID).Msg("failed to close short leg, attempting long leg anyway")
	} else {
		combined.Short = shortClosed
	}

	maxExposure := time.Duration(m.limits.MaxSingleLegExposureSecs) * time.Second
	if elapsed := time.Since(start); elapsed > maxExposure {
		log.Warn().Dur("elapsed", elapsed).Dur("max_exposure", maxExposure).Msg("⚠️ single-leg exposure window exceeded")
	}

	longClosed, longErr := m.long.CloseLong(ctx, combined.Long)
	if longErr != nil {
		log.Error().Err(longErr).Str("position_id", positionID).Msg("failed to close long leg")
		if shortErr != nil {
			combined.Status = types.StatusStuck
			return Result{Success: false, Stage: StageCloseBoth, Error: fmt.Sprintf("failed to close both legs: short=%v, long=%v", shortErr, longErr), Position: combined}
		}
		combined.Status = types.StatusStuck
		return Result{Success: false, Stage: StageCloseLong, Error: longErr.Error(), Position: combined}
	}
	combined.Long = longClosed

	now := time.Now()
	combined.ClosedAt = &now
	combined.UpdatedAt = now
	combined.Status = types.StatusClosed
	combined.AppendTransition(types.TxConfirmed, "combined position closed: "+string(reason))
	m.positions.Delete(positionID)

	if m.history != nil {
		if err := m.history.CloseToHistory(ctx, combined, combined.EstimatePnLUSD()); err != nil {
			log.Error().Err(err).Str("position_id", positionID).Msg("failed to record closed position to history")
		}
	}

	log.Info().Str("position_id", positionID).Dur("total_time", time.Since(start)).Msg("✅ combined position closed")
	return Result{Success: true, Stage: StageDone, Position: combined}
}

// GetPositionDelta computes the current delta-neutrality snapshot,
// accounting for LST appreciation on the long leg.
func (m *Manager) GetPositionDelta(ctx context.Context, combined *types.CombinedPosition) (types.DeltaInfo, error) {
	longPrice, err := m.long.CurrentPrice(ctx, combined.Asset)
	if err != nil {
		return types.DeltaInfo{}, err
	}

	longValue := combined.Long.CollateralQty.Mul(longPrice).Mul(combined.Leverage)
	shortValue := combined.Short.PositionSizeUSD

	deltaUSD := longValue.Sub(shortValue)

	lstAppreciation := decimal.Zero
	if combined.Asset.IsLST() {
		entryValue := combined.Long.CollateralQty.Mul(combined.Long.EntryPrice).Mul(combined.Leverage)
		lstAppreciation = longValue.Sub(entryValue)
	}

	effectiveDelta := deltaUSD.Add(lstAppreciation)

	deltaRatio := decimal.Zero
	if combined.Long.PositionSizeUSD.IsPositive() {
		deltaRatio = effectiveDelta.Div(combined.Long.PositionSizeUSD)
	}

	return types.DeltaInfo{
		DeltaUSD:           deltaUSD,
		DeltaRatio:         deltaRatio,
		LongValueUSD:       longValue,
		ShortValueUSD:      shortValue,
		LSTAppreciationUSD: lstAppreciation,
		EffectiveDeltaUSD:  effectiveDelta,
	}, nil
}

// RebalanceIfNeeded decides whether to rebalance: Performed is true only when
// the estimated daily cost of holding the current drift exceeds the one-time
// cost of rebalancing. It reports the leg and USD adjustment; it places no
// orders on either venue.
func (m *Manager) RebalanceIfNeeded(ctx context.Context, combined *types.CombinedPosition) (types.RebalanceResult, error) {
	delta, err := m.GetPositionDelta(ctx, combined)
	if err != nil {
		return types.RebalanceResult{}, err
	}

	if !delta.NeedsRebalance() {
		return types.RebalanceResult{Performed: false, Reason: fmt.Sprintf("delta ratio %s within threshold", delta.DeltaRatio.StringFixed(4))}, nil
	}

	driftCost := driftCostPerDay(delta)
	rebalanceCost := rebalanceCost(combined)

	if driftCost.LessThanOrEqual(rebalanceCost) {
		return types.RebalanceResult{
			Performed: false,
			Reason:    fmt.Sprintf("drift cost %s <= rebalance cost %s", driftCost.StringFixed(2), rebalanceCost.StringFixed(2)),
		}, nil
	}

	log.Info().
		Str("position_id", combined.ID.String()).
		Str("drift_cost", driftCost.StringFixed(2)).
		Str("rebalance_cost", rebalanceCost.StringFixed(2)).
		Msg("rebalancing position")

	return types.RebalanceResult{
		Performed:     true,
		AdjustedLeg:   delta.DriftDirection(),
		AdjustmentUSD: delta.EffectiveDeltaUSD.Abs(),
		Reason:        "drift cost exceeded rebalance cost",
	}, nil
}

// dailyDriftRate is the conservative per-day cost estimate for holding
// unhedged exposure, expressed as a fraction of the drift.
var dailyDriftRate = decimal.NewFromFloat(0.0001)
var rebalanceGasCostUSD = decimal.NewFromInt(10)
var rebalanceSlippageRate = decimal.NewFromFloat(0.001)

func driftCostPerDay(delta types.DeltaInfo) decimal.Decimal {
	return delta.EffectiveDeltaUSD.Abs().Mul(dailyDriftRate)
}

func rebalanceCost(combined *types.CombinedPosition) decimal.Decimal {
	slippage := combined.Long.PositionSizeUSD.Mul(rebalanceSlippageRate)
	return rebalanceGasCostUSD.Add(slippage)
}

// GetPosition returns the in-memory open position by ID, if any.
func (m *Manager) GetPosition(positionID string) (*types.CombinedPosition, bool) {
	value, ok := m.positions.Load(positionID)
	if !ok {
		return nil, false
	}
	return value.(*types.CombinedPosition), true
}

// GetAllPositions returns every currently open position.
func (m *Manager) GetAllPositions() []*types.CombinedPosition {
	var all []*types.CombinedPosition
	m.positions.Range(func(_, value any) bool {
		all = append(all, value.(*types.CombinedPosition))
		return true
	})
	return all
}

// LoadPosition seeds the in-memory map from persistence, for startup recovery.
func (m *Manager) LoadPosition(combined *types.CombinedPosition) {
	m.positions.Store(combined.ID.String(), combined)
	log.Info().Str("position_id", combined.ID.String()).Msg("📥 position loaded from persistence")
}
