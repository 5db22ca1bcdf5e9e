// Package monitor runs the periodic health-check loop over every open
// combined position: per-leg liquidation risk, delta drift, and the
// exit-trigger priority chain, closing positions automatically when
// configured to do so.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/position"
	"github.com/web3guy0/basisbot/internal/risk"
	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/venue"
)

// ExitCallback is invoked for every exit trigger the monitor acts on, for the
// notification layer to fan out. It also fires when the position was left
// open because auto exit is disabled or exits are paused; result.Success
// then is false.
type ExitCallback func(result position.Result, decision types.ExitDecision)

// Service runs the per-position monitor cycle on a ticker.
type Service struct {
	long    venue.LongVenue
	perp    venue.PerpVenue
	engine  *risk.Engine
	manager *position.Manager
	pauses  *risk.PauseController
	limits  config.RiskLimits

	interval       time.Duration
	enableAutoExit bool
	onExit         ExitCallback

	stopCh chan struct{}
}

// NewService wires the monitor against the risk engine and position manager
// it drives each cycle.
func NewService(long venue.LongVenue, perp venue.PerpVenue, engine *risk.Engine, manager *position.Manager, pauses *risk.PauseController, limits config.RiskLimits, interval time.Duration, enableAutoExit bool, onExit ExitCallback) *Service {
	return &Service{
		long:           long,
		perp:           perp,
		engine:         engine,
		manager:        manager,
		pauses:         pauses,
		limits:         limits,
		interval:       interval,
		enableAutoExit: enableAutoExit,
		onExit:         onExit,
	}
}

// Start launches the monitor loop in a goroutine.
func (s *Service) Start(ctx context.Context) {
	s.stopCh = make(chan struct{})
	ticker := time.NewTicker(s.interval)

	log.Info().Dur("interval", s.interval).Bool("auto_exit", s.enableAutoExit).Msg("▶️ position monitor started")

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunCycle(ctx)
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			}
		}
	}()
}

// Stop halts the monitor loop.
func (s *Service) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
	}
	log.Info().Msg("⏸️ position monitor stopped")
}

// RunCycle evaluates every open position once, synchronously. Exposed
// separately from Start so callers (and tests) can drive a single pass
// without waiting on the ticker.
func (s *Service) RunCycle(ctx context.Context) {
	positions := s.manager.GetAllPositions()
	if len(positions) == 0 {
		return
	}

	log.Debug().Int("open_positions", len(positions)).Msg("monitor cycle starting")

	for _, combined := range positions {
		s.evaluateOne(ctx, combined)
	}
}

func (s *Service) evaluateOne(ctx context.Context, combined *types.CombinedPosition) {
	positionID := combined.ID.String()

	healthFactor, err := s.long.HealthFactor(ctx, combined.Long)
	if err != nil {
		log.Warn().Err(err).Str("position_id", positionID).Msg("failed to fetch long leg health factor; treating as chain outage")
		s.handleDecision(ctx, combined, types.ExitDecision{ShouldExit: true, Reason: types.ExitChainOutage, Level: types.RiskCritical, Detail: err.Error(), DecidedAt: time.Now()})
		return
	}

	marginFraction, err := s.perp.MarginFraction(ctx, combined.Short)
	if err != nil {
		log.Warn().Err(err).Str("position_id", positionID).Msg("failed to fetch short leg margin fraction; treating as chain outage")
		s.handleDecision(ctx, combined, types.ExitDecision{ShouldExit: true, Reason: types.ExitChainOutage, Level: types.RiskCritical, Detail: err.Error(), DecidedAt: time.Now()})
		return
	}

	funding, err := s.perp.CurrentFunding(ctx, combined.Short.Coin)
	if err != nil {
		log.Warn().Err(err).Str("position_id", positionID).Msg("failed to fetch current funding rate")
		funding = types.FundingRate{}
	}

	delta, err := s.manager.GetPositionDelta(ctx, combined)
	if err != nil {
		log.Warn().Err(err).Str("position_id", positionID).Msg("failed to compute position delta")
	}

	longHealth := s.engine.CheckLongHealth(combined.UserID, combined.Long.PDAKey, healthFactor)
	shortMargin := s.engine.CheckShortMargin(combined.UserID, combined.Short.PositionKey, marginFraction)

	currentAPY := funding.RateAnnual().Neg()

	decision := s.engine.EvaluateExitTrigger(risk.ExitTriggerInput{
		UserID:             combined.UserID,
		PositionID:         positionID,
		LongHealth:         longHealth,
		ShortMargin:        shortMargin,
		CurrentAPY:         currentAPY,
		PositionValueUSD:   combined.Long.PositionSizeUSD,
		CurrentFundingRate: funding.Rate8h,
		Delta:              delta,
		PnLUSD:             combined.EstimatePnLUSD(),
		Leverage:           combined.Leverage,
	})

	if decision.ShouldExit {
		s.handleDecision(ctx, combined, decision)
		return
	}

	if delta.NeedsRebalance() {
		if result, rerr := s.manager.RebalanceIfNeeded(ctx, combined); rerr != nil {
			log.Warn().Err(rerr).Str("position_id", positionID).Msg("rebalance check failed")
		} else if result.Performed {
			log.Info().Str("position_id", positionID).Str("adjusted_leg", result.AdjustedLeg).Msg("💧 position rebalance recommended")
		}
	}

	log.Debug().
		Str("position_id", positionID).
		Str("long_health_factor", healthFactor.StringFixed(4)).
		Str("short_margin_fraction", marginFraction.StringFixed(4)).
		Str("delta_ratio", delta.DeltaRatio.StringFixed(4)).
		Msg("monitor cycle evaluated position")
}

func (s *Service) handleDecision(ctx context.Context, combined *types.CombinedPosition, decision types.ExitDecision) {
	positionID := combined.ID.String()
	log.Warn().
		Str("position_id", positionID).
		Str("reason", string(decision.Reason)).
		Str("detail", decision.Detail).
		Msg("⚠️ exit trigger fired")

	if !s.enableAutoExit {
		log.Warn().Str("position_id", positionID).Msg("auto exit disabled, manual intervention required")
		if s.onExit != nil {
			s.onExit(position.Result{Success: false, Stage: position.StagePreflight, Error: "auto exit disabled", Position: combined}, decision)
		}
		return
	}

	if s.pauses != nil {
		if paused, reason := s.pauses.CheckPaused("exit"); paused {
			log.Warn().Str("position_id", positionID).Str("reason", reason).Msg("exit paused, manual intervention required")
			if s.onExit != nil {
				s.onExit(position.Result{Success: false, Stage: position.StagePreflight, Error: "exits paused: " + reason, Position: combined}, decision)
			}
			return
		}
	}

	result := s.manager.ClosePosition(ctx, positionID, decision.Reason)
	if s.onExit != nil {
		s.onExit(result, decision)
	}
}
