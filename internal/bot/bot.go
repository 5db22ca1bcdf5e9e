// Package bot wires the scan, preflight, open, monitor, and notify stages
// into the running engine: a scan loop that opens new positions on viable
// opportunities and a monitor loop (internal/monitor) that watches them,
// both driven by their own tickers under one cancellable context.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/consensus"
	"github.com/web3guy0/basisbot/internal/killswitch"
	"github.com/web3guy0/basisbot/internal/monitor"
	"github.com/web3guy0/basisbot/internal/notify"
	"github.com/web3guy0/basisbot/internal/opportunity"
	"github.com/web3guy0/basisbot/internal/position"
	"github.com/web3guy0/basisbot/internal/preflight"
	"github.com/web3guy0/basisbot/internal/risk"
	"github.com/web3guy0/basisbot/internal/sizing"
	"github.com/web3guy0/basisbot/internal/store"
	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/venue"
)

// Bot is the top-level engine: one scan loop, one monitor loop, a kill
// switch watcher, and the event bus tying them to the notification layer.
type Bot struct {
	cfg *config.Config

	detector   *opportunity.Detector
	preflight  *preflight.Checker
	sizer      *sizing.PositionSizer
	manager    *position.Manager
	engine     *risk.Engine
	breaker    *risk.CircuitBreaker
	pauses     *risk.PauseController
	monitorSvc *monitor.Service
	killSwitch *killswitch.Monitor
	store      *store.Store
	bus        *notify.Bus

	scanStop    chan struct{}
	defaultUser string
}

// Deps bundles everything New needs to wire a Bot without importing every
// concrete constructor into main.
type Deps struct {
	Cfg         *config.Config
	Long        venue.LongVenue
	Perp        venue.PerpVenue
	Store       *store.Store
	Bus         *notify.Bus
	DefaultUser string
}

// New wires every stage against the shared venues, store, and event bus.
func New(deps Deps) *Bot {
	limits := deps.Cfg.Risk

	detector := opportunity.NewDetector(deps.Long, deps.Perp, limits)
	sizer := sizing.NewPositionSizer(limits)
	riskEngine := risk.NewEngine(limits)
	breaker := risk.NewCircuitBreaker(limits.CircuitBreakerCooldown)
	pauses := risk.NewPauseController(deps.Cfg.AdminAPIKey)

	prices := consensus.NewChecker(deps.Long, deps.Perp, limits.MaxPriceDeviation)
	manager := position.NewManager(deps.Long, deps.Perp, prices, limits)
	if deps.Store != nil {
		manager.SetHistoryRecorder(deps.Store)
	}

	killSwitch := killswitch.NewMonitor(deps.Cfg.KillSwitchPath, deps.Cfg.KillSwitchPollInterval, func(reason string) {
		pauses.Pause(risk.PauseScopeAll, reason)
		deps.Bus.KillSwitchTripped(reason)
	})

	pf := preflight.NewChecker(deps.Long, deps.Perp, prices, limits)

	b := &Bot{
		cfg:         deps.Cfg,
		detector:    detector,
		preflight:   pf,
		sizer:       sizer,
		manager:     manager,
		engine:      riskEngine,
		breaker:     breaker,
		pauses:      pauses,
		killSwitch:  killSwitch,
		store:       deps.Store,
		bus:         deps.Bus,
		defaultUser: deps.DefaultUser,
	}

	b.monitorSvc = monitor.NewService(deps.Long, deps.Perp, riskEngine, manager, pauses, limits, deps.Cfg.MonitorInterval, deps.Cfg.EnableAutoExit, b.onExit)

	return b
}

// Start launches every background loop: recovery from the store, the scan
// loop, the monitor loop, and the kill switch watcher.
func (b *Bot) Start(ctx context.Context) {
	b.recoverOpenPositions(ctx)

	b.killSwitch.Start()
	b.monitorSvc.Start(ctx)

	b.scanStop = make(chan struct{})
	ticker := time.NewTicker(b.cfg.ScanInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.runScanCycle(ctx)
			case <-ctx.Done():
				return
			case <-b.scanStop:
				return
			}
		}
	}()

	log.Info().
		Dur("scan_interval", b.cfg.ScanInterval).
		Dur("monitor_interval", b.cfg.MonitorInterval).
		Msg("▶️ bot started")
}

// Stop halts every background loop.
func (b *Bot) Stop() {
	if b.scanStop != nil {
		close(b.scanStop)
	}
	b.monitorSvc.Stop()
	b.killSwitch.Stop()
	log.Info().Msg("⏸️ bot stopped")
}

func (b *Bot) recoverOpenPositions(ctx context.Context) {
	if b.store == nil {
		return
	}
	positions, err := b.store.LoadOpenPositions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to recover open positions from store")
		return
	}
	for _, p := range positions {
		b.manager.LoadPosition(p)
	}
	if len(positions) > 0 {
		log.Info().Int("count", len(positions)).Msg("📥 recovered open positions")
	}
}

func (b *Bot) runScanCycle(ctx context.Context) {
	if b.killSwitch.Active() {
		return
	}
	b.breaker.CheckAndRecover()
	if ok, reason := risk.CanExecute(b.pauses, b.breaker, "entry"); !ok {
		log.Debug().Str("reason", reason).Msg("scan cycle skipped")
		return
	}

	opportunities, err := b.detector.ScanOpportunities(ctx, b.cfg.Risk.DefaultLeverage)
	if err != nil {
		log.Error().Err(err).Msg("scan cycle failed")
		return
	}
	if len(opportunities) == 0 {
		return
	}

	best := opportunities[0]
	b.tryOpen(ctx, best)
}

func (b *Bot) tryOpen(ctx context.Context, opp types.Opportunity) {
	if ok, reason := risk.CanExecute(b.pauses, b.breaker, "entry"); !ok {
		log.Debug().Str("asset", string(opp.Asset)).Str("reason", reason).Msg("entry skipped")
		return
	}

	if b.store != nil {
		if has, err := b.store.HasOpenPosition(ctx, b.defaultUser, opp.Asset); err != nil {
			log.Error().Err(err).Msg("duplicate-position check failed, skipping entry")
			return
		} else if has {
			log.Debug().Str("asset", string(opp.Asset)).Msg("entry skipped, user already has an open position in this asset")
			return
		}
	}

	if opp.Leverage.LessThan(b.cfg.Risk.MinLeverage) || opp.Leverage.GreaterThan(b.cfg.Risk.MaxLeverage) {
		log.Warn().Str("leverage", opp.Leverage.String()).Msg("⚠️ opportunity leverage outside configured range, skipping entry")
		return
	}

	result := b.preflight.Run(ctx, b.defaultUser, opp)
	if !result.Passed {
		log.Warn().Strs("errors", result.Errors).Msg("⚠️ preflight failed, skipping entry")
		return
	}

	sizingResult := b.sizer.Calculate(b.cfg.DeployedCapitalUSD, b.cfg.DeployedCapitalUSD, b.cfg.Risk.DefaultDeploymentPct, opp.Leverage)
	if !sizingResult.Ok {
		log.Warn().Str("reason", sizingResult.Reason).Msg("⚠️ sizing failed, skipping entry")
		return
	}

	collateralQty := sizingResult.Size.PerLegDeploymentUSD
	opened := b.manager.OpenPosition(ctx, b.defaultUser, opp, collateralQty)
	if !opened.Success {
		log.Error().Str("stage", string(opened.Stage)).Str("error", opened.Error).Msg("❌ failed to open position")
		return
	}

	if b.store != nil {
		if err := b.store.SavePosition(ctx, opened.Position); err != nil {
			log.Error().Err(err).Msg("failed to persist opened position")
		}
	}
	b.bus.PositionOpened(opened.Position)
}

// breakerTypeForReason maps an exit reason to the circuit breaker it should
// trip, since a forced exit on a liquidation-risk or depeg trigger means the
// condition that caused it is still live and new entries should pause too.
func breakerTypeForReason(reason types.ExitReason) (risk.BreakerType, bool) {
	switch reason {
	case types.ExitHealthFactor, types.ExitChainOutage:
		return risk.BreakerLongHealth, true
	case types.ExitMarginFraction:
		return risk.BreakerShortMargin, true
	case types.ExitLSTDepeg:
		return risk.BreakerLSTDepeg, true
	case types.ExitPriceDeviation:
		return risk.BreakerPriceDeviation, true
	default:
		return "", false
	}
}

func (b *Bot) onExit(result position.Result, decision types.ExitDecision) {
	if result.Position == nil {
		return
	}
	b.bus.ExitTriggered(result.Position, decision)

	if breakerType, ok := breakerTypeForReason(decision.Reason); ok {
		b.breaker.Trip(breakerType, fmt.Sprintf("exit trigger: %s", decision.Detail))
	}

	if !result.Success {
		return
	}

	pnl := result.Position.EstimatePnLUSD()

	if b.store != nil {
		ctx := context.Background()
		if err := b.store.CloseToHistory(ctx, result.Position, pnl); err != nil {
			log.Error().Err(err).Msg("failed to persist closed position to history")
		}
		_ = b.store.LogAction(ctx, result.Position.ID.String(), "close", string(decision.Reason), decision.Detail)
	}

	b.bus.PositionClosed(result.Position, pnl)
}
