package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/consensus"
	"github.com/web3guy0/basisbot/internal/position"
	"github.com/web3guy0/basisbot/internal/risk"
	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/venue"
)

func newTestService(t *testing.T, enableAutoExit bool, onExit ExitCallback) (*Service, *venue.PaperLongVenue, *venue.PaperPerpVenue, *position.Manager) {
	t.Helper()
	svc, long, perp, manager, _ := newTestServiceWithPauses(t, enableAutoExit, onExit)
	return svc, long, perp, manager
}

func newTestServiceWithPauses(t *testing.T, enableAutoExit bool, onExit ExitCallback) (*Service, *venue.PaperLongVenue, *venue.PaperPerpVenue, *position.Manager, *risk.PauseController) {
	t.Helper()
	limits := config.DefaultRiskLimits()
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())
	prices := consensus.NewChecker(long, perp, limits.MaxPriceDeviation)
	manager := position.NewManager(long, perp, prices, limits)
	engine := risk.NewEngine(limits)
	pauses := risk.NewPauseController("")

	svc := NewService(long, perp, engine, manager, pauses, limits, time.Hour, enableAutoExit, onExit)
	return svc, long, perp, manager, pauses
}

func openTestPosition(t *testing.T, manager *position.Manager) *types.CombinedPosition {
	t.Helper()
	opp := types.Opportunity{
		Asset: types.AssetSOL, Protocol: types.ProtocolMarginFi, PerpCoin: "SOL", Leverage: decimal.NewFromFloat(3.0),
		Score: types.OpportunityScore{TotalExpectedAPY: decimal.NewFromFloat(0.15)},
	}
	result := manager.OpenPosition(context.Background(), "user-1", opp, decimal.NewFromInt(100))
	require.True(t, result.Success)
	return result.Position
}

func TestRunCycleNoOpenPositionsIsNoop(t *testing.T) {
	svc, _, _, _ := newTestService(t, false, nil)
	svc.RunCycle(context.Background())
}

func TestRunCycleClosesPositionOnCriticalHealth(t *testing.T) {
	var closedDecision types.ExitDecision
	closed := false
	svc, long, _, manager := newTestService(t, true, func(result position.Result, decision types.ExitDecision) {
		closed = result.Success
		closedDecision = decision
	})

	combined := openTestPosition(t, manager)
	long.SetHealthFactor(combined.Long.PDAKey, decimal.NewFromFloat(0.03))

	svc.RunCycle(context.Background())

	assert.True(t, closed)
	assert.Equal(t, types.ExitHealthFactor, closedDecision.Reason)

	_, stillOpen := manager.GetPosition(combined.ID.String())
	assert.False(t, stillOpen)
}

func TestRunCycleReportsWithoutClosingWhenAutoExitDisabled(t *testing.T) {
	notified := false
	svc, long, _, manager := newTestService(t, false, func(result position.Result, decision types.ExitDecision) {
		notified = true
		assert.False(t, result.Success)
	})

	combined := openTestPosition(t, manager)
	long.SetHealthFactor(combined.Long.PDAKey, decimal.NewFromFloat(0.03))

	svc.RunCycle(context.Background())

	assert.True(t, notified)
	_, stillOpen := manager.GetPosition(combined.ID.String())
	assert.True(t, stillOpen, "position must remain open when auto exit is disabled")
}

func TestRunCycleHealthyPositionStaysOpen(t *testing.T) {
	svc, _, _, manager := newTestService(t, true, func(position.Result, types.ExitDecision) {
		t.Fatal("should not exit a healthy position")
	})

	combined := openTestPosition(t, manager)
	svc.RunCycle(context.Background())

	_, stillOpen := manager.GetPosition(combined.ID.String())
	assert.True(t, stillOpen)
}

func TestRunCycleSkipsCloseWhenExitsPaused(t *testing.T) {
	notified := false
	svc, long, _, manager, pauses := newTestServiceWithPauses(t, true, func(result position.Result, decision types.ExitDecision) {
		notified = true
		assert.False(t, result.Success)
	})
	pauses.Pause(risk.PauseScopeExit, "manual exit freeze for test")

	combined := openTestPosition(t, manager)
	long.SetHealthFactor(combined.Long.PDAKey, decimal.NewFromFloat(0.03))

	svc.RunCycle(context.Background())

	assert.True(t, notified)
	_, stillOpen := manager.GetPosition(combined.ID.String())
	assert.True(t, stillOpen, "position must remain open while exits are paused")
}
