package bot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/killswitch"
	"github.com/web3guy0/basisbot/internal/notify"
	"github.com/web3guy0/basisbot/internal/risk"
	"github.com/web3guy0/basisbot/internal/store"
	"github.com/web3guy0/basisbot/internal/venue"
)

func newTestBot(t *testing.T) (*Bot, *venue.PaperLongVenue, *venue.PaperPerpVenue) {
	t.Helper()

	limits := config.DefaultRiskLimits()
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())

	s, err := store.Open(filepath.Join(t.TempDir(), "bot_test.db"))
	require.NoError(t, err)

	cfg := &config.Config{
		Risk:                   limits,
		ScanInterval:           20 * time.Millisecond,
		MonitorInterval:        20 * time.Millisecond,
		KillSwitchPath:         filepath.Join(t.TempDir(), "emergency.stop"),
		KillSwitchPollInterval: 20 * time.Millisecond,
		DeployedCapitalUSD:     decimal.NewFromInt(100000),
		EnableAutoExit:         true,
	}

	b := New(Deps{
		Cfg:         cfg,
		Long:        long,
		Perp:        perp,
		Store:       s,
		Bus:         notify.NewBus(),
		DefaultUser: "test-user",
	})

	return b, long, perp
}

func TestRunScanCycleOpensAndPersistsPosition(t *testing.T) {
	b, _, _ := newTestBot(t)
	ctx := context.Background()

	b.runScanCycle(ctx)

	positions := b.manager.GetAllPositions()
	require.Len(t, positions, 1)

	has, err := b.store.HasOpenPosition(ctx, "test-user", positions[0].Asset)
	require.NoError(t, err)
	require.True(t, has)
}

func TestRunScanCycleSkippedWhileKillSwitchActive(t *testing.T) {
	b, _, _ := newTestBot(t)
	ctx := context.Background()

	b.killSwitch.Start()
	defer b.killSwitch.Stop()

	require.NoError(t, killswitch.Trigger(b.cfg.KillSwitchPath, "operator stop"))
	require.Eventually(t, func() bool { return b.killSwitch.Active() }, time.Second, 5*time.Millisecond)

	b.runScanCycle(ctx)

	require.Empty(t, b.manager.GetAllPositions())
}

func TestRunScanCycleSkippedWhilePaused(t *testing.T) {
	b, _, _ := newTestBot(t)
	ctx := context.Background()

	b.pauses.Pause(risk.PauseScopeAll, "manual pause for test")
	b.runScanCycle(ctx)

	require.Empty(t, b.manager.GetAllPositions())
}

func TestStartAndStopRunsBackgroundLoopsCleanly(t *testing.T) {
	b, _, _ := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	b.Stop()
}
