package position

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/config"
	"github.com/web3guy0/basisbot/internal/consensus"
	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/venue"
)

func newTestManager() (*Manager, *venue.PaperLongVenue, *venue.PaperPerpVenue) {
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())
	prices := consensus.NewChecker(long, perp, decimal.NewFromFloat(0.005))
	return NewManager(long, perp, prices, config.DefaultRiskLimits()), long, perp
}

func testOpportunity() types.Opportunity {
	return types.Opportunity{
		Asset:    types.AssetSOL,
		Protocol: types.ProtocolMarginFi,
		PerpCoin: "SOL",
		Leverage: decimal.NewFromFloat(3.0),
		Score:    types.OpportunityScore{TotalExpectedAPY: decimal.NewFromFloat(0.15)},
	}
}

type fakeHistoryRecorder struct {
	calls int
	lastID string
	lastPnL decimal.Decimal
}

func (f *fakeHistoryRecorder) CloseToHistory(ctx context.Context, combined *types.CombinedPosition, pnlUSD decimal.Decimal) error {
	f.calls++
	f.lastID = combined.ID.String()
	f.lastPnL = pnlUSD
	return nil
}

func TestOpenPositionOpensBothLegs(t *testing.T) {
	mgr, _, _ := newTestManager()

	result := mgr.OpenPosition(context.Background(), "user-1", testOpportunity(), decimal.NewFromInt(100))

	require.True(t, result.Success)
	require.NotNil(t, result.Position)
	assert.NotEmpty(t, result.Position.Long.PDAKey)
	assert.NotEmpty(t, result.Position.Short.PositionKey)
}

func TestClosePositionClosesShortBeforeLong(t *testing.T) {
	mgr, _, _ := newTestManager()

	opened := mgr.OpenPosition(context.Background(), "user-1", testOpportunity(), decimal.NewFromInt(100))
	require.True(t, opened.Success)

	closed := mgr.ClosePosition(context.Background(), opened.Position.ID.String(), types.ExitManual)

	require.True(t, closed.Success)
	assert.NotNil(t, closed.Position.ClosedAt)

	_, stillOpen := mgr.GetPosition(opened.Position.ID.String())
	assert.False(t, stillOpen)
}

func TestGetPositionDeltaIsNearZeroAtEntry(t *testing.T) {
	mgr, _, _ := newTestManager()

	opened := mgr.OpenPosition(context.Background(), "user-1", testOpportunity(), decimal.NewFromInt(100))
	require.True(t, opened.Success)

	delta, err := mgr.GetPositionDelta(context.Background(), opened.Position)

	require.NoError(t, err)
	assert.True(t, delta.DeltaRatio.Abs().LessThan(decimal.NewFromFloat(0.01)))
}

func TestRebalanceIfNeededSkipsWhenWithinThreshold(t *testing.T) {
	mgr, _, _ := newTestManager()

	opened := mgr.OpenPosition(context.Background(), "user-1", testOpportunity(), decimal.NewFromInt(100))
	require.True(t, opened.Success)

	result, err := mgr.RebalanceIfNeeded(context.Background(), opened.Position)

	require.NoError(t, err)
	assert.False(t, result.Performed)
}

func TestOpenPositionBridgesWhenPerpAccountShort(t *testing.T) {
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perpConfig := venue.DefaultPaperPerpConfig()
	perpConfig.AccountValue = decimal.NewFromInt(10)
	perp := venue.NewPaperPerpVenue(perpConfig)
	prices := consensus.NewChecker(long, perp, decimal.NewFromFloat(0.005))
	mgr := NewManager(long, perp, prices, config.DefaultRiskLimits())

	result := mgr.OpenPosition(context.Background(), "user-1", testOpportunity(), decimal.NewFromInt(100))

	require.True(t, result.Success)
	accountValue, err := perp.AccountValue(context.Background())
	require.NoError(t, err)
	assert.True(t, accountValue.GreaterThanOrEqual(result.Position.Short.PositionSizeUSD))
}

func TestClosePositionRecordsHistory(t *testing.T) {
	mgr, _, _ := newTestManager()
	recorder := &fakeHistoryRecorder{}
	mgr.SetHistoryRecorder(recorder)

	opened := mgr.OpenPosition(context.Background(), "user-1", testOpportunity(), decimal.NewFromInt(100))
	require.True(t, opened.Success)

	closed := mgr.ClosePosition(context.Background(), opened.Position.ID.String(), types.ExitManual)

	require.True(t, closed.Success)
	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, opened.Position.ID.String(), recorder.lastID)
}
