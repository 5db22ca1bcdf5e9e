package venue

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/types"
)

func TestPaperLongBestProtocolPicksHighestNetCarry(t *testing.T) {
	v := NewPaperLongVenue(DefaultPaperLongConfig())

	quote, ok, err := v.BestProtocol(context.Background(), types.AssetSOL, decimal.NewFromFloat(3.0))

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, types.ProtocolKamino, quote.Rates.Protocol)
}

func TestPaperLongOpenAndCloseRoundTrip(t *testing.T) {
	v := NewPaperLongVenue(DefaultPaperLongConfig())
	ctx := context.Background()

	leg, err := v.OpenLong(ctx, types.ProtocolMarginFi, types.AssetSOL, decimal.NewFromInt(100), decimal.NewFromFloat(3.0))
	require.NoError(t, err)
	assert.Equal(t, types.TxConfirmed, leg.State)
	assert.True(t, leg.PositionSizeUSD.GreaterThan(leg.BorrowedUSD))

	hf, err := v.HealthFactor(ctx, leg)
	require.NoError(t, err)
	assert.True(t, hf.Equal(decimal.NewFromFloat(1.5)))

	v.SetHealthFactor(leg.PDAKey, decimal.NewFromFloat(1.02))
	hf, err = v.HealthFactor(ctx, leg)
	require.NoError(t, err)
	assert.True(t, hf.Equal(decimal.NewFromFloat(1.02)))

	closed, err := v.CloseLong(ctx, leg)
	require.NoError(t, err)
	assert.Len(t, closed.StateHistory, 2)
}

func TestPaperLongCurrentPriceUnknownAsset(t *testing.T) {
	v := NewPaperLongVenue(PaperLongConfig{BasePrices: map[types.Asset]decimal.Decimal{}})

	_, err := v.CurrentPrice(context.Background(), types.AssetSOL)

	assert.Error(t, err)
}

func TestPaperPerpCurrentFundingAndPrediction(t *testing.T) {
	v := NewPaperPerpVenue(DefaultPaperPerpConfig())
	ctx := context.Background()

	fr, err := v.CurrentFunding(ctx, "SOL")
	require.NoError(t, err)
	assert.True(t, fr.Rate8h.IsNegative())

	predicted, err := v.PredictNextFunding(ctx, "SOL")
	require.NoError(t, err)
	assert.True(t, predicted.IsNegative())
}

func TestPaperPerpOpenAndCloseRoundTrip(t *testing.T) {
	v := NewPaperPerpVenue(DefaultPaperPerpConfig())
	ctx := context.Background()

	leg, err := v.OpenShort(ctx, "SOL", decimal.NewFromInt(15_000), decimal.NewFromFloat(3.0))
	require.NoError(t, err)
	assert.Equal(t, types.TxConfirmed, leg.State)
	assert.True(t, leg.Qty.IsPositive())

	mf, err := v.MarginFraction(ctx, leg)
	require.NoError(t, err)
	assert.True(t, mf.Equal(decimal.NewFromFloat(0.5)))

	v.SetMarginFraction(leg.PositionKey, decimal.NewFromFloat(0.04))
	mf, err = v.MarginFraction(ctx, leg)
	require.NoError(t, err)
	assert.True(t, mf.Equal(decimal.NewFromFloat(0.04)))

	closed, err := v.CloseShort(ctx, leg)
	require.NoError(t, err)
	assert.Len(t, closed.StateHistory, 2)
}

func TestPaperPerpMarkPriceUnknownCoin(t *testing.T) {
	v := NewPaperPerpVenue(PaperPerpConfig{MarkPrices: map[string]decimal.Decimal{}})

	_, err := v.MarkPrice(context.Background(), "SOL")

	assert.Error(t, err)
}
