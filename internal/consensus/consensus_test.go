package consensus

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/basisbot/internal/types"
	"github.com/web3guy0/basisbot/internal/venue"
)

func TestCheckWithinThreshold(t *testing.T) {
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())
	checker := NewChecker(long, perp, decimal.NewFromFloat(0.01))

	result, err := checker.Check(context.Background(), types.AssetSOL, "SOL")

	require.NoError(t, err)
	assert.True(t, result.IsWithinThreshold)
	assert.Equal(t, "equal", result.Divergence())
}

func TestCheckFlagsDeviationAboveThreshold(t *testing.T) {
	long := venue.NewPaperLongVenue(venue.PaperLongConfig{
		BasePrices: map[types.Asset]decimal.Decimal{types.AssetSOL: decimal.NewFromFloat(160)},
	})
	perp := venue.NewPaperPerpVenue(venue.PaperPerpConfig{
		MarkPrices:    map[string]decimal.Decimal{"SOL": decimal.NewFromFloat(150)},
		FundingRate8h: map[string]decimal.Decimal{"SOL": decimal.NewFromFloat(-0.001)},
	})
	checker := NewChecker(long, perp, decimal.NewFromFloat(0.01))

	result, err := checker.Check(context.Background(), types.AssetSOL, "SOL")

	require.NoError(t, err)
	assert.False(t, result.IsWithinThreshold)
	assert.Equal(t, "long_higher", result.Divergence())
}

func TestConsensusPriceIsAverage(t *testing.T) {
	result := Result{LongPrice: decimal.NewFromInt(100), ShortPrice: decimal.NewFromInt(200)}

	assert.True(t, result.ConsensusPrice().Equal(decimal.NewFromInt(150)))
}

func TestSlippageAdjustedPricesWidensSpread(t *testing.T) {
	result := Result{LongPrice: decimal.NewFromInt(100), ShortPrice: decimal.NewFromInt(100)}

	worstLong, worstShort := SlippageAdjustedPrices(result, decimal.NewFromInt(10))

	assert.True(t, worstLong.GreaterThan(decimal.NewFromInt(100)))
	assert.True(t, worstShort.LessThan(decimal.NewFromInt(100)))
}
