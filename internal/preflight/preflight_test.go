package preflight

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

func testOpportunity(t *testing.T, long venue.LongVenue, perp venue.PerpVenue, leverage decimal.Decimal) types.Opportunity {
	t.Helper()
	quote, ok, err := long.BestProtocol(context.Background(), types.AssetSOL, leverage)
	require.NoError(t, err)
	require.True(t, ok)

	funding, err := perp.CurrentFunding(context.Background(), "SOL")
	require.NoError(t, err)

	return types.Opportunity{
		Asset:               types.AssetSOL,
		Protocol:            quote.Rates.Protocol,
		PerpCoin:            "SOL",
		CurrentFundingRate:  funding.Rate8h,
		PredictedFundingAPY: funding.RateAnnual(),
		Leverage:            leverage,
	}
}

func TestRunPassesWhenAllGatesClear(t *testing.T) {
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())
	limits := config.DefaultRiskLimits()
	prices := consensus.NewChecker(long, perp, limits.MaxPriceDeviation)
	checker := NewChecker(long, perp, prices, limits)

	opp := testOpportunity(t, long, perp, decimal.NewFromFloat(3.0))
	result := checker.Run(context.Background(), "user-1", opp)

	require.True(t, result.Passed)
	assert.Empty(t, result.Errors)
}

func TestRunFailsWhenFundingNoLongerNegative(t *testing.T) {
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perp := venue.NewPaperPerpVenue(venue.DefaultPaperPerpConfig())
	limits := config.DefaultRiskLimits()
	prices := consensus.NewChecker(long, perp, limits.MaxPriceDeviation)
	checker := NewChecker(long, perp, prices, limits)

	opp := testOpportunity(t, long, perp, decimal.NewFromFloat(3.0))
	opp.PredictedFundingAPY = decimal.NewFromFloat(0.01)

	result := checker.Run(context.Background(), "user-1", opp)

	assert.False(t, result.Passed)
	assert.False(t, result.Checks["funding_validation"])
}

func TestRunFlagsBridgeDepositNeeded(t *testing.T) {
	long := venue.NewPaperLongVenue(venue.DefaultPaperLongConfig())
	perpConfig := venue.DefaultPaperPerpConfig()
	perpConfig.AccountValue = decimal.NewFromInt(10)
	perp := venue.NewPaperPerpVenue(perpConfig)
	limits := config.DefaultRiskLimits()
	prices := consensus.NewChecker(long, perp, limits.MaxPriceDeviation)
	checker := NewChecker(long, perp, prices, limits)

	opp := testOpportunity(t, long, perp, decimal.NewFromFloat(3.0))
	result := checker.Run(context.Background(), "user-1", opp)

	assert.True(t, result.NeedsBridgeDeposit)
}
